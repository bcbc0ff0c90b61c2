// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package disk

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

// MBRSize is the fixed size of a Master Boot Record sector.
const MBRSize = 512

const mbrSignatureOffset = 0x1FE
const mbrPartitionTableOffset = 0x1BE

// ZealFSPartitionType is the MBR partition type byte original_source
// reserves for ZealFS v2 partitions.
const ZealFSPartitionType MBRPartition = 0x5A

// MBRPartitionEntry represents a single 16-byte entry in the MBR's partition
// table. Multi-byte fields are stored as byte arrays to make the
// little-endian conversion explicit at the point of use.
type MBRPartitionEntry struct {
	BootIndicator uint8        // 0x00: 0x80 for bootable, 0x00 for inactive
	StartCHS      [3]byte      // 0x01
	PartitionType MBRPartition // 0x04
	EndCHS        [3]byte      // 0x05
	StartLBA      [4]byte      // 0x08: uint32 LE
	TotalSectors  [4]byte      // 0x0C: uint32 LE
}

// ReadStartLBA returns the starting LBA of the partition.
func (p *MBRPartitionEntry) ReadStartLBA() uint32 { return binary.LittleEndian.Uint32(p.StartLBA[:]) }

// ReadTotalSectors returns the total number of sectors in the partition.
func (p *MBRPartitionEntry) ReadTotalSectors() uint32 {
	return binary.LittleEndian.Uint32(p.TotalSectors[:])
}

// WriteStartLBA sets the starting LBA of the partition.
func (p *MBRPartitionEntry) WriteStartLBA(lba uint32) {
	binary.LittleEndian.PutUint32(p.StartLBA[:], lba)
}

// WriteTotalSectors sets the total number of sectors in the partition.
func (p *MBRPartitionEntry) WriteTotalSectors(sectors uint32) {
	binary.LittleEndian.PutUint32(p.TotalSectors[:], sectors)
}

// Active reports whether the entry describes a real partition. The 0x80 boot
// indicator alone is not a reliable signal - plenty of valid partitions are
// never marked bootable - so any non-zero field counts as occupied, matching
// original_source/src/disk.c's treatment of partition slots.
func (p *MBRPartitionEntry) Active() bool {
	return p.BootIndicator != 0 ||
		p.PartitionType != PartitionTypeEmpty ||
		p.ReadStartLBA() != 0 ||
		p.ReadTotalSectors() != 0
}

// String provides a human-readable representation of an MBRPartitionEntry.
func (p *MBRPartitionEntry) String() string {
	bootable := "No"
	if p.BootIndicator == 0x80 {
		bootable = "Yes"
	}
	return fmt.Sprintf("  Bootable: %s (0x%02X)\n"+
		"  Partition Type: 0x%02X (%s)\n"+
		"  Start LBA: %d\n"+
		"  Total Sectors: %d\n"+
		"  Size: %d bytes (%s)",
		bootable, p.BootIndicator,
		p.PartitionType, getPartitionTypeName(p.PartitionType),
		p.ReadStartLBA(),
		p.ReadTotalSectors(),
		uint64(p.ReadTotalSectors())*SectorSize,
		humanize.IBytes(uint64(p.ReadTotalSectors())*SectorSize))
}

// MBR represents the Master Boot Record structure.
type MBR struct {
	BootCode         [440]byte
	DiskSignature    [4]byte
	Reserved         [2]byte
	PartitionEntries [4]MBRPartitionEntry
	Signature        [2]byte
}

// ReadDiskSignature returns the disk signature as a uint32.
func (m *MBR) ReadDiskSignature() uint32 { return binary.LittleEndian.Uint32(m.DiskSignature[:]) }

// ReadSignature returns the MBR signature (should be 0xAA55).
func (m *MBR) ReadSignature() uint16 { return binary.LittleEndian.Uint16(m.Signature[:]) }

// String provides a human-readable representation of the MBR.
func (m *MBR) String() string {
	s := fmt.Sprintf("--- Master Boot Record (MBR) ---\n"+
		"Disk Signature: 0x%08X\n"+
		"MBR Signature: 0x%04X (Expected: 0xAA55)\n\n"+
		"--- Partition Table Entries ---",
		m.ReadDiskSignature(), m.ReadSignature())

	for i, entry := range m.PartitionEntries {
		s += fmt.Sprintf("\nPartition %d:\n%s", i+1, entry.String())
	}
	return s
}

// NewEmptyMBR builds a blank MBR: zeroed bootstrap code, zeroed partition
// table, valid 0x55AA signature. Grounded in original_source/src/disk.c's
// disk_create_mbr, which does the same before the caller allocates
// partitions into it.
func NewEmptyMBR() *MBR {
	var m MBR
	binary.LittleEndian.PutUint16(m.Signature[:], 0xAA55)
	return &m
}

// ParseMBR parses a 512-byte slice into an MBR struct.
func ParseMBR(data []byte) (*MBR, error) {
	if len(data) != MBRSize {
		return nil, newErr("ParseMBR", KindInvalidArgument,
			fmt.Errorf("input data slice size mismatch: expected %d bytes, got %d bytes", MBRSize, len(data)))
	}

	var mbr MBR
	copy(mbr.BootCode[:], data[0x000:0x1B8])
	copy(mbr.DiskSignature[:], data[0x1B8:0x1BC])
	copy(mbr.Reserved[:], data[0x1BC:mbrPartitionTableOffset])

	for i := 0; i < 4; i++ {
		entryOffset := mbrPartitionTableOffset + i*16
		entryBytes := data[entryOffset : entryOffset+16]

		mbr.PartitionEntries[i].BootIndicator = entryBytes[0x00]
		copy(mbr.PartitionEntries[i].StartCHS[:], entryBytes[0x01:0x04])
		mbr.PartitionEntries[i].PartitionType = MBRPartition(entryBytes[0x04])
		copy(mbr.PartitionEntries[i].EndCHS[:], entryBytes[0x05:0x08])
		copy(mbr.PartitionEntries[i].StartLBA[:], entryBytes[0x08:0x0C])
		copy(mbr.PartitionEntries[i].TotalSectors[:], entryBytes[0x0C:0x10])
	}

	copy(mbr.Signature[:], data[mbrSignatureOffset:mbrSignatureOffset+2])
	if mbr.ReadSignature() != 0xAA55 {
		return nil, newErr("ParseMBR", KindInvalidArgument,
			fmt.Errorf("invalid MBR signature: expected 0xAA55, got 0x%04X", mbr.ReadSignature()))
	}
	return &mbr, nil
}

// EmitMBR serializes an MBR back into a 512-byte sector. CHS fields are
// always written as 0xFF 0xFF 0xFF: zealdisk, like the original tool,
// addresses partitions purely by LBA and never computes real geometry.
func EmitMBR(m *MBR) []byte {
	data := make([]byte, MBRSize)
	copy(data[0x000:0x1B8], m.BootCode[:])
	copy(data[0x1B8:0x1BC], m.DiskSignature[:])
	copy(data[0x1BC:mbrPartitionTableOffset], m.Reserved[:])

	for i, e := range m.PartitionEntries {
		off := mbrPartitionTableOffset + i*16
		data[off+0x00] = e.BootIndicator
		copy(data[off+0x01:off+0x04], []byte{0xFF, 0xFF, 0xFF})
		data[off+0x04] = byte(e.PartitionType)
		copy(data[off+0x05:off+0x08], []byte{0xFF, 0xFF, 0xFF})
		copy(data[off+0x08:off+0x0C], e.StartLBA[:])
		copy(data[off+0x0C:off+0x10], e.TotalSectors[:])
	}

	binary.LittleEndian.PutUint16(data[mbrSignatureOffset:], 0xAA55)
	return data
}

// LargestFreeGap scans the active partition entries and returns the start
// LBA and size in sectors of the largest unused run within a disk of
// totalSectors. Mirrors original_source/src/disk.c's
// disk_largest_free_space: sort active entries by start LBA, then walk the
// gaps between consecutive partitions (and the gap before the first/after
// the last).
func LargestFreeGap(entries [4]MBRPartitionEntry, totalSectors uint32) (start, size uint32) {
	type span struct{ start, end uint32 }
	var spans []span
	for _, e := range entries {
		if e.Active() {
			spans = append(spans, span{e.ReadStartLBA(), e.ReadStartLBA() + e.ReadTotalSectors()})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	cursor := uint32(1) // sector 0 is the MBR itself
	var bestStart, bestSize uint32
	consider := func(from, to uint32) {
		if to > from && to-from > bestSize {
			bestStart, bestSize = from, to-from
		}
	}
	for _, s := range spans {
		consider(cursor, s.start)
		if s.end > cursor {
			cursor = s.end
		}
	}
	consider(cursor, totalSectors)
	return bestStart, bestSize
}

// AlignGap reduces a free gap's start/size so start is a multiple of
// alignSectors, shrinking from the front. Mirrors
// original_source/src/disk.c's disk_max_partition_size alignment rounding.
func AlignGap(start, size, alignSectors uint32) (uint32, uint32) {
	if alignSectors <= 1 {
		return start, size
	}
	aligned := start
	if rem := start % alignSectors; rem != 0 {
		aligned += alignSectors - rem
	}
	if aligned >= start+size {
		return aligned, 0
	}
	return aligned, size - (aligned - start)
}

type MBRPartition uint8

const (
	PartitionTypeEmpty MBRPartition = iota
	PartitionTypeFAT12
	PartitionTypeXENIXRoot
	PartitionTypeXENIXUsr
	PartitionTypeFAT16LessThan32MB
	PartitionTypeExtendedCHS
	PartitionTypeFAT16GreaterThan32MB
	PartitionTypeNTFSHPFSexFATQNX
	PartitionTypeAIX
	PartitionTypeAIXBootable
	PartitionTypeOs2BootManager
	PartitionTypeFAT32CHS
	PartitionTypeFAT32LBA
	PartitionTypeFAT16LBA
	PartitionTypeUnknown
	PartitionTypeExtendedLBA
	PartitionTypeLinuxSwap
	PartitionTypeLinuxFilesystem
	PartitionTypeGPTProtectiveMBR
	PartitionTypeEFISystemPartition
)

const PartitionTypeGPT MBRPartition = 0xEE

// getPartitionTypeName maps common partition type IDs to names, extended
// with the ZealFS type byte over the teacher's original switch.
func getPartitionTypeName(id MBRPartition) string {
	switch id {
	case PartitionTypeEmpty:
		return "Empty"
	case PartitionTypeFAT12:
		return "FAT12"
	case PartitionTypeFAT16LessThan32MB:
		return "FAT16 (<32MB)"
	case PartitionTypeExtendedCHS:
		return "Extended (CHS)"
	case PartitionTypeFAT16GreaterThan32MB:
		return "FAT16 (>32MB)"
	case PartitionTypeNTFSHPFSexFATQNX:
		return "NTFS/HPFS/exFAT/QNX"
	case PartitionTypeFAT32CHS:
		return "FAT32 (CHS)"
	case PartitionTypeFAT32LBA:
		return "FAT32 (LBA)"
	case PartitionTypeFAT16LBA:
		return "FAT16 (LBA)"
	case PartitionTypeExtendedLBA:
		return "Extended (LBA)"
	case PartitionTypeLinuxSwap:
		return "Linux swap"
	case PartitionTypeLinuxFilesystem:
		return "Linux filesystem"
	case PartitionTypeGPTProtectiveMBR:
		return "GPT Protective MBR"
	case PartitionTypeEFISystemPartition:
		return "EFI System Partition"
	case ZealFSPartitionType:
		return "ZealFS v2"
	case PartitionTypeGPT:
		return "GPT"
	default:
		return "Unknown"
	}
}

// GetFSType returns the human-readable filesystem name for an MBR partition
// type byte - the exported form of getPartitionTypeName used by the CLI.
func GetFSType(b MBRPartition) string { return getPartitionTypeName(b) }
