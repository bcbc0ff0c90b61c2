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
	"fmt"
	"path/filepath"

	"github.com/zeal8bit/zealdisk/pkg/pbar"
)

// State is the lifecycle of a Staging's uncommitted changes, per
// original_source/src/disk.c's has_staged_changes bookkeeping generalized
// into an explicit state machine.
type State int

const (
	StateClean State = iota
	StateDirty
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateCommitting:
		return "committing"
	default:
		return "clean"
	}
}

// PartitionEntry is a staged or committed partition slot: the raw MBR fields
// plus, while staged, the formatted filesystem blob that Commit will write
// at StartLBA*SectorSize.
type PartitionEntry struct {
	MBRPartitionEntry
	FormatBytes []byte
}

// Staging tracks one disk's committed (on-disk) state and its in-memory
// staged edits, implementing the CLEAN/DIRTY/COMMITTING state machine from
// spec.md's staging manager and grounded throughout in
// original_source/src/disk.c.
type Staging struct {
	Path    string
	IsImage bool
	Valid   bool
	HasMBR  bool

	Committed Snapshot
	Staged    Snapshot

	State State
}

// Dirty reports whether the staged state differs from committed.
func (s *Staging) Dirty() bool { return s.State != StateClean }

// Snapshot is one point-in-time view of a disk's MBR sector and partition
// table, used for both Committed and Staged.
type Snapshot struct {
	MBR        [MBRSize]byte
	Partitions [4]PartitionEntry
}

// Load opens path, reads its current MBR (or detects the no-MBR
// whole-disk-is-ZealFS case), and returns a Staging with Staged seeded from
// Committed. Mirrors original_source/src/disk.c's disk_parse_mbr_partitions.
func Load(path string, isImage bool) (*Staging, error) {
	dev, err := Open(path, false)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	var sector [MBRSize]byte
	if _, err := dev.ReadAt(sector[:], 0); err != nil {
		return nil, newErr("Load", KindIoError, err)
	}

	st := &Staging{Path: path, IsImage: isImage, Valid: true}

	if mbr, err := ParseMBR(sector[:]); err == nil {
		st.HasMBR = true
		copy(st.Committed.MBR[:], sector[:])
		for i, e := range mbr.PartitionEntries {
			st.Committed.Partitions[i] = PartitionEntry{MBRPartitionEntry: e}
		}
	} else if sector[0] == 'Z' && sector[1] == 2 {
		// No partition table at all: original_source treats a disk whose
		// first two bytes are the ZealFS v2 magic/version as a single
		// whole-disk ZealFS partition spanning the entire device.
		st.HasMBR = false
		st.Committed.Partitions[0] = PartitionEntry{
			MBRPartitionEntry: MBRPartitionEntry{PartitionType: ZealFSPartitionType},
		}
		st.Committed.Partitions[0].WriteStartLBA(0)
		st.Committed.Partitions[0].WriteTotalSectors(uint32(dev.Size() / SectorSize))
	} else {
		st.HasMBR = false
	}

	st.Staged = st.Committed
	return st, nil
}

// freeSlot returns the index of the first unoccupied partition slot in the
// staged table, or -1 if the table is full.
func (s *Staging) freeSlot() int {
	for i, p := range s.Staged.Partitions {
		if !p.Active() {
			return i
		}
	}
	return -1
}

// CreateMBR stages a brand-new, empty MBR for a disk with none, mirroring
// original_source/src/disk.c's disk_create_mbr.
func (s *Staging) CreateMBR() error {
	if s.HasMBR {
		return nil
	}
	empty := NewEmptyMBR()
	copy(s.Staged.MBR[:], EmitMBR(empty))
	s.Staged.Partitions = [4]PartitionEntry{}
	s.HasMBR = true
	s.State = StateDirty
	return nil
}

// AllocatePartition stages a new partition of the given size-table index,
// placed in the largest free gap aligned to alignSectors, with the given
// MBR partition type. Mirrors original_source/src/disk.c's
// disk_allocate_partition + disk_find_free_partition.
func (s *Staging) AllocatePartition(sizeIndex int, alignSectors uint32, partType MBRPartition, totalSectors uint32) (int, error) {
	slot := s.freeSlot()
	if slot < 0 {
		return -1, newErr("AllocatePartition", KindNoFreeSlot, nil)
	}

	wantBytes, err := PartitionSizeOf(sizeIndex)
	if err != nil {
		return -1, err
	}
	wantSectors := uint32(wantBytes / SectorSize)

	start, free := LargestFreeGap(partitionEntriesOf(s.Staged.Partitions), totalSectors)
	start, free = AlignGap(start, free, alignSectors)
	if free < wantSectors {
		return -1, newErr("AllocatePartition", KindInvalidArgument,
			fmt.Errorf("requested %d sectors, only %d available", wantSectors, free))
	}

	e := PartitionEntry{}
	e.PartitionType = partType
	e.WriteStartLBA(start)
	e.WriteTotalSectors(wantSectors)
	s.Staged.Partitions[slot] = e
	s.State = StateDirty
	return slot, nil
}

func partitionEntriesOf(p [4]PartitionEntry) [4]MBRPartitionEntry {
	var out [4]MBRPartitionEntry
	for i, e := range p {
		out[i] = e.MBRPartitionEntry
	}
	return out
}

// FormatPartition builds the ZealFS v2 formatted blob for the given staged
// slot and attaches it for Commit to write. The formatter itself lives in
// internal/zealfs, passed in as formatFn to avoid an import cycle between
// disk and zealfs (zealfs never needs to know about MBR slots).
func (s *Staging) FormatPartition(slot int, formatFn func(sizeBytes uint64) ([]byte, error)) error {
	if slot < 0 || slot >= 4 || !s.Staged.Partitions[slot].Active() {
		return newErr("FormatPartition", KindInvalidArgument, nil)
	}

	sizeBytes := uint64(s.Staged.Partitions[slot].ReadTotalSectors()) * SectorSize
	blob, err := formatFn(sizeBytes)
	if err != nil {
		return newErr("FormatPartition", KindNoMemory, err)
	}

	s.Staged.Partitions[slot].PartitionType = ZealFSPartitionType
	s.Staged.Partitions[slot].FormatBytes = blob
	s.State = StateDirty
	return nil
}

// DeletePartition stages the removal of a partition slot. Mirrors
// original_source/src/disk.c's disk_delete_partition.
func (s *Staging) DeletePartition(slot int) error {
	if slot < 0 || slot >= 4 {
		return newErr("DeletePartition", KindInvalidArgument, nil)
	}
	s.Staged.Partitions[slot] = PartitionEntry{}
	s.State = StateDirty
	return nil
}

// Revert discards all staged changes, resetting Staged back to Committed.
// Mirrors original_source/src/disk.c's disk_revert_changes.
func (s *Staging) Revert() {
	s.Staged = s.Committed
	_, err := ParseMBR(s.Committed.MBR[:])
	s.HasMBR = err == nil
	s.State = StateClean
}

// Commit writes the staged MBR sector (if any) and every staged partition's
// formatted blob to the backing device, in that order, then promotes Staged
// to Committed. On any I/O failure the committed state is left untouched
// and the error is returned - mirrors original_source/src/disk_linux.c's
// disk_write_changes, which never corrupts the in-memory committed view on
// a failed write.
func (s *Staging) Commit(bar *pbar.ProgressBarState) error {
	s.State = StateCommitting

	if s.HasMBR {
		mbr, err := ParseMBR(s.Staged.MBR[:])
		if err != nil {
			s.State = StateDirty
			return err
		}
		mbr.PartitionEntries = partitionEntriesOf(s.Staged.Partitions)
		copy(s.Staged.MBR[:], EmitMBR(mbr))
	}

	dev, err := Open(s.Path, true)
	if err != nil {
		s.State = StateDirty
		return err
	}
	defer dev.Close()

	if s.HasMBR {
		if _, err := dev.WriteAt(s.Staged.MBR[:], 0); err != nil {
			s.State = StateDirty
			return newErr("Commit", KindIoError, err)
		}
	}

	for _, p := range s.Staged.Partitions {
		if !p.Active() || len(p.FormatBytes) == 0 {
			continue
		}
		off := int64(p.ReadStartLBA()) * SectorSize
		if _, err := dev.WriteAt(p.FormatBytes, off); err != nil {
			s.State = StateDirty
			return newErr("Commit", KindIoError, err)
		}
		if bar != nil {
			bar.ProcessedBytes += int64(len(p.FormatBytes))
			bar.Render(false)
		}
	}

	s.Committed = s.Staged
	s.State = StateClean
	return nil
}

// Name returns the disk's basename, for `disks list` display.
func (s *Staging) Name() string { return filepath.Base(s.Path) }
