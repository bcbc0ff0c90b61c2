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

import "os"

// Enumerate probes the platform's well-known raw device paths
// (probeCandidates, defined per-OS) and returns a Staging for every one that
// can be opened and read, mirroring original_source/src/disk_linux.c's
// disk_list. Devices larger than MaxDiskSize are skipped rather than
// returned invalid, since nothing useful can be done with them here.
func Enumerate() ([]*Staging, error) {
	var found []*Staging
	for _, path := range probeCandidates() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		st, err := Load(path, false)
		if err != nil {
			continue
		}
		found = append(found, st)
	}
	return found, nil
}

// Refresh rebuilds the enumerated disk list, preserving any already-loaded
// image files (which Enumerate itself never discovers) at the tail, and
// refuses outright if any tracked disk still has unapplied staged changes -
// mirrors original_source/src/disk.c's disks_refresh/disk_can_be_switched.
func Refresh(current []*Staging) ([]*Staging, error) {
	for _, st := range current {
		if st.Dirty() {
			return nil, newErr("Refresh", KindHasStagedChanges, nil)
		}
	}

	fresh, err := Enumerate()
	if err != nil {
		return nil, err
	}

	for _, st := range current {
		if st.IsImage {
			fresh = append(fresh, st)
		}
	}
	return fresh, nil
}
