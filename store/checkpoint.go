// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/snappy"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

// checkpointDigest hashes the (height, hash) pair of every index entry up to
// and including height, giving recovery a cheap way to confirm a checkpoint
// file matches the index prefix it claims to describe.
func checkpointDigest(idx *index, height uint64) crypto.Hash {
	h := crypto.Keccak256()
	for _, e := range idx.entries {
		if e.Height > height {
			break
		}
		h = crypto.Keccak256(h.Bytes(), e.Hash.Bytes())
	}
	return h
}

// writeCheckpoint atomically writes a snappy-compressed checkpoint file and
// prunes down to the most recent keepN files.
func writeCheckpoint(dir string, cp types.Checkpoint, keepN int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, raw)

	name := fmt.Sprintf("checkpoint-%020d.snap", cp.Height)
	tmp := filepath.Join(dir, name+".tmp")
	final := filepath.Join(dir, name)
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return err
	}
	return pruneCheckpoints(dir, keepN)
}

func pruneCheckpoints(dir string, keepN int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".snap" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) <= keepN {
		return nil
	}
	for _, n := range names[:len(names)-keepN] {
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}

// latestCheckpoint loads the most recent checkpoint file, or ok=false if
// none exist yet.
func latestCheckpoint(dir string) (cp types.Checkpoint, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return cp, false, nil
		}
		return cp, false, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".snap" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return cp, false, nil
	}
	sort.Strings(names)
	latest := names[len(names)-1]
	compressed, err := os.ReadFile(filepath.Join(dir, latest))
	if err != nil {
		return cp, false, err
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return cp, false, err
	}
	if err := json.Unmarshal(raw, &cp); err != nil {
		return cp, false, err
	}
	return cp, true, nil
}
