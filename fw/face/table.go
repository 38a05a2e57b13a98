/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/named-data/ndnd-ddos/fw/core"
)

// Table holds all faces of one forwarder.
type Table struct {
	name       string
	faces      sync.Map
	nextFaceID atomic.Uint64 // starts at 1
}

// NewTable creates an empty face table. The name is used in logs.
func NewTable(name string) *Table {
	t := &Table{name: name}
	t.nextFaceID.Store(1)
	return t
}

func (t *Table) String() string {
	return "face-table (" + t.name + ")"
}

// Add adds a face to the face table and returns its assigned ID.
func (t *Table) Add(face Face) uint64 {
	faceID := t.nextFaceID.Add(1) - 1
	face.SetFaceID(faceID)
	t.faces.Store(faceID, face)
	core.Log.Debug(t, "Registered face", "faceid", faceID, "face", face)
	return faceID
}

// Get gets the face with the specified ID (if any) from the face table.
func (t *Table) Get(id uint64) Face {
	face, ok := t.faces.Load(id)
	if ok {
		return face.(Face)
	}
	return nil
}

// GetAll returns all faces ordered by ID.
func (t *Table) GetAll() []Face {
	faces := make([]Face, 0)
	t.faces.Range(func(_, face any) bool {
		faces = append(faces, face.(Face))
		return true
	})
	sort.Slice(faces, func(i, j int) bool { return faces[i].FaceID() < faces[j].FaceID() })
	return faces
}

// Remove removes a face from the face table.
func (t *Table) Remove(id uint64) {
	t.faces.Delete(id)
	core.Log.Info(t, "Unregistered face", "faceid", id)
}
