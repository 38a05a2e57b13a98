/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"sync/atomic"

	defn "github.com/named-data/ndnd-ddos/fw/defn"
)

// OutPkt is a packet handed to a face for transmission.
type OutPkt struct {
	Pkt    *defn.Pkt
	InFace uint64
}

// Face is the forwarder's view of a link endpoint.
type Face interface {
	String() string
	FaceID() uint64
	SetFaceID(faceID uint64)
	Scope() defn.Scope
	LinkType() defn.LinkType

	// SendPacket transmits a packet. It must not block the forwarding thread.
	SendPacket(out OutPkt)

	// Counters
	NOutPackets() uint64
}

// faceBase provides logic common to all faces.
type faceBase struct {
	faceID      uint64
	scope       defn.Scope
	linkType    defn.LinkType
	nOutPackets atomic.Uint64
}

func (f *faceBase) FaceID() uint64 {
	return f.faceID
}

func (f *faceBase) SetFaceID(faceID uint64) {
	f.faceID = faceID
}

func (f *faceBase) Scope() defn.Scope {
	return f.scope
}

func (f *faceBase) LinkType() defn.LinkType {
	return f.linkType
}

func (f *faceBase) NOutPackets() uint64 {
	return f.nOutPackets.Load()
}
