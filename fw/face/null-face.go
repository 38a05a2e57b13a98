/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"

	"github.com/named-data/ndnd-ddos/fw/core"
	defn "github.com/named-data/ndnd-ddos/fw/defn"
)

// NullFace is a face that drops all packets.
type NullFace struct {
	faceBase
}

// MakeNullFace makes a NullFace.
func MakeNullFace() *NullFace {
	f := &NullFace{}
	f.scope = defn.NonLocal
	f.linkType = defn.PointToPoint
	return f
}

func (f *NullFace) String() string {
	return fmt.Sprintf("null-face (faceid=%d)", f.faceID)
}

func (f *NullFace) SendPacket(out OutPkt) {
	f.nOutPackets.Add(1)
	core.Log.Trace(f, "Sent packet on null face - DROP", "name", out.Pkt.Name)
}
