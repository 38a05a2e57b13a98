/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import (
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
)

// Pkt represents a pending packet to be sent or recently
// received on the link, plus any associated metadata.
type Pkt struct {
	Name enc.Name
	L3   *FwPacket

	IncomingFaceID uint64
	NextHopFaceID  optional.Optional[uint64]
}

// MakeInterestPkt wraps an Interest into a packet.
func MakeInterestPkt(interest *FwInterest) *Pkt {
	return &Pkt{
		Name: interest.NameV,
		L3:   &FwPacket{Interest: interest},
	}
}

// MakeDataPkt wraps a Data into a packet.
func MakeDataPkt(data *FwData) *Pkt {
	return &Pkt{
		Name: data.NameV,
		L3:   &FwPacket{Data: data},
	}
}

// MakeNackPkt wraps a Nack of the given Interest into a packet.
func MakeNackPkt(interest *FwInterest, header NackHeader) *Pkt {
	return &Pkt{
		Name: interest.NameV,
		L3: &FwPacket{Nack: &FwNack{
			Interest: interest,
			Header:   header,
		}},
	}
}
