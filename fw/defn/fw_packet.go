/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import (
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
)

// FwPacket is the network layer content of a packet: exactly one field is set.
type FwPacket struct {
	Interest *FwInterest
	Data     *FwData
	Nack     *FwNack
}

// FwInterest is the part of an Interest the forwarder looks at.
type FwInterest struct {
	NameV             enc.Name
	CanBePrefixV      bool
	MustBeFreshV      bool
	NonceV            optional.Optional[uint32]
	InterestLifetimeV optional.Optional[time.Duration]
	HopLimitV         *byte
}

// FwData is the part of a Data packet the forwarder looks at.
type FwData struct {
	NameV   enc.Name
	Content []byte
}

// FwNack is a network Nack: the rejected Interest plus the Nack header.
type FwNack struct {
	Interest *FwInterest
	Header   NackHeader
}

// Name returns the Interest name.
func (p *FwInterest) Name() enc.Name {
	return p.NameV
}

// Lifetime returns the InterestLifetime, if set.
func (p *FwInterest) Lifetime() optional.Optional[time.Duration] {
	return p.InterestLifetimeV
}

// Clone returns a copy that can be modified without affecting p.
func (p *FwInterest) Clone() *FwInterest {
	ret := *p
	ret.NameV = p.NameV.Clone()
	if p.HopLimitV != nil {
		hopLimit := *p.HopLimitV
		ret.HopLimitV = &hopLimit
	}
	return &ret
}
