/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
)

// BestRoute is a forwarding strategy that forwards Interests
// to the first usable nexthop of the FIB entry.
type BestRoute struct {
	StrategyBase
}

func init() {
	strategyInit = append(strategyInit, func() Strategy { return &BestRoute{} })
	StrategyVersions["best-route"] = []uint64{1}
}

func (s *BestRoute) Instantiate(fwThread *Thread) {
	s.NewStrategyBase(fwThread, "best-route", 1)
}

func (s *BestRoute) AfterReceiveData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	core.Log.Trace(s, "AfterReceiveData", "name", packet.Name, "inrecords", len(pitEntry.InRecords()))
	for _, faceID := range sortedKeys(pitEntry.InRecords()) {
		core.Log.Trace(s, "Forwarding Data", "name", packet.Name, "faceid", faceID)
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

func (s *BestRoute) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	s.forwardBestRoute(inFace, packet.L3.Interest, pitEntry)
}

func (s *BestRoute) AfterReceiveNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	core.Log.Trace(s, "AfterReceiveNack", "name", packet.Name, "header", packet.L3.Nack.Header)
	s.ProcessNack(pitEntry, inFace)
}

func (s *BestRoute) BeforeExpirePendingInterest(pitEntry table.PitEntry) {
	// This does nothing in BestRoute
}
