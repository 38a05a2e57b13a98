/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"fmt"
	"time"

	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// Strategy represents a forwarding strategy.
type Strategy interface {
	Instantiate(fwThread *Thread)
	String() string
	GetName() enc.Name

	AfterReceiveInterest(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64)
	AfterReceiveNack(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64)
	AfterReceiveData(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64)
	BeforeExpirePendingInterest(
		pitEntry table.PitEntry)
}

// StrategyBase provides common helper methods for forwarding strategies.
type StrategyBase struct {
	thread  *Thread
	name    enc.Name
	version uint64
	logName string
}

// NewStrategyBase is a helper that allows specific strategies to initialize the base.
func (s *StrategyBase) NewStrategyBase(
	fwThread *Thread,
	name string,
	version uint64,
) {
	s.thread = fwThread
	s.name = defn.STRATEGY_PREFIX.
		Append(enc.NewStringComponent(enc.TypeGenericNameComponent, name)).
		Append(enc.NewVersionComponent(version))
	s.version = version
	s.logName = name
}

func (s *StrategyBase) String() string {
	return fmt.Sprintf("%s (v=%d t=%s)", s.logName, s.version, s.thread.name)
}

// GetName returns the name of strategy, including version information.
func (s *StrategyBase) GetName() enc.Name {
	return s.name
}

// Now returns the current time of the thread's clock.
func (s *StrategyBase) Now() time.Time {
	return s.thread.timer.Now()
}

// LookupFib returns the nexthops of the entry's name, in table order.
func (s *StrategyBase) LookupFib(pitEntry table.PitEntry) []*table.FibNextHopEntry {
	return s.thread.fib.FindNextHops(pitEntry.EncName())
}

// SendInterest sends an Interest on the specified face.
func (s *StrategyBase) SendInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	nexthop uint64,
	inFace uint64,
) bool {
	return s.thread.processOutgoingInterest(packet, pitEntry, nexthop, inFace)
}

// SendData sends a Data packet on the specified face.
func (s *StrategyBase) SendData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	nexthop uint64,
	inFace uint64,
) {
	pitEntry.RemoveInRecord(nexthop)
	s.thread.processOutgoingData(packet, nexthop, inFace)
}

// SendNack sends a Nack to a downstream face of the entry and drops its in-record.
func (s *StrategyBase) SendNack(pitEntry table.PitEntry, downstream uint64, header defn.NackHeader) bool {
	return s.thread.processOutgoingNack(pitEntry, downstream, header)
}

// SendNacks sends a Nack to every downstream face of the entry, in face ID order.
func (s *StrategyBase) SendNacks(pitEntry table.PitEntry, header defn.NackHeader) {
	for _, downstream := range sortedKeys(pitEntry.InRecords()) {
		s.SendNack(pitEntry, downstream, header)
	}
}

// SendDerivedNack sends a Nack for an Interest that need not be pending.
func (s *StrategyBase) SendDerivedNack(face uint64, interest *defn.FwInterest, header defn.NackHeader) bool {
	return s.thread.sendNackOnFace(face, interest, header)
}

// RejectPendingInterest answers every downstream with a NoRoute Nack
// and removes the entry.
func (s *StrategyBase) RejectPendingInterest(pitEntry table.PitEntry) {
	s.SendNacks(pitEntry, defn.NackHeader{Reason: defn.NackReasonNoRoute})
	s.thread.finalizeInterest(pitEntry)
	s.thread.pit.RemoveInterest(pitEntry)
}

// ForceDeletePit removes an entry without answering its downstreams.
func (s *StrategyBase) ForceDeletePit(pitEntry table.PitEntry) {
	s.thread.pit.RemoveInterest(pitEntry)
}

// ProcessNack forwards a Nack downstream once every upstream has Nacked,
// using the least severe reason received.
func (s *StrategyBase) ProcessNack(pitEntry table.PitEntry, inFace uint64) {
	now := s.Now()
	reason := defn.NackReasonNone
	for _, outRecord := range pitEntry.OutRecords() {
		if !outRecord.Nacked {
			if outRecord.ExpirationTime.After(now) {
				// Still waiting for an upstream
				return
			}
			continue
		}
		if reason == defn.NackReasonNone || outRecord.NackReason.LessSevere(reason) {
			reason = outRecord.NackReason
		}
	}
	if reason == defn.NackReasonNone {
		return
	}

	s.SendNacks(pitEntry, defn.NackHeader{Reason: reason})
	table.UpdateExpirationTimer(pitEntry, now)
}

// hasPendingOutRecords returns whether the entry waits for an upstream:
// an unexpired out-record that was not Nacked.
func (s *StrategyBase) hasPendingOutRecords(pitEntry table.PitEntry) bool {
	now := s.Now()
	for _, outRecord := range pitEntry.OutRecords() {
		if !outRecord.Nacked && outRecord.ExpirationTime.After(now) {
			return true
		}
	}
	return false
}

// wouldViolateScope returns whether forwarding to outFace would break
// the /localhost or /localhop scope of the name.
func (s *StrategyBase) wouldViolateScope(inFace uint64, interest *defn.FwInterest, outFace uint64) bool {
	out := s.thread.faces.Get(outFace)
	if out == nil || out.Scope() == defn.Local {
		return false
	}

	name := interest.Name()
	if len(name) == 0 {
		return false
	}
	if name[0].Equal(enc.LOCALHOST) {
		return true
	}
	if name[0].Equal(enc.LOCALHOP) {
		in := s.thread.faces.Get(inFace)
		return in == nil || in.Scope() != defn.Local
	}
	return false
}

// canForwardToLegacy returns whether outFace may receive the Interest:
// it has no unexpired out-record and another downstream still waits.
func (s *StrategyBase) canForwardToLegacy(pitEntry table.PitEntry, outFace uint64) bool {
	now := s.Now()
	if outRecord, ok := pitEntry.OutRecords()[outFace]; ok && !outRecord.ExpirationTime.Before(now) {
		return false
	}

	adHoc := false
	if face := s.thread.faces.Get(outFace); face != nil {
		adHoc = face.LinkType() == defn.AdHoc
	}
	for face, inRecord := range pitEntry.InRecords() {
		if (face != outFace || adHoc) && !inRecord.ExpirationTime.Before(now) {
			return true
		}
	}
	return false
}

// canForwardToNextHop combines the scope and legacy checks.
func (s *StrategyBase) canForwardToNextHop(
	inFace uint64,
	interest *defn.FwInterest,
	pitEntry table.PitEntry,
	nexthop uint64,
) bool {
	return !s.wouldViolateScope(inFace, interest, nexthop) &&
		s.canForwardToLegacy(pitEntry, nexthop)
}
