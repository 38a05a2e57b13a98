/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"math/rand/v2"
	"time"

	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/face"
	"github.com/named-data/ndnd-ddos/fw/journal"
	"github.com/named-data/ndnd-ddos/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/ndn"
	"github.com/named-data/ndnd/std/types/optional"
)

// ThreadConfig holds the collaborators of a forwarding thread.
type ThreadConfig struct {
	// Name used in logs and metric labels
	Name string
	// Faces of the router
	Faces *face.Table
	// FIB and strategy choice table
	Fib *table.FibStrategyTree
	// Clock of the thread. If nil, a LoopTimer posting into Run is used.
	Timer ndn.Timer
	// Position of the router relative to the producer. Unset uses ddos.router_type.
	RouterType optional.Optional[defn.RouterType]
	// Attack record snapshots. If nil, snapshots are discarded.
	Journal journal.Journal
	// Seed of the load balancing random source. Zero picks a random seed.
	Seed uint64
}

// Thread Represents a forwarding thread
type Thread struct {
	name       string
	faces      *face.Table
	fib        *table.FibStrategyTree
	pit        *table.PitHashTable
	timer      ndn.Timer
	routerType defn.RouterType
	journal    journal.Journal
	rng        *rand.Rand
	strategies map[uint64]Strategy

	pendingInterests chan *defn.Pkt
	pendingResponses chan *defn.Pkt
	pendingTasks     chan func()
	shouldQuit       chan struct{}
	HasQuit          chan struct{}

	counters defn.FWThreadCounters
}

// NewThread creates a new forwarding thread
func NewThread(config ThreadConfig) *Thread {
	t := &Thread{
		name:       config.Name,
		faces:      config.Faces,
		fib:        config.Fib,
		timer:      config.Timer,
		routerType: config.RouterType.GetOr(CfgRouterType()),
		journal:    config.Journal,

		pendingInterests: make(chan *defn.Pkt, CfgFwQueueSize()),
		pendingResponses: make(chan *defn.Pkt, CfgFwQueueSize()),
		pendingTasks:     make(chan func(), CfgFwQueueSize()),
		shouldQuit:       make(chan struct{}),
		HasQuit:          make(chan struct{}),
	}
	if t.name == "" {
		t.name = "fw-thread"
	}
	if t.faces == nil {
		t.faces = face.NewTable(t.name)
	}
	if t.fib == nil {
		t.fib = table.NewFibStrategyTree()
	}
	if t.timer == nil {
		t.timer = core.NewLoopTimer(t.post)
	}
	if t.journal == nil {
		t.journal = journal.Discard{}
	}

	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	t.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	t.pit = table.NewPit(t.finalizeInterest)
	t.strategies = InstantiateStrategies(t)
	return t
}

func (t *Thread) String() string {
	return t.name
}

// Faces returns the face table of the thread.
func (t *Thread) Faces() *face.Table {
	return t.faces
}

// Fib returns the FIB and strategy choice table of the thread.
func (t *Thread) Fib() *table.FibStrategyTree {
	return t.fib
}

// Pit returns the PIT of the thread.
func (t *Thread) Pit() table.PitTable {
	return t.pit
}

// RouterType returns the position of the router.
func (t *Thread) RouterType() defn.RouterType {
	return t.routerType
}

// Strategy returns the thread's instance of a strategy, or nil.
func (t *Thread) Strategy(name enc.Name) Strategy {
	return t.strategies[name.Hash()]
}

// Counters returns a snapshot of the thread counters.
func (t *Thread) Counters() defn.FWThreadCounters {
	c := t.counters
	c.NPitEntries = t.pit.PitSize()
	for _, strategy := range t.strategies {
		if ddos, ok := strategy.(*DDoS); ok {
			c.NAttackRecords = ddos.records.Len()
		}
	}
	return c
}

// TellToQuit tells the forwarding thread to quit
func (t *Thread) TellToQuit() {
	core.Log.Info(t, "Told to quit")
	close(t.shouldQuit)
}

// Run forwarding thread
func (t *Thread) Run() {
	pitUpdateTicker := time.NewTicker(table.CfgPitUpdateInterval(core.C))
	defer pitUpdateTicker.Stop()

	for {
		select {
		case pendingPacket := <-t.pendingInterests:
			t.HandlePacket(pendingPacket)
		case pendingPacket := <-t.pendingResponses:
			t.HandlePacket(pendingPacket)
		case task := <-t.pendingTasks:
			task()
		case <-pitUpdateTicker.C:
			t.UpdatePit()
		case <-t.shouldQuit:
			core.Log.Info(t, "Stopping thread")
			close(t.HasQuit)
			return
		}
	}
}

// post runs f on the thread goroutine. Used by the thread's LoopTimer.
func (t *Thread) post(f func()) {
	select {
	case t.pendingTasks <- f:
	case <-t.shouldQuit:
	}
}

// QueuePacket queues a packet for processing by this forwarding thread.
func (t *Thread) QueuePacket(packet *defn.Pkt) {
	queue := t.pendingResponses
	if packet.L3.Interest != nil {
		queue = t.pendingInterests
	}
	select {
	case queue <- packet:
	default:
		core.Log.Error(t, "Packet dropped due to full queue", "name", packet.Name)
	}
}

// HandlePacket processes a packet on the calling goroutine.
// Only call it from Run or when driving the thread with a manual timer.
func (t *Thread) HandlePacket(packet *defn.Pkt) {
	switch {
	case packet.L3.Interest != nil:
		t.processIncomingInterest(packet)
	case packet.L3.Data != nil:
		t.processIncomingData(packet)
	case packet.L3.Nack != nil:
		t.processIncomingNack(packet)
	default:
		core.Log.Warn(t, "Empty packet - DROP", "faceid", packet.IncomingFaceID)
	}
}

// UpdatePit expires the PIT entries that timed out.
func (t *Thread) UpdatePit() {
	t.pit.Update(t.timer.Now())
}

func (t *Thread) strategyFor(name enc.Name) Strategy {
	strategyName := t.fib.FindStrategy(name)
	if strategy, ok := t.strategies[strategyName.Hash()]; ok {
		return strategy
	}
	core.Log.Warn(t, "Unknown strategy, using default", "strategy", strategyName, "name", name)
	return t.strategies[defn.DEFAULT_STRATEGY.Hash()]
}

func (t *Thread) processIncomingInterest(packet *defn.Pkt) {
	interest := packet.L3.Interest
	if interest == nil {
		panic("processIncomingInterest called with non-Interest packet")
	}

	// Get incoming face
	incomingFace := t.faces.Get(packet.IncomingFaceID)
	if incomingFace == nil {
		core.Log.Error(t, "Interest has non-existent incoming face", "faceid", packet.IncomingFaceID, "name", packet.Name)
		return
	}

	if interest.HopLimitV != nil {
		core.Log.Trace(t, "HopLimit check", "name", packet.Name, "hoplimit", *interest.HopLimitV)
		if *interest.HopLimitV == 0 {
			return
		}
		*interest.HopLimitV -= 1
	}

	core.Log.Trace(t, "OnIncomingInterest", "name", packet.Name, "faceid", incomingFace.FaceID())

	// Check if violates /localhost
	if incomingFace.Scope() == defn.NonLocal && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOST) {
		core.Log.Warn(t, "Interest from non-local face violates /localhost scope", "name", packet.Name, "faceid", incomingFace.FaceID())
		return
	}

	t.counters.NInInterests++

	// Drop packet if no nonce is found
	if !interest.NonceV.IsSet() {
		core.Log.Debug(t, "Interest is missing Nonce", "name", packet.Name)
		return
	}

	// Check if any matching PIT entries (and if duplicate)
	pitEntry, isDuplicate := t.pit.InsertInterest(interest, incomingFace.FaceID())
	if isDuplicate {
		core.Log.Debug(t, "Interest is looping (PIT)", "name", packet.Name)
		if incomingFace.LinkType() == defn.PointToPoint {
			t.sendNackOnFace(incomingFace.FaceID(), interest, defn.NackHeader{Reason: defn.NackReasonDuplicate})
		}
		return
	}

	strategy := t.strategyFor(interest.Name())

	// Add in-record and extend the entry lifetime to the latest in-record
	now := t.timer.Now()
	inRecord, isAlreadyPending, _ := pitEntry.InsertInRecord(interest, incomingFace.FaceID(), now)
	if isAlreadyPending {
		core.Log.Trace(t, "Interest is already pending", "name", packet.Name)
	}
	if inRecord.ExpirationTime.After(pitEntry.ExpirationTime()) {
		table.UpdateExpirationTimer(pitEntry, inRecord.ExpirationTime)
	}

	// If NextHopFaceId set, forward to that face (if it exists) or drop
	if nextHop, ok := packet.NextHopFaceID.Get(); ok {
		if t.faces.Get(nextHop) != nil {
			core.Log.Trace(t, "NextHopFaceId is set for Interest", "name", packet.Name)
			t.processOutgoingInterest(packet, pitEntry, nextHop, incomingFace.FaceID())
		} else {
			core.Log.Info(t, "Non-existent face specified in NextHopFaceId for Interest",
				"name", packet.Name, "faceid", nextHop)
		}
		return
	}

	// Pass to strategy AfterReceiveInterest pipeline
	strategy.AfterReceiveInterest(packet, pitEntry, incomingFace.FaceID())
}

func (t *Thread) processOutgoingInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	nexthop uint64,
	inFace uint64,
) bool {
	interest := packet.L3.Interest
	if interest == nil {
		panic("processOutgoingInterest called with non-Interest packet")
	}

	core.Log.Trace(t, "OnOutgoingInterest", "name", packet.Name, "faceid", nexthop)

	// Get outgoing face
	outgoingFace := t.faces.Get(nexthop)
	if outgoingFace == nil {
		core.Log.Error(t, "Non-existent nexthop", "name", packet.Name, "faceid", nexthop)
		return false
	}
	if outgoingFace.FaceID() == inFace && outgoingFace.LinkType() != defn.AdHoc {
		core.Log.Debug(t, "Prevent send Interest back to incoming face", "name", packet.Name, "faceid", nexthop)
		return false
	}

	// Drop if HopLimit (if present) on Interest going to non-local face is 0. If so, drop
	if interest.HopLimitV != nil && int(*interest.HopLimitV) == 0 &&
		outgoingFace.Scope() == defn.NonLocal {
		core.Log.Debug(t, "Prevent send Interest with HopLimit=0 to non-local face", "name", packet.Name, "faceid", nexthop)
		return false
	}

	// Create or update out-record
	pitEntry.InsertOutRecord(interest, nexthop, t.timer.Now())

	t.counters.NOutInterests++

	// Send on outgoing face
	outgoingFace.SendPacket(face.OutPkt{
		Pkt:    packet,
		InFace: inFace,
	})
	return true
}

func (t *Thread) finalizeInterest(pitEntry table.PitEntry) {
	t.strategyFor(pitEntry.EncName()).BeforeExpirePendingInterest(pitEntry)

	// Counters
	if !pitEntry.Satisfied() {
		t.counters.NUnsatisfiedInterests += uint64(len(pitEntry.InRecords()))
	}
}

func (t *Thread) processIncomingData(packet *defn.Pkt) {
	data := packet.L3.Data
	if data == nil {
		panic("processIncomingData called with non-Data packet")
	}

	// Get incoming face
	incomingFace := t.faces.Get(packet.IncomingFaceID)
	if incomingFace == nil {
		core.Log.Error(t, "Non-existent incoming face for Data", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	t.counters.NInData++

	// Check if violates /localhost
	if incomingFace.Scope() == defn.NonLocal && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOST) {
		core.Log.Warn(t, "Data from non-local face violates /localhost scope", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	// Check for matching PIT entries
	pitEntries := t.pit.FindInterestPrefixMatchByData(data)
	if len(pitEntries) == 0 {
		// Unsolicited Data - nothing more to do
		core.Log.Debug(t, "Unsolicited data", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	for _, pitEntry := range pitEntries {
		strategy := t.strategyFor(pitEntry.EncName())
		core.Log.Trace(t, "Sending Data", "name", packet.Name, "strategy", strategy)
		strategy.AfterReceiveData(packet, pitEntry, packet.IncomingFaceID)

		// Mark PIT entry as satisfied and drop it
		pitEntry.SetSatisfied(true)
		pitEntry.ClearInRecords()
		pitEntry.ClearOutRecords()
		t.pit.RemoveInterest(pitEntry)
	}
}

func (t *Thread) processOutgoingData(
	packet *defn.Pkt,
	nexthop uint64,
	inFace uint64,
) {
	data := packet.L3.Data
	if data == nil {
		panic("processOutgoingData called with non-Data packet")
	}

	core.Log.Trace(t, "OnOutgoingData", "name", packet.Name, "faceid", nexthop)

	// Get outgoing face
	outgoingFace := t.faces.Get(nexthop)
	if outgoingFace == nil {
		core.Log.Error(t, "Non-existent nexthop for Data", "name", packet.Name, "faceid", nexthop)
		return
	}

	// Check if violates /localhost
	if outgoingFace.Scope() == defn.NonLocal && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOST) {
		core.Log.Warn(t, "Data cannot be sent to non-local face since violates /localhost scope", "name", packet.Name, "faceid", nexthop)
		return
	}

	t.counters.NOutData++
	t.counters.NSatisfiedInterests++

	// Send on outgoing face
	outgoingFace.SendPacket(face.OutPkt{
		Pkt:    packet,
		InFace: inFace,
	})
}

func (t *Thread) processIncomingNack(packet *defn.Pkt) {
	nack := packet.L3.Nack
	if nack == nil || nack.Interest == nil {
		panic("processIncomingNack called with non-Nack packet")
	}

	incomingFace := t.faces.Get(packet.IncomingFaceID)
	if incomingFace == nil {
		core.Log.Error(t, "Nack has non-existent incoming face", "faceid", packet.IncomingFaceID, "name", packet.Name)
		return
	}

	t.counters.NInNacks++
	core.Log.Trace(t, "OnIncomingNack", "name", packet.Name, "faceid", packet.IncomingFaceID, "header", nack.Header)

	pitEntry := t.pit.FindInterestExactMatch(nack.Interest)
	if pitEntry == nil {
		if !nack.Header.Reason.IsDdos() {
			core.Log.Debug(t, "Nack has no PIT entry - DROP", "name", packet.Name)
			return
		}

		// Flooding Nacks travel on their own. The strategy gets a
		// bookkeeping entry without downstreams, and discards it.
		pitEntry, _ = t.pit.InsertInterest(nack.Interest, packet.IncomingFaceID)
		table.UpdateExpirationTimer(pitEntry, t.timer.Now().Add(nack.Interest.Lifetime().GetOr(table.DefaultInterestLifetime)))
	} else if outRecord, ok := pitEntry.OutRecords()[packet.IncomingFaceID]; ok {
		outRecord.Nacked = true
		outRecord.NackReason = nack.Header.Reason
	} else if !nack.Header.Reason.IsDdos() {
		core.Log.Debug(t, "Nack from a face without out-record - DROP", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	t.strategyFor(pitEntry.EncName()).AfterReceiveNack(packet, pitEntry, packet.IncomingFaceID)
}

// processOutgoingNack sends a Nack to a downstream of the entry, echoing its latest Interest.
func (t *Thread) processOutgoingNack(pitEntry table.PitEntry, downstream uint64, header defn.NackHeader) bool {
	inRecord, ok := pitEntry.InRecords()[downstream]
	if !ok {
		core.Log.Debug(t, "No in-record for Nack", "name", pitEntry.EncName(), "faceid", downstream)
		return false
	}
	pitEntry.RemoveInRecord(downstream)
	return t.sendNackOnFace(downstream, inRecord.LatestInterest, header)
}

func (t *Thread) sendNackOnFace(faceID uint64, interest *defn.FwInterest, header defn.NackHeader) bool {
	outgoingFace := t.faces.Get(faceID)
	if outgoingFace == nil {
		core.Log.Error(t, "Non-existent face for Nack", "name", interest.Name(), "faceid", faceID)
		return false
	}

	core.Log.Trace(t, "OnOutgoingNack", "name", interest.Name(), "faceid", faceID, "header", header)
	t.counters.NOutNacks++
	outgoingFace.SendPacket(face.OutPkt{
		Pkt: defn.MakeNackPkt(interest, header),
	})
	return true
}
