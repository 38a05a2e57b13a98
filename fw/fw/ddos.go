package fw

import (
	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
)

// DdosState is the mitigation state of a DDoS strategy instance.
type DdosState int

const (
	DdosNormal DdosState = iota
	// Declared for the signaling protocol; no transition leads here
	DdosCongestion
	DdosAttack
)

func (s DdosState) String() string {
	switch s {
	case DdosNormal:
		return "NORMAL"
	case DdosCongestion:
		return "CONGESTION"
	case DdosAttack:
		return "ATTACK"
	default:
		return "UNKNOWN"
	}
}

// DDoS is a forwarding strategy that mitigates Interest flooding.
// Upstream routers report fake Interests with Nacks; the strategy pushes the
// blame further downstream and rate limits the blamed faces per prefix.
type DDoS struct {
	StrategyBase
	state   DdosState
	records *RecordStore
	buffer  *ddosBuffer
	cycle   *core.Task
}

func init() {
	strategyInit = append(strategyInit, func() Strategy { return &DDoS{} })
	StrategyVersions["ddos"] = []uint64{1}
}

func (s *DDoS) Instantiate(fwThread *Thread) {
	s.NewStrategyBase(fwThread, "ddos", 1)
	s.state = DdosNormal
	s.records = NewRecordStore()
	s.buffer = newDdosBuffer()
	s.cycle = core.NewTask(fwThread.timer, CfgCheckWindow(), s.applyRateAndForward)
}

// State returns the current mitigation state.
func (s *DDoS) State() DdosState {
	return s.state
}

// Records returns the attack record table.
func (s *DDoS) Records() *RecordStore {
	return s.records
}

// CyclePending returns whether a rate limiting cycle is scheduled.
func (s *DDoS) CyclePending() bool {
	return s.cycle.Pending()
}

// Stop cancels the rate limiting cycle. It may be called from any
// goroutine; a cycle already posted to the thread is dropped.
func (s *DDoS) Stop() {
	s.cycle.Cancel()
}

func (s *DDoS) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	if s.hasPendingOutRecords(pitEntry) {
		// not a new Interest, don't forward
		return
	}

	interest := packet.L3.Interest
	if s.state == DdosNormal {
		s.forwardBestRoute(inFace, interest, pitEntry)
		return
	}

	prefix := interest.Name().Prefix(-1)
	if s.records.Get(prefix) == nil {
		s.forwardLoadBalance(inFace, interest, pitEntry)
		return
	}

	core.Log.Trace(s, "Buffering Interest", "name", packet.Name, "faceid", inFace)
	s.buffer.enqueue(inFace, prefix, interest)
	core.Metrics.InterestsBuffered.WithLabelValues(s.thread.name).Inc()
}

func (s *DDoS) AfterReceiveNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	nack := packet.L3.Nack
	core.Log.Trace(s, "AfterReceiveNack", "name", packet.Name, "header", nack.Header)
	core.Metrics.NacksReceived.WithLabelValues(s.thread.name, nack.Header.Reason.String()).Inc()

	switch nack.Header.Reason {
	case defn.NackReasonFakeInterest:
		s.handleFakeInterestNack(nack, pitEntry, inFace)
	case defn.NackReasonValidInterestOverload:
		s.handleValidInterestNack(nack, pitEntry, inFace)
	case defn.NackReasonHintChangeNotice:
		s.handleHintChangeNack(nack, pitEntry, inFace)
	default:
		s.ProcessNack(pitEntry, inFace)
	}
}

func (s *DDoS) AfterReceiveData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	for _, faceID := range sortedKeys(pitEntry.InRecords()) {
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

func (s *DDoS) BeforeExpirePendingInterest(pitEntry table.PitEntry) {}

// discardSynthetic removes the bookkeeping entry created for a Nack
// that matched no pending Interest.
func (s *DDoS) discardSynthetic(pitEntry table.PitEntry) {
	if !pitEntry.HasInRecords() {
		s.RejectPendingInterest(pitEntry)
	}
}

func (s *DDoS) handleFakeInterestNack(nack *defn.FwNack, pitEntry table.PitEntry, inFace uint64) {
	header := nack.Header
	core.Log.Debug(s, "Fake Interest Nack", "name", nack.Interest.Name(), "faceid", inFace, "header", header)

	if s.state == DdosNormal {
		core.Log.Info(s, "Interest flooding detected, switching to ATTACK", "name", nack.Interest.Name())
		s.state = DdosAttack
		s.cycle.Schedule()
	}

	s.discardSynthetic(pitEntry)
	prefix := nack.Interest.Name().Prefix(header.PrefixLen)

	if record := s.records.Get(prefix); record != nil {
		record.FakeNackCounter++
		core.Log.Debug(s, "Repeated fake Interest Nack", "prefix", prefix, "count", record.FakeNackCounter)
		return
	}

	record := newAttackRecord(prefix, header.FakeTolerance)
	pb := computePushback(header.FakeInterestNames, s.thread.pit.FindInterestsByName)
	for face, weight := range pb.weights {
		record.PushbackWeight[face] = weight
		record.MarkedInterestPerFace[face] += uint64(len(pb.names[face]))
	}
	s.records.Insert(record)
	core.Metrics.AttackRecords.WithLabelValues(s.thread.name).Set(float64(s.records.Len()))
	core.Log.Info(s, "New attack record", "prefix", record.Prefix,
		"tolerance", record.FakeInterestTolerance, "faces", len(record.PushbackWeight))

	for _, face := range sortedKeys(pb.weights) {
		if pb.weights[face] <= 0 {
			continue
		}
		derived := pb.derivedNack(face, header)
		if s.SendDerivedNack(face, nack.Interest, derived) {
			core.Metrics.DerivedNacks.WithLabelValues(s.thread.name).Inc()
			core.Log.Trace(s, "Sent pushback Nack", "prefix", prefix, "faceid", face, "header", derived)
		}
	}

	for _, entry := range pb.entries {
		s.ForceDeletePit(entry)
	}
}

func (s *DDoS) handleValidInterestNack(nack *defn.FwNack, pitEntry table.PitEntry, inFace uint64) {
	s.discardSynthetic(pitEntry)

	prefix := nack.Interest.Name().Prefix(nack.Header.PrefixLen)
	if record := s.records.Get(prefix); record != nil {
		record.ValidNackCounter++
	}
	core.Log.Debug(s, "Valid Interest overload Nack", "prefix", prefix, "faceid", inFace)
}

func (s *DDoS) handleHintChangeNack(nack *defn.FwNack, pitEntry table.PitEntry, inFace uint64) {
	header := nack.Header
	routerType := s.thread.routerType
	if routerType == defn.ProducerGatewayRouter || routerType == defn.NormalRouter {
		s.SendNacks(pitEntry, header)
		return
	}

	// Edge routers only tell the consumers that were not blamed
	prefix := nack.Interest.Name().Prefix(header.PrefixLen)
	record := s.records.Get(prefix)
	if record == nil {
		s.SendNacks(pitEntry, header)
		return
	}
	for _, downstream := range sortedKeys(pitEntry.InRecords()) {
		if record.MarkedInterestPerFace[downstream] > 0 {
			continue
		}
		s.SendNack(pitEntry, downstream, header)
	}
}
