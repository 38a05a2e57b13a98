package fw

import (
	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
)

// LoadBalance is a forwarding strategy that spreads Interests
// uniformly over the usable nexthops.
type LoadBalance struct {
	StrategyBase
}

func init() {
	strategyInit = append(strategyInit, func() Strategy { return &LoadBalance{} })
	StrategyVersions["load-balance"] = []uint64{1}
}

func (s *LoadBalance) Instantiate(fwThread *Thread) {
	s.NewStrategyBase(fwThread, "load-balance", 1)
}

func (s *LoadBalance) AfterReceiveData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	for _, faceID := range sortedKeys(pitEntry.InRecords()) {
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

func (s *LoadBalance) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	if s.hasPendingOutRecords(pitEntry) {
		core.Log.Debug(s, "Interest already forwarded - DROP", "name", packet.Name)
		return
	}
	s.forwardLoadBalance(inFace, packet.L3.Interest, pitEntry)
}

func (s *LoadBalance) AfterReceiveNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	s.ProcessNack(pitEntry, inFace)
}

func (s *LoadBalance) BeforeExpirePendingInterest(pitEntry table.PitEntry) {}
