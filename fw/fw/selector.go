package fw

import (
	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
)

// forwardBestRoute sends the Interest to the first eligible nexthop in FIB
// order, or rejects the entry if there is none.
func (s *StrategyBase) forwardBestRoute(inFace uint64, interest *defn.FwInterest, pitEntry table.PitEntry) {
	if s.hasPendingOutRecords(pitEntry) {
		// not a new Interest, don't forward
		return
	}

	for _, nh := range s.LookupFib(pitEntry) {
		if s.canForwardToNextHop(inFace, interest, pitEntry, nh.Nexthop) {
			core.Log.Trace(s, "Forwarding Interest", "name", interest.Name(), "faceid", nh.Nexthop)
			s.SendInterest(defn.MakeInterestPkt(interest), pitEntry, nh.Nexthop, inFace)
			return
		}
	}

	core.Log.Debug(s, "No usable nexthop for Interest - REJECT", "name", interest.Name())
	s.RejectPendingInterest(pitEntry)
}

// forwardLoadBalance sends the Interest to a nexthop drawn uniformly among
// the eligible ones, or rejects the entry if there is none.
func (s *StrategyBase) forwardLoadBalance(inFace uint64, interest *defn.FwInterest, pitEntry table.PitEntry) {
	nexthops := s.LookupFib(pitEntry)

	eligible := false
	for _, nh := range nexthops {
		if s.canForwardToNextHop(inFace, interest, pitEntry, nh.Nexthop) {
			eligible = true
			break
		}
	}
	if !eligible {
		core.Log.Debug(s, "No usable nexthop for Interest - REJECT", "name", interest.Name())
		s.RejectPendingInterest(pitEntry)
		return
	}

	// Draw from the full list until an eligible hop comes up
	var selected *table.FibNextHopEntry
	for {
		selected = nexthops[s.thread.rng.IntN(len(nexthops))]
		if s.canForwardToNextHop(inFace, interest, pitEntry, selected.Nexthop) {
			break
		}
	}

	core.Log.Trace(s, "Forwarding Interest", "name", interest.Name(), "faceid", selected.Nexthop)
	s.SendInterest(defn.MakeInterestPkt(interest), pitEntry, selected.Nexthop, inFace)
}
