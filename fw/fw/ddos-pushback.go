package fw

import (
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// pushback is the blame of each downstream face for a list of implicated names.
type pushback struct {
	// Face weights, summing to at most one
	weights map[uint64]float64
	// Implicated names per face, in Nack order
	names map[uint64][]enc.Name
	// Resolved PIT entries, to be removed once the Nacks are out
	entries []table.PitEntry
}

// computePushback splits the blame of a Nack over the downstream faces.
// Each implicated name weighs 1/len(names), shared evenly by the faces that
// sent it, whatever the selectors of their Interests. Names without a PIT
// entry keep their share unassigned.
func computePushback(names []enc.Name, lookup func(enc.Name) []table.PitEntry) pushback {
	pb := pushback{
		weights: make(map[uint64]float64),
		names:   make(map[uint64][]enc.Name),
	}
	if len(names) == 0 {
		return pb
	}

	denominator := float64(len(names))
	for _, name := range names {
		entries := lookup(name)
		faces := make(map[uint64]struct{})
		for _, entry := range entries {
			for face := range entry.InRecords() {
				faces[face] = struct{}{}
			}
			pb.entries = append(pb.entries, entry)
		}
		if len(faces) == 0 {
			continue
		}

		share := 1 / (denominator * float64(len(faces)))
		for _, face := range sortedKeys(faces) {
			pb.weights[face] += share
			pb.names[face] = append(pb.names[face], name)
		}
	}
	return pb
}

// derivedNack is the Nack a face receives for its share of the blame.
func (pb pushback) derivedNack(face uint64, header defn.NackHeader) defn.NackHeader {
	return defn.NackHeader{
		Reason:            header.Reason,
		PrefixLen:         header.PrefixLen,
		FakeTolerance:     derivedTolerance(header.FakeTolerance, pb.weights[face]),
		FakeInterestNames: pb.names[face],
	}
}
