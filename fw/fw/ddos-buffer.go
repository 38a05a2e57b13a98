package fw

import (
	"github.com/named-data/ndnd-ddos/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// bufferedInterest is an Interest held until the next rate limiting cycle.
type bufferedInterest struct {
	prefix   enc.Name
	interest *defn.FwInterest
}

// ddosBuffer holds what a rate limiting cycle works on.
// prefixSet and faceInterestQueue are emptied by every cycle;
// lastNackCountSeen persists across cycles.
type ddosBuffer struct {
	// Prefixes with buffered Interests, in order of first activation
	prefixSet []enc.Name
	active    map[string]struct{}
	// Buffered Interests per incoming face, in arrival order
	faceInterestQueue map[uint64][]bufferedInterest
	// FakeNackCounter of each record when its quota was last applied
	lastNackCountSeen map[string]uint64
}

func newDdosBuffer() *ddosBuffer {
	return &ddosBuffer{
		active:            make(map[string]struct{}),
		faceInterestQueue: make(map[uint64][]bufferedInterest),
		lastNackCountSeen: make(map[string]uint64),
	}
}

func prefixKey(prefix enc.Name) string {
	return prefix.String()
}

// enqueue holds an Interest under its incoming face and marks the prefix active.
func (b *ddosBuffer) enqueue(face uint64, prefix enc.Name, interest *defn.FwInterest) {
	key := prefixKey(prefix)
	if _, ok := b.active[key]; !ok {
		b.active[key] = struct{}{}
		b.prefixSet = append(b.prefixSet, prefix)
	}
	b.faceInterestQueue[face] = append(b.faceInterestQueue[face], bufferedInterest{
		prefix:   prefix,
		interest: interest,
	})
}

// facesOf returns, in ascending order, the faces holding Interests under prefix.
func (b *ddosBuffer) facesOf(prefix enc.Name) []uint64 {
	faces := make([]uint64, 0)
	for _, face := range sortedKeys(b.faceInterestQueue) {
		for _, bi := range b.faceInterestQueue[face] {
			if bi.prefix.Equal(prefix) {
				faces = append(faces, face)
				break
			}
		}
	}
	return faces
}

// queued returns the Interests buffered on a face under prefix, in arrival order.
func (b *ddosBuffer) queued(face uint64, prefix enc.Name) []*defn.FwInterest {
	interests := make([]*defn.FwInterest, 0)
	for _, bi := range b.faceInterestQueue[face] {
		if bi.prefix.Equal(prefix) {
			interests = append(interests, bi.interest)
		}
	}
	return interests
}

// size returns the number of buffered Interests.
func (b *ddosBuffer) size() int {
	n := 0
	for _, queue := range b.faceInterestQueue {
		n += len(queue)
	}
	return n
}

// clear empties the per-cycle state.
func (b *ddosBuffer) clear() {
	b.prefixSet = nil
	clear(b.active)
	clear(b.faceInterestQueue)
}
