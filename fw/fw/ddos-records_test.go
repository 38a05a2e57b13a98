package fw

import (
	"testing"
	"time"

	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStore(t *testing.T) {
	rs := NewRecordStore()
	assert.Equal(t, 0, rs.Len())
	assert.Nil(t, rs.Get(parseName("/a")))

	a := newAttackRecord(parseName("/a"), 10)
	b := newAttackRecord(parseName("/b/c"), 20)
	rs.Insert(b)
	rs.Insert(a)
	assert.Equal(t, 2, rs.Len())
	assert.Same(t, a, rs.Get(parseName("/a")))
	assert.Same(t, b, rs.Get(parseName("/b/c")))
	assert.Nil(t, rs.Get(parseName("/b")))

	// Same prefix replaces
	a2 := newAttackRecord(parseName("/a"), 30)
	rs.Insert(a2)
	assert.Equal(t, 2, rs.Len())
	assert.Same(t, a2, rs.Get(parseName("/a")))

	all := rs.All()
	require.Len(t, all, 2)
	assert.Same(t, a2, all[0])
	assert.Same(t, b, all[1])
}

func TestNewAttackRecord(t *testing.T) {
	prefix := parseName("/a/b")
	record := newAttackRecord(prefix, 42)
	assert.True(t, record.Prefix.Equal(prefix))
	assert.Equal(t, RecordFake, record.Type)
	assert.Equal(t, uint64(1), record.FakeNackCounter)
	assert.Equal(t, uint64(0), record.ValidNackCounter)
	assert.False(t, record.RateLimiting)
	assert.Equal(t, uint64(42), record.FakeInterestTolerance)
	assert.Equal(t, 0, record.Allowed(1))
	assert.Zero(t, record.Weight(1))
	assert.Zero(t, record.TotalWeight())

	// The record does not share the caller's name
	prefix[1] = enc.NewStringComponent(enc.TypeGenericNameComponent, "z")
	assert.True(t, record.Prefix.Equal(parseName("/a/b")))

	assert.Equal(t, "fake", RecordFake.String())
	assert.Equal(t, "valid", RecordValid.String())
}

func TestDerivedTolerance(t *testing.T) {
	assert.Equal(t, uint64(50), derivedTolerance(100, 0.5))
	assert.Equal(t, uint64(33), derivedTolerance(100, 1.0/3))
	assert.Equal(t, uint64(0), derivedTolerance(1, 0.5))
	assert.Equal(t, uint64(0), derivedTolerance(100, 0))
	assert.Equal(t, uint64(7), derivedTolerance(7, 1))

	// Ten shares of 1/10 add up to slightly less than one
	weight := 0.0
	for range 10 {
		weight += 1.0 / 10
	}
	require.Less(t, weight, 1.0)
	assert.Equal(t, uint64(100), derivedTolerance(100, weight))
	assert.Equal(t, uint64(99), derivedTolerance(100, 0.99))
}

// pitWith builds a PIT holding one entry per name, with in-records from the given faces.
func pitWith(t *testing.T, entries map[string][]uint64) *table.PitHashTable {
	pit := table.NewPit(func(table.PitEntry) {})
	now := time.Unix(0, 0)
	nonce := uint32(0)
	for name, faces := range entries {
		for _, face := range faces {
			nonce++
			interest := &defn.FwInterest{NameV: parseName(name), NonceV: optional.Some(nonce)}
			entry, duplicate := pit.InsertInterest(interest, face)
			require.False(t, duplicate)
			entry.InsertInRecord(interest, face, now)
		}
	}
	return pit
}


func TestComputePushback(t *testing.T) {
	pit := pitWith(t, map[string][]uint64{
		"/a/1": {1, 2},
		"/a/2": {3},
	})
	names := []enc.Name{parseName("/a/1"), parseName("/a/2"), parseName("/a/gone")}

	pb := computePushback(names, pit.FindInterestsByName)
	assert.InDelta(t, 1.0/6, pb.weights[1], weightEpsilon)
	assert.InDelta(t, 1.0/6, pb.weights[2], weightEpsilon)
	assert.InDelta(t, 1.0/3, pb.weights[3], weightEpsilon)
	assert.Len(t, pb.entries, 2)

	total := 0.0
	for _, w := range pb.weights {
		total += w
	}
	assert.LessOrEqual(t, total, 1+weightEpsilon)

	assert.Equal(t, []enc.Name{parseName("/a/1")}, pb.names[1])
	assert.Equal(t, []enc.Name{parseName("/a/2")}, pb.names[3])

	header := defn.NackHeader{
		Reason:            defn.NackReasonFakeInterest,
		PrefixLen:         1,
		FakeTolerance:     61,
		FakeInterestNames: names,
	}
	derived := pb.derivedNack(3, header)
	assert.Equal(t, defn.NackReasonFakeInterest, derived.Reason)
	assert.Equal(t, 1, derived.PrefixLen)
	assert.Equal(t, uint64(20), derived.FakeTolerance)
	assert.Equal(t, []enc.Name{parseName("/a/2")}, derived.FakeInterestNames)

	// The header is not modified
	assert.Len(t, header.FakeInterestNames, 3)
}

func TestComputePushbackEmpty(t *testing.T) {
	pit := pitWith(t, nil)
	pb := computePushback(nil, pit.FindInterestsByName)
	assert.Empty(t, pb.weights)
	assert.Empty(t, pb.entries)

	pb = computePushback([]enc.Name{parseName("/a/1")}, pit.FindInterestsByName)
	assert.Empty(t, pb.weights)
	assert.Empty(t, pb.entries)
}

func TestComputePushbackSelectors(t *testing.T) {
	pit := table.NewPit(func(table.PitEntry) {})
	now := time.Unix(0, 0)
	for face, fresh := range map[uint64]bool{1: false, 2: true} {
		interest := &defn.FwInterest{
			NameV:        parseName("/a/1"),
			NonceV:       optional.Some(uint32(face)),
			MustBeFreshV: fresh,
		}
		entry, _ := pit.InsertInterest(interest, face)
		entry.InsertInRecord(interest, face, now)
	}
	require.Equal(t, 2, pit.PitSize())

	pb := computePushback([]enc.Name{parseName("/a/1")}, pit.FindInterestsByName)
	assert.InDelta(t, 0.5, pb.weights[1], weightEpsilon)
	assert.InDelta(t, 0.5, pb.weights[2], weightEpsilon)
	assert.Len(t, pb.entries, 2)
	assert.Equal(t, []enc.Name{parseName("/a/1")}, pb.names[2])
}

func TestComputePushbackFullBlame(t *testing.T) {
	pit := pitWith(t, map[string][]uint64{
		"/a/1": {4},
		"/a/2": {4},
		"/a/3": {4},
	})
	names := []enc.Name{parseName("/a/1"), parseName("/a/2"), parseName("/a/3")}

	pb := computePushback(names, pit.FindInterestsByName)
	assert.InDelta(t, 1.0, pb.weights[4], weightEpsilon)
	assert.Equal(t, names, pb.names[4])
}

func bufferTestInterest(name string) *defn.FwInterest {
	return &defn.FwInterest{NameV: parseName(name)}
}

func TestDdosBuffer(t *testing.T) {
	b := newDdosBuffer()
	a := parseName("/a")
	c := parseName("/c")

	b.enqueue(2, a, bufferTestInterest("/a/1"))
	b.enqueue(1, c, bufferTestInterest("/c/1"))
	b.enqueue(2, c, bufferTestInterest("/c/2"))
	b.enqueue(2, a, bufferTestInterest("/a/2"))

	require.Len(t, b.prefixSet, 2)
	assert.True(t, b.prefixSet[0].Equal(a))
	assert.True(t, b.prefixSet[1].Equal(c))
	assert.Equal(t, 4, b.size())

	assert.Equal(t, []uint64{2}, b.facesOf(a))
	assert.Equal(t, []uint64{1, 2}, b.facesOf(c))
	assert.Equal(t, []enc.Name{parseName("/a/1"), parseName("/a/2")}, namesOf(b.queued(2, a)))
	assert.Empty(t, b.queued(1, a))

	b.lastNackCountSeen[prefixKey(a)] = 3
	b.clear()
	assert.Empty(t, b.prefixSet)
	assert.Equal(t, 0, b.size())
	assert.Empty(t, b.facesOf(a))
	// Snapshots survive the cycle
	assert.Equal(t, uint64(3), b.lastNackCountSeen[prefixKey(a)])

	b.enqueue(1, a, bufferTestInterest("/a/3"))
	require.Len(t, b.prefixSet, 1)
}
