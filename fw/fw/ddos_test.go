package fw

import (
	"fmt"
	"testing"

	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/journal"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNack(tolerance uint64, names ...string) defn.NackHeader {
	header := defn.NackHeader{
		Reason:        defn.NackReasonFakeInterest,
		PrefixLen:     1,
		FakeTolerance: tolerance,
	}
	for _, name := range names {
		header.FakeInterestNames = append(header.FakeInterestNames, parseName(name))
	}
	return header
}

// newAttackedRouter is a router running the ddos strategy with downstream
// faces 1 and 2 and upstream face 3. /a/1 came from face 1 and /a/2 from
// face 2, then the upstream reported both as fake.
func newAttackedRouter(t *testing.T, j journal.Journal) *testRouter {
	r := newTestRouter(t, defn.NormalRouter, j)
	r.addFaces(3)
	r.route("/a", 3)
	r.useStrategy("/", "ddos")

	r.interest(1, "/a/1")
	r.interest(2, "/a/2")
	require.Len(t, interestsOn(r.take(), 3), 2)

	r.nack(3, "/a/1", fakeNack(100, "/a/1", "/a/2"))
	return r
}

// sendBatch sends count new Interests under /a on a face.
func (r *testRouter) sendBatch(faceID uint64, tag string, count int) {
	for i := range count {
		r.interest(faceID, fmt.Sprintf("/a/%s-%d", tag, i))
	}
}

func TestDdosNormalUsesBestRoute(t *testing.T) {
	r := newTestRouter(t, defn.NormalRouter, nil)
	r.addFaces(4)
	r.route("/a", 3, 4)
	r.useStrategy("/", "ddos")

	for i := range 5 {
		r.interest(1, fmt.Sprintf("/a/%d", i))
	}
	assert.Len(t, interestsOn(r.take(), 3), 5)
	assert.Equal(t, DdosNormal, r.ddos().State())
	assert.False(t, r.ddos().CyclePending())
}

func TestDdosFirstFakeNack(t *testing.T) {
	r := newAttackedRouter(t, nil)
	s := r.ddos()

	assert.Equal(t, DdosAttack, s.State())
	assert.True(t, s.CyclePending())
	assert.Equal(t, 1, r.timer.Pending())

	record := s.Records().Get(parseName("/a"))
	require.NotNil(t, record)
	assert.Equal(t, RecordFake, record.Type)
	assert.Equal(t, uint64(1), record.FakeNackCounter)
	assert.Equal(t, uint64(0), record.ValidNackCounter)
	assert.False(t, record.RateLimiting)
	assert.Equal(t, uint64(100), record.FakeInterestTolerance)
	assert.Equal(t, map[uint64]float64{1: 0.5, 2: 0.5}, record.PushbackWeight)
	assert.Equal(t, map[uint64]uint64{1: 1, 2: 1}, record.MarkedInterestPerFace)

	nacks := nacksOf(r.take())
	require.Len(t, nacks, 2)
	for i, expected := range []struct {
		face uint64
		name string
	}{{1, "/a/1"}, {2, "/a/2"}} {
		nack := nacks[i].pkt.L3.Nack
		assert.Equal(t, expected.face, nacks[i].face)
		assert.Equal(t, defn.NackReasonFakeInterest, nack.Header.Reason)
		assert.Equal(t, 1, nack.Header.PrefixLen)
		assert.Equal(t, uint64(50), nack.Header.FakeTolerance)
		assert.Equal(t, []enc.Name{parseName(expected.name)}, nack.Header.FakeInterestNames)
		// The derived Nack keeps the Interest of the upstream Nack
		assert.True(t, nack.Interest.Name().Equal(parseName("/a/1")))
	}

	// Implicated entries are gone
	assert.Equal(t, 0, r.thread.Pit().PitSize())
	assert.Equal(t, 1, r.thread.Counters().NAttackRecords)
}

func TestDdosFakeNackWithoutPitEntry(t *testing.T) {
	r := newTestRouter(t, defn.EdgeRouter, nil)
	r.addFaces(3)
	r.route("/a", 3)
	r.useStrategy("/", "ddos")

	r.nack(3, "/a/unknown", fakeNack(40, "/a/unknown"))
	s := r.ddos()
	assert.Equal(t, DdosAttack, s.State())
	assert.Equal(t, 0, r.thread.Pit().PitSize())
	assert.Empty(t, r.take())

	record := s.Records().Get(parseName("/a"))
	require.NotNil(t, record)
	assert.Empty(t, record.PushbackWeight)
}

func TestDdosRepeatedFakeNack(t *testing.T) {
	r := newAttackedRouter(t, nil)
	s := r.ddos()
	r.take()

	r.nack(3, "/a/9", fakeNack(10, "/a/9"))
	record := s.Records().Get(parseName("/a"))
	assert.Equal(t, uint64(2), record.FakeNackCounter)
	assert.Equal(t, uint64(100), record.FakeInterestTolerance)
	assert.Equal(t, map[uint64]float64{1: 0.5, 2: 0.5}, record.PushbackWeight)
	assert.Empty(t, r.take())
	assert.Equal(t, 1, s.Records().Len())

	// Still one cycle
	assert.Equal(t, 1, r.timer.Pending())
}

func TestDdosValidInterestNack(t *testing.T) {
	r := newAttackedRouter(t, nil)
	s := r.ddos()
	r.take()

	r.nack(3, "/a/7", defn.NackHeader{Reason: defn.NackReasonValidInterestOverload, PrefixLen: 1})
	assert.Equal(t, uint64(1), s.Records().Get(parseName("/a")).ValidNackCounter)
	assert.Equal(t, 0, r.thread.Pit().PitSize())
	assert.Empty(t, r.take())

	// No record for /v
	r.nack(3, "/v/7", defn.NackHeader{Reason: defn.NackReasonValidInterestOverload, PrefixLen: 1})
	assert.Nil(t, s.Records().Get(parseName("/v")))
	assert.Equal(t, 0, r.thread.Pit().PitSize())
}

func TestDdosAttackForwardsUnrecordedPrefix(t *testing.T) {
	r := newAttackedRouter(t, nil)
	r.route("/b", 3)
	r.take()

	r.interest(1, "/b/1")
	assert.Equal(t, []enc.Name{parseName("/b/1")}, interestsOn(r.take(), 3))
}

func TestDdosBuffersRecordedPrefix(t *testing.T) {
	r := newAttackedRouter(t, nil)
	s := r.ddos()
	r.take()

	r.sendBatch(1, "x", 3)
	r.sendBatch(2, "y", 2)
	assert.Empty(t, r.take())
	assert.Equal(t, 5, s.buffer.size())
	require.Len(t, s.buffer.prefixSet, 1)
	assert.True(t, s.buffer.prefixSet[0].Equal(parseName("/a")))
	assert.Equal(t, []enc.Name{parseName("/a/x-0"), parseName("/a/x-1"), parseName("/a/x-2")},
		namesOf(s.buffer.queued(1, parseName("/a"))))
}

func namesOf(interests []*defn.FwInterest) []enc.Name {
	names := make([]enc.Name, 0, len(interests))
	for _, interest := range interests {
		names = append(names, interest.Name())
	}
	return names
}

// freshInterest sends an Interest with MustBeFresh set.
func (r *testRouter) freshInterest(faceID uint64, name string) *defn.FwInterest {
	interest := r.makeInterest(name)
	interest.MustBeFreshV = true
	packet := defn.MakeInterestPkt(interest)
	packet.IncomingFaceID = faceID
	r.thread.HandlePacket(packet)
	return interest
}

func TestDdosReleaseWithSelectors(t *testing.T) {
	r := newAttackedRouter(t, nil)
	r.take()

	for i := range 3 {
		r.freshInterest(1, fmt.Sprintf("/a/f-%d", i))
	}
	assert.Empty(t, r.take())
	assert.Equal(t, 3, r.thread.Pit().PitSize())

	r.timer.MoveForward(CfgCheckWindow())
	assert.Equal(t, []enc.Name{parseName("/a/f-0"), parseName("/a/f-1"), parseName("/a/f-2")},
		interestsOn(r.take(), 3))
}

func TestDdosPushbackWithSelectors(t *testing.T) {
	r := newTestRouter(t, defn.NormalRouter, nil)
	r.addFaces(3)
	r.route("/a", 3)
	r.useStrategy("/", "ddos")

	first := r.freshInterest(1, "/a/1")
	r.freshInterest(2, "/a/2")
	require.Len(t, interestsOn(r.take(), 3), 2)

	// The upstream echoes the Interest it Nacks, selectors included
	packet := defn.MakeNackPkt(first.Clone(), fakeNack(100, "/a/1", "/a/2"))
	packet.IncomingFaceID = 3
	r.thread.HandlePacket(packet)

	record := r.ddos().Records().Get(parseName("/a"))
	require.NotNil(t, record)
	assert.Equal(t, map[uint64]float64{1: 0.5, 2: 0.5}, record.PushbackWeight)

	nacks := nacksOf(r.take())
	require.Len(t, nacks, 2)
	assert.Equal(t, uint64(50), nacks[0].pkt.L3.Nack.Header.FakeTolerance)
	assert.Equal(t, 0, r.thread.Pit().PitSize())
}

func TestDdosFullBlameKeepsTolerance(t *testing.T) {
	r := newTestRouter(t, defn.NormalRouter, nil)
	r.addFaces(3)
	r.route("/a", 3)
	r.useStrategy("/", "ddos")

	names := make([]string, 0, 10)
	for i := range 10 {
		name := fmt.Sprintf("/a/%d", i)
		r.interest(1, name)
		names = append(names, name)
	}
	r.take()

	r.nack(3, "/a/0", fakeNack(100, names...))
	nacks := nacksOf(r.take())
	require.Len(t, nacks, 1)
	assert.Equal(t, uint64(1), nacks[0].face)
	assert.Equal(t, uint64(100), nacks[0].pkt.L3.Nack.Header.FakeTolerance)

	r.sendBatch(1, "x", 120)
	r.timer.MoveForward(CfgCheckWindow())
	assert.Len(t, interestsOn(r.take(), 3), 100)
	assert.Equal(t, 100, r.ddos().Records().Get(parseName("/a")).Allowed(1))
}

func TestDdosAimd(t *testing.T) {
	r := newAttackedRouter(t, nil)
	s := r.ddos()
	record := s.Records().Get(parseName("/a"))
	r.take()

	// Cycle 1: first limitation
	r.sendBatch(1, "c1", 70)
	r.timer.MoveForward(CfgCheckWindow())
	assert.Len(t, interestsOn(r.take(), 3), 50)
	assert.Equal(t, 50, record.Allowed(1))
	assert.True(t, record.RateLimiting)

	// Cycle 2: no new Nack
	r.sendBatch(1, "c2", 70)
	r.timer.MoveForward(CfgCheckWindow())
	assert.Len(t, interestsOn(r.take(), 3), 50+CfgAdditiveIncrease())
	assert.Equal(t, 50+CfgAdditiveIncrease(), record.Allowed(1))

	// Cycle 3: a new Nack arrived
	r.nack(3, "/a/c2-0", fakeNack(100, "/a/c2-0"))
	r.sendBatch(1, "c3", 70)
	r.timer.MoveForward(CfgCheckWindow())
	expected := int(float64(50+CfgAdditiveIncrease()) / CfgMultiplicativeDecrease())
	assert.Len(t, interestsOn(r.take(), 3), expected)
	assert.Equal(t, expected, record.Allowed(1))
}

func TestDdosReleaseOrder(t *testing.T) {
	r := newAttackedRouter(t, nil)
	r.take()

	r.sendBatch(1, "o", 55)
	r.timer.MoveForward(CfgCheckWindow())
	released := interestsOn(r.take(), 3)
	require.Len(t, released, 50)
	for i, name := range released {
		assert.True(t, name.Equal(parseName(fmt.Sprintf("/a/o-%d", i))))
	}
}

func TestDdosReleaseSkipsResolved(t *testing.T) {
	r := newAttackedRouter(t, nil)
	r.take()

	r.sendBatch(1, "s", 3)
	// Satisfied before the cycle
	r.data(3, "/a/s-1")
	r.take()

	r.timer.MoveForward(CfgCheckWindow())
	assert.Equal(t, []enc.Name{parseName("/a/s-0"), parseName("/a/s-2")}, interestsOn(r.take(), 3))
}

func TestDdosUnblamedFaceDropped(t *testing.T) {
	r := newAttackedRouter(t, nil)
	r.addFaces(1) // face 4
	s := r.ddos()
	r.take()

	r.sendBatch(4, "u", 5)
	r.timer.MoveForward(CfgCheckWindow())
	assert.Empty(t, interestsOn(r.take(), 3))
	assert.NotContains(t, s.Records().Get(parseName("/a")).LastAllowedInterestCount, uint64(4))
}

func TestDdosCycleDrainsBuffer(t *testing.T) {
	r := newAttackedRouter(t, nil)
	s := r.ddos()
	r.take()

	r.sendBatch(1, "d", 10)
	r.sendBatch(2, "e", 10)
	r.timer.MoveForward(CfgCheckWindow())

	assert.Empty(t, s.buffer.prefixSet)
	assert.Empty(t, s.buffer.faceInterestQueue)
	assert.Equal(t, 0, s.buffer.size())
	assert.True(t, s.CyclePending())
	assert.Equal(t, 1, r.timer.Pending())

	// Idle cycles keep exactly one run scheduled
	r.timer.MoveForward(3 * CfgCheckWindow())
	assert.Equal(t, 1, r.timer.Pending())

	s.Stop()
	assert.False(t, s.CyclePending())
	assert.Equal(t, 0, r.timer.Pending())
}

func TestDdosWeightSum(t *testing.T) {
	r := newTestRouter(t, defn.NormalRouter, nil)
	r.addFaces(4)
	r.route("/a", 4)
	r.useStrategy("/", "ddos")

	r.interest(1, "/a/1")
	r.interest(2, "/a/1")
	r.interest(3, "/a/2")
	r.interest(1, "/a/3")
	r.take()

	r.nack(4, "/a/1", fakeNack(90, "/a/1", "/a/2", "/a/3", "/a/missing"))
	record := r.ddos().Records().Get(parseName("/a"))
	require.NotNil(t, record)

	assert.InDelta(t, 1.0/8+1.0/4, record.Weight(1), weightEpsilon)
	assert.InDelta(t, 1.0/8, record.Weight(2), weightEpsilon)
	assert.InDelta(t, 1.0/4, record.Weight(3), weightEpsilon)
	assert.LessOrEqual(t, record.TotalWeight(), 1+weightEpsilon)
	assert.Equal(t, map[uint64]uint64{1: 2, 2: 1, 3: 1}, record.MarkedInterestPerFace)

	tolerances := make(map[uint64]uint64)
	for _, nack := range nacksOf(r.take()) {
		tolerances[nack.face] = nack.pkt.L3.Nack.Header.FakeTolerance
	}
	assert.Equal(t, map[uint64]uint64{1: 33, 2: 11, 3: 22}, tolerances)
}

func TestDdosHintChangeAtEdge(t *testing.T) {
	r := newTestRouter(t, defn.EdgeRouter, nil)
	r.addFaces(9)
	r.route("/a", 1)
	r.useStrategy("/", "ddos")

	r.interest(9, "/a/f1")
	r.interest(9, "/a/f2")
	r.interest(9, "/a/f3")
	r.nack(1, "/a/f1", fakeNack(30, "/a/f1", "/a/f2", "/a/f3"))
	record := r.ddos().Records().Get(parseName("/a"))
	require.NotNil(t, record)
	require.Equal(t, uint64(3), record.MarkedInterestPerFace[9])
	require.Zero(t, record.MarkedInterestPerFace[7])

	r.interest(7, "/a/h")
	r.interest(9, "/a/h")
	r.take()

	r.nack(1, "/a/h", defn.NackHeader{Reason: defn.NackReasonHintChangeNotice, PrefixLen: 1})
	nacks := nacksOf(r.take())
	require.Len(t, nacks, 1)
	assert.Equal(t, uint64(7), nacks[0].face)
	assert.Equal(t, defn.NackReasonHintChangeNotice, nacks[0].pkt.L3.Nack.Header.Reason)
}

func TestDdosHintChangeEdgeWithoutRecord(t *testing.T) {
	r := newTestRouter(t, defn.EdgeRouter, nil)
	r.addFaces(3)
	r.route("/a", 3)
	r.useStrategy("/", "ddos")

	r.interest(1, "/a/h")
	r.interest(2, "/a/h")
	r.take()

	r.nack(3, "/a/h", defn.NackHeader{Reason: defn.NackReasonHintChangeNotice, PrefixLen: 1})
	nacks := nacksOf(r.take())
	require.Len(t, nacks, 2)
	assert.Equal(t, uint64(1), nacks[0].face)
	assert.Equal(t, uint64(2), nacks[1].face)
}

func TestDdosHintChangeBroadcast(t *testing.T) {
	for _, routerType := range []defn.RouterType{defn.NormalRouter, defn.ProducerGatewayRouter} {
		t.Run(routerType.String(), func(t *testing.T) {
			r := newTestRouter(t, routerType, nil)
			r.addFaces(3)
			r.route("/a", 3)
			r.useStrategy("/", "ddos")

			r.interest(1, "/a/1")
			r.nack(3, "/a/1", fakeNack(10, "/a/1"))
			r.interest(1, "/a/h")
			r.interest(2, "/a/h")
			r.take()

			r.nack(3, "/a/h", defn.NackHeader{Reason: defn.NackReasonHintChangeNotice, PrefixLen: 1})
			nacks := nacksOf(r.take())
			require.Len(t, nacks, 2)
			assert.Equal(t, uint64(1), nacks[0].face)
			assert.Equal(t, uint64(2), nacks[1].face)
		})
	}
}

func TestDdosStandardNack(t *testing.T) {
	r := newTestRouter(t, defn.NormalRouter, nil)
	r.addFaces(2)
	r.route("/a", 2)
	r.useStrategy("/", "ddos")

	r.interest(1, "/a/1")
	r.take()
	r.nack(2, "/a/1", defn.NackHeader{Reason: defn.NackReasonNoRoute})

	nacks := nacksOf(r.take())
	require.Len(t, nacks, 1)
	assert.Equal(t, defn.NackReasonNoRoute, nacks[0].pkt.L3.Nack.Header.Reason)
	assert.Equal(t, DdosNormal, r.ddos().State())
}

func TestDdosJournal(t *testing.T) {
	j := journal.NewMemoryJournal()
	r := newAttackedRouter(t, j)
	r.take()

	r.sendBatch(1, "j", 60)
	r.timer.MoveForward(CfgCheckWindow())

	snapshots, err := j.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	snapshot := snapshots[0]
	assert.Equal(t, t.Name(), snapshot.Router)
	assert.Equal(t, "/a", snapshot.Prefix)
	assert.Equal(t, "fake", snapshot.Type)
	assert.True(t, snapshot.RateLimiting)
	assert.Equal(t, r.timer.Now(), snapshot.Time)
	assert.Equal(t, []journal.FaceSnapshot{
		{Face: 1, Weight: 0.5, Marked: 1, Allowed: 50},
		{Face: 2, Weight: 0.5, Marked: 1, Allowed: 0},
	}, snapshot.Faces)
}

func TestNextQuota(t *testing.T) {
	record := newAttackRecord(parseName("/a"), 100)
	record.PushbackWeight[1] = 0.25
	record.PushbackWeight[2] = 0.75

	assert.Equal(t, 25, nextQuota(record, quotaFirst, 1))
	// No quota yet: start from the share of the tolerance
	assert.Equal(t, 75, nextQuota(record, quotaIncrease, 2))
	assert.Equal(t, 75, nextQuota(record, quotaDecrease, 2))

	record.LastAllowedInterestCount[1] = 31
	assert.Equal(t, 31+CfgAdditiveIncrease(), nextQuota(record, quotaIncrease, 1))
	assert.Equal(t, 15, nextQuota(record, quotaDecrease, 1))

	record.LastAllowedInterestCount[1] = 0
	assert.Equal(t, CfgAdditiveIncrease(), nextQuota(record, quotaIncrease, 1))
	assert.Equal(t, 0, nextQuota(record, quotaDecrease, 1))
}

func TestDdosState(t *testing.T) {
	assert.Equal(t, "NORMAL", DdosNormal.String())
	assert.Equal(t, "CONGESTION", DdosCongestion.String())
	assert.Equal(t, "ATTACK", DdosAttack.String())
}
