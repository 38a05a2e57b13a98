package fw

import (
	"math"
	"strconv"

	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/journal"
)

// quotaStep is the AIMD branch taken by a record in one cycle.
type quotaStep int

const (
	quotaFirst quotaStep = iota
	quotaIncrease
	quotaDecrease
)

// nextQuota returns the quota of a face for this cycle.
// Faces that had no quota yet start from their share of the tolerance.
func nextQuota(record *AttackRecord, step quotaStep, face uint64) int {
	initial := int(derivedTolerance(record.FakeInterestTolerance, record.Weight(face)))
	last, ok := record.LastAllowedInterestCount[face]
	if step == quotaFirst || !ok {
		return initial
	}
	if step == quotaIncrease {
		return last + CfgAdditiveIncrease()
	}
	return int(math.Floor(float64(last) / CfgMultiplicativeDecrease()))
}

// applyRateAndForward runs one rate limiting cycle: every blamed face gets a
// quota for each active prefix, and that many of its buffered Interests are
// forwarded. The rest of the buffer is dropped.
func (s *DDoS) applyRateAndForward() {
	core.Log.Debug(s, "Applying rate limits", "prefixes", len(s.buffer.prefixSet), "buffered", s.buffer.size())

	for _, prefix := range s.buffer.prefixSet {
		record := s.records.Get(prefix)
		if record == nil {
			continue
		}

		key := prefixKey(prefix)
		step := quotaDecrease
		switch {
		case !record.RateLimiting:
			step = quotaFirst
		case s.buffer.lastNackCountSeen[key] == record.FakeNackCounter:
			step = quotaIncrease
		}

		for _, face := range s.buffer.facesOf(prefix) {
			queued := s.buffer.queued(face, prefix)
			if record.Weight(face) <= 0 {
				core.Log.Debug(s, "Dropping Interests from unblamed face", "prefix", prefix, "faceid", face, "count", len(queued))
				core.Metrics.InterestsDropped.WithLabelValues(s.thread.name).Add(float64(len(queued)))
				continue
			}

			allowed := max(nextQuota(record, step, face), 0)
			record.LastAllowedInterestCount[face] = allowed
			core.Metrics.AllowedInterests.
				WithLabelValues(s.thread.name, prefix.String(), strconv.FormatUint(face, 10)).
				Set(float64(allowed))
			core.Log.Info(s, "Applying rate", "prefix", prefix, "faceid", face, "allowed", allowed, "buffered", len(queued))

			released := 0
			for i, buffered := range queued {
				if i >= allowed {
					core.Metrics.InterestsDropped.WithLabelValues(s.thread.name).Add(float64(len(queued) - i))
					break
				}

				pitEntry := s.thread.pit.FindInterestExactMatch(buffered)
				if pitEntry == nil || s.hasPendingOutRecords(pitEntry) {
					continue
				}
				interest := pitEntry.Interest()
				if inRecord, ok := pitEntry.InRecords()[face]; ok {
					interest = inRecord.LatestInterest
				}
				s.forwardLoadBalance(face, interest, pitEntry)
				released++
			}
			core.Metrics.InterestsReleased.WithLabelValues(s.thread.name).Add(float64(released))
		}

		record.RateLimiting = true
		s.buffer.lastNackCountSeen[key] = record.FakeNackCounter
		s.journalRecord(record)
	}

	s.buffer.clear()
	core.Metrics.RateCycles.WithLabelValues(s.thread.name).Inc()
	s.cycle.Schedule()
}

// journalRecord stores a snapshot of the record. Failures are logged only.
func (s *DDoS) journalRecord(record *AttackRecord) {
	snapshot := &journal.Snapshot{
		Time:             s.Now(),
		Router:           s.thread.name,
		Prefix:           record.Prefix.String(),
		Type:             record.Type.String(),
		FakeNackCounter:  record.FakeNackCounter,
		ValidNackCounter: record.ValidNackCounter,
		RateLimiting:     record.RateLimiting,
		Tolerance:        record.FakeInterestTolerance,
	}
	for _, face := range sortedKeys(record.PushbackWeight) {
		snapshot.Faces = append(snapshot.Faces, journal.FaceSnapshot{
			Face:    face,
			Weight:  record.PushbackWeight[face],
			Marked:  record.MarkedInterestPerFace[face],
			Allowed: record.Allowed(face),
		})
	}
	if err := s.thread.journal.Put(snapshot); err != nil {
		core.Log.Warn(s, "Unable to journal attack record", "prefix", record.Prefix, "err", err)
	}
}
