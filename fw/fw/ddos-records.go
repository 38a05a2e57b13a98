package fw

import (
	"math"
	"slices"

	"github.com/named-data/ndnd-ddos/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// weightEpsilon bounds the rounding error of summed pushback weights.
const weightEpsilon = 1e-9

// RecordType tells which kind of Nack created an attack record.
type RecordType int

const (
	RecordFake RecordType = iota
	RecordValid
)

func (t RecordType) String() string {
	switch t {
	case RecordFake:
		return "fake"
	case RecordValid:
		return "valid"
	default:
		return "unknown"
	}
}

// AttackRecord is the mitigation state of one attacked prefix.
type AttackRecord struct {
	Prefix enc.Name
	Type   RecordType

	FakeNackCounter  uint64
	ValidNackCounter uint64

	// Set once the first rate limiting cycle applied to the record
	RateLimiting bool
	// Quota of the last cycle, per downstream face
	LastAllowedInterestCount map[uint64]int
	// Interest budget granted by the upstream Nack
	FakeInterestTolerance uint64

	// Share of the blame of each downstream face
	PushbackWeight map[uint64]float64
	// Number of implicated Interests that came from each downstream face
	MarkedInterestPerFace map[uint64]uint64
}

func newAttackRecord(prefix enc.Name, tolerance uint64) *AttackRecord {
	return &AttackRecord{
		Prefix:                   prefix.Clone(),
		Type:                     RecordFake,
		FakeNackCounter:          1,
		FakeInterestTolerance:    tolerance,
		LastAllowedInterestCount: make(map[uint64]int),
		PushbackWeight:           make(map[uint64]float64),
		MarkedInterestPerFace:    make(map[uint64]uint64),
	}
}

// Allowed returns the quota of the last cycle for a face.
func (r *AttackRecord) Allowed(face uint64) int {
	return r.LastAllowedInterestCount[face]
}

// Weight returns the pushback weight of a face, zero if the face is not blamed.
func (r *AttackRecord) Weight(face uint64) float64 {
	return r.PushbackWeight[face]
}

// TotalWeight returns the sum of the pushback weights.
func (r *AttackRecord) TotalWeight() float64 {
	total := 0.0
	for _, face := range sortedKeys(r.PushbackWeight) {
		total += r.PushbackWeight[face]
	}
	return total
}

// derivedTolerance is the budget handed to a face: the tolerance scaled by
// the weight, rounded down. Weights are sums of 1/n shares, so the product
// is nudged by weightEpsilon before flooring.
func derivedTolerance(tolerance uint64, weight float64) uint64 {
	if weight <= 0 {
		return 0
	}
	return uint64(math.Floor(float64(tolerance)*weight + weightEpsilon))
}

// RecordStore maps attacked prefixes to their records.
// Collisions of the name hash are kept in the same bucket.
type RecordStore struct {
	buckets map[uint64][]*AttackRecord
	size    int
}

func NewRecordStore() *RecordStore {
	return &RecordStore{buckets: make(map[uint64][]*AttackRecord)}
}

// Get returns the record of a prefix, or nil.
func (rs *RecordStore) Get(prefix enc.Name) *AttackRecord {
	for _, record := range rs.buckets[table.NameHash(prefix)] {
		if record.Prefix.Equal(prefix) {
			return record
		}
	}
	return nil
}

// Insert adds a record, replacing the record of the same prefix if any.
func (rs *RecordStore) Insert(record *AttackRecord) {
	hash := table.NameHash(record.Prefix)
	bucket := rs.buckets[hash]
	for i, cur := range bucket {
		if cur.Prefix.Equal(record.Prefix) {
			bucket[i] = record
			return
		}
	}
	rs.buckets[hash] = append(bucket, record)
	rs.size++
}

// Len returns the number of records.
func (rs *RecordStore) Len() int {
	return rs.size
}

// All returns every record, ordered by prefix.
func (rs *RecordStore) All() []*AttackRecord {
	records := make([]*AttackRecord, 0, rs.size)
	for _, bucket := range rs.buckets {
		records = append(records, bucket...)
	}
	slices.SortFunc(records, func(a, b *AttackRecord) int {
		return a.Prefix.Compare(b.Prefix)
	})
	return records
}
