package table

import (
	"time"

	"github.com/cespare/xxhash"
	"github.com/named-data/ndnd-ddos/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/priority_queue"
)

// OnPitExpiration is called for every entry the PIT expires.
type OnPitExpiration func(PitEntry)

// PitHashTable is a PIT keyed by the hash of the entry name.
// Prefix matches are resolved by hashing every prefix of the Data name.
type PitHashTable struct {
	buckets     map[uint64][]*hashPitEntry
	nPitEntries int
	nPitToken   uint32

	pitExpiryQueue priority_queue.Queue[*hashPitEntry, int64]
	onExpiration   OnPitExpiration
}

type hashPitEntry struct {
	basePitEntry                                             // compose with BasePitEntry
	table        *PitHashTable                               // owning table, nil once removed
	hash         uint64                                      // bucket key
	pqItem       *priority_queue.Item[*hashPitEntry, int64] // entry in the expiring queue
}

// NewPit creates a new PIT for a forwarding thread.
func NewPit(onExpiration OnPitExpiration) *PitHashTable {
	return &PitHashTable{
		buckets:        make(map[uint64][]*hashPitEntry),
		pitExpiryQueue: priority_queue.New[*hashPitEntry, int64](),
		onExpiration:   onExpiration,
	}
}

// NameHash returns the bucket key of a name.
func NameHash(name enc.Name) uint64 {
	return xxhash.Sum64(name.BytesInner())
}

func (e *hashPitEntry) Pit() PitTable {
	return e.table
}

func matchesSelectors(e *hashPitEntry, interest *defn.FwInterest) bool {
	return e.canBePrefix == interest.CanBePrefixV &&
		e.mustBeFresh == interest.MustBeFreshV &&
		e.encname.Equal(interest.NameV)
}

// InsertInterest inserts an entry in the PIT upon receipt of an Interest.
// Returns tuple of PIT entry and whether the Nonce is a duplicate.
func (p *PitHashTable) InsertInterest(interest *defn.FwInterest, inFace uint64) (PitEntry, bool) {
	hash := NameHash(interest.NameV)

	var entry *hashPitEntry
	for _, cur := range p.buckets[hash] {
		if matchesSelectors(cur, interest) {
			entry = cur
			break
		}
	}

	if entry == nil {
		p.nPitEntries++
		p.nPitToken++
		entry = &hashPitEntry{
			basePitEntry: newBasePitEntry(interest),
			table:        p,
			hash:         hash,
		}
		entry.token = p.nPitToken
		p.buckets[hash] = append(p.buckets[hash], entry)
	}

	// Only considered a duplicate (loop) if from different face since
	// is just retransmission and not loop if same face
	if nonce, ok := interest.NonceV.Get(); ok {
		for face, inRecord := range entry.inRecords {
			if face != inFace && inRecord.LatestNonce == nonce {
				return entry, true
			}
		}
	}

	return entry, false
}

// RemoveInterest removes the specified PIT entry, returning true if the entry
// was removed and false if was not (because it does not exist).
func (p *PitHashTable) RemoveInterest(pitEntry PitEntry) bool {
	e, ok := pitEntry.(*hashPitEntry)
	if !ok || e.table != p {
		return false
	}

	bucket := p.buckets[e.hash]
	for i, cur := range bucket {
		if cur != e {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		bucket = bucket[:len(bucket)-1]
		if len(bucket) == 0 {
			delete(p.buckets, e.hash)
		} else {
			p.buckets[e.hash] = bucket
		}
		p.nPitEntries--

		// now it is invalid to use the entry
		e.table = nil
		if e.pqItem != nil {
			p.pitExpiryQueue.Update(e.pqItem, e, 0)
		}
		return true
	}
	return false
}

// FindInterestExactMatch returns the PIT entry for an exact match of the
// given interest.
func (p *PitHashTable) FindInterestExactMatch(interest *defn.FwInterest) PitEntry {
	for _, cur := range p.buckets[NameHash(interest.NameV)] {
		if matchesSelectors(cur, interest) {
			return cur
		}
	}
	return nil
}

// FindInterestsByName returns every entry of a name, whatever its selectors.
func (p *PitHashTable) FindInterestsByName(name enc.Name) []PitEntry {
	matching := make([]PitEntry, 0)
	for _, cur := range p.buckets[NameHash(name)] {
		if cur.encname.Equal(name) {
			matching = append(matching, cur)
		}
	}
	return matching
}

// FindInterestPrefixMatchByData returns all interests that could be satisfied
// by the given data.
// Example: If we have interests /a and /a/b, a prefix search for data with name /a/b
// will return PitEntries for both /a and /a/b
func (p *PitHashTable) FindInterestPrefixMatchByData(data *defn.FwData) []PitEntry {
	matching := make([]PitEntry, 0)
	name := data.NameV
	for depth := len(name); depth >= 0; depth-- {
		prefix := name.Prefix(depth)
		for _, cur := range p.buckets[NameHash(prefix)] {
			if (cur.canBePrefix || depth == len(name)) && cur.encname.Equal(prefix) {
				matching = append(matching, cur)
			}
		}
	}
	return matching
}

// PitSize returns the number of entries in the PIT.
func (p *PitHashTable) PitSize() int {
	return p.nPitEntries
}

// Update expires all pending PIT entries whose expiration time has been reached.
func (p *PitHashTable) Update(now time.Time) {
	for p.pitExpiryQueue.Len() > 0 && p.pitExpiryQueue.PeekPriority() <= now.UnixNano() {
		entry := p.pitExpiryQueue.Pop()
		entry.pqItem = nil
		if entry.table != p {
			continue
		}
		p.onExpiration(entry)
		p.RemoveInterest(entry)
	}
}

// NextExpiry returns the earliest scheduled expiration, if any.
func (p *PitHashTable) NextExpiry() (time.Time, bool) {
	if p.pitExpiryQueue.Len() == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, p.pitExpiryQueue.PeekPriority()), true
}

func (p *PitHashTable) updatePitExpiry(pitEntry PitEntry) {
	e := pitEntry.(*hashPitEntry)
	if e.pqItem == nil {
		e.pqItem = p.pitExpiryQueue.Push(e, e.expirationTime.UnixNano())
	} else {
		p.pitExpiryQueue.Update(e.pqItem, e, e.expirationTime.UnixNano())
	}
}
