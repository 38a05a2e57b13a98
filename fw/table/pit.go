/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"time"

	"github.com/named-data/ndnd-ddos/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// PitTable dictates what functionality a PIT should implement.
// Warning: All functions must be called in the same forwarding goroutine as the creation of the table.
type PitTable interface {
	// InsertInterest finds or creates the PIT entry of an Interest.
	// The second return value is true if the Nonce shows a loop.
	InsertInterest(interest *defn.FwInterest, inFace uint64) (PitEntry, bool)
	// RemoveInterest removes an entry from the PIT.
	RemoveInterest(pitEntry PitEntry) bool
	// FindInterestExactMatch finds an exact match for an Interest in the PIT.
	FindInterestExactMatch(interest *defn.FwInterest) PitEntry
	// FindInterestsByName finds the entries of a name, whatever their selectors.
	FindInterestsByName(name enc.Name) []PitEntry
	// FindInterestPrefixMatchByData finds all entries a Data can satisfy.
	FindInterestPrefixMatchByData(data *defn.FwData) []PitEntry
	// PitSize returns the number of entries in the PIT.
	PitSize() int

	// Update expires the entries whose expiration time is not after now.
	Update(now time.Time)

	// updatePitExpiry updates the PIT entry's position in the expiration queue.
	updatePitExpiry(pitEntry PitEntry)
}

// PitEntry dictates what entries in a PIT should implement
type PitEntry interface {
	Pit() PitTable
	EncName() enc.Name
	CanBePrefix() bool
	MustBeFresh() bool

	// Interest returns the most recent Interest that created or refreshed the entry.
	Interest() *defn.FwInterest

	InRecords() map[uint64]*PitInRecord   // Key is face ID
	OutRecords() map[uint64]*PitOutRecord // Key is face ID
	HasInRecords() bool

	ExpirationTime() time.Time
	setExpirationTime(t time.Time) // use table.UpdateExpirationTimer()

	Satisfied() bool
	SetSatisfied(isSatisfied bool)

	Token() uint32

	InsertInRecord(interest *defn.FwInterest, face uint64, now time.Time) (*PitInRecord, bool, uint32)
	InsertOutRecord(interest *defn.FwInterest, face uint64, now time.Time) *PitOutRecord

	RemoveInRecord(face uint64)
	RemoveOutRecord(face uint64)
	ClearOutRecords()
	ClearInRecords()
}

// DefaultInterestLifetime is used for Interests that carry no InterestLifetime.
var DefaultInterestLifetime = 4000 * time.Millisecond

// basePitEntry contains PIT entry properties common to all tables.
type basePitEntry struct {
	// lowercase fields so that they aren't exported
	encname     enc.Name
	canBePrefix bool
	mustBeFresh bool
	interest    *defn.FwInterest

	inRecords      map[uint64]*PitInRecord  // Key is face ID
	outRecords     map[uint64]*PitOutRecord // Key is face ID
	expirationTime time.Time
	satisfied      bool

	token uint32
}

// PitInRecord records an incoming Interest on a given face.
type PitInRecord struct {
	Face            uint64
	LatestTimestamp time.Time
	LatestNonce     uint32
	LatestInterest  *defn.FwInterest
	ExpirationTime  time.Time
}

// PitOutRecord records an outgoing Interest on a given face.
type PitOutRecord struct {
	Face            uint64
	LatestTimestamp time.Time
	LatestNonce     uint32
	ExpirationTime  time.Time
	// Reason of the Nack received on this face for the latest Interest, if any
	NackReason defn.NackReason
	Nacked     bool
}

func newBasePitEntry(interest *defn.FwInterest) basePitEntry {
	return basePitEntry{
		encname:     interest.NameV,
		canBePrefix: interest.CanBePrefixV,
		mustBeFresh: interest.MustBeFreshV,
		interest:    interest,
		inRecords:   make(map[uint64]*PitInRecord),
		outRecords:  make(map[uint64]*PitOutRecord),
	}
}

func interestLifetime(interest *defn.FwInterest) time.Duration {
	return interest.Lifetime().GetOr(DefaultInterestLifetime)
}

// InsertInRecord finds or inserts an InRecord for the face, updating the
// metadata and returning whether there was already an in-record in the entry.
// The third return value is the previous nonce if the in-record already existed.
func (bpe *basePitEntry) InsertInRecord(
	interest *defn.FwInterest,
	face uint64,
	now time.Time,
) (*PitInRecord, bool, uint32) {
	lifetime := interestLifetime(interest)
	bpe.interest = interest

	record, ok := bpe.inRecords[face]
	if !ok {
		record = &PitInRecord{
			Face:            face,
			LatestNonce:     interest.NonceV.GetOr(0),
			LatestTimestamp: now,
			LatestInterest:  interest,
			ExpirationTime:  now.Add(lifetime),
		}
		bpe.inRecords[face] = record
		return record, false, 0
	}

	// Existing record
	previousNonce := record.LatestNonce
	record.LatestNonce = interest.NonceV.GetOr(0)
	record.LatestTimestamp = now
	record.LatestInterest = interest
	record.ExpirationTime = now.Add(lifetime)
	return record, true, previousNonce
}

// InsertOutRecord inserts an outrecord for the given interest, updating the
// preexisting one if it already occcurs.
func (bpe *basePitEntry) InsertOutRecord(interest *defn.FwInterest, face uint64, now time.Time) *PitOutRecord {
	lifetime := interestLifetime(interest)

	record, ok := bpe.outRecords[face]
	if !ok {
		record = &PitOutRecord{Face: face}
		bpe.outRecords[face] = record
	}
	record.LatestNonce = interest.NonceV.GetOr(0)
	record.LatestTimestamp = now
	record.ExpirationTime = now.Add(lifetime)
	record.Nacked = false
	record.NackReason = defn.NackReasonNone
	return record
}

// UpdateExpirationTimer sets the expiration time of the PIT entry.
func UpdateExpirationTimer(e PitEntry, t time.Time) {
	e.setExpirationTime(t)
	e.Pit().updatePitExpiry(e)
}

// /// Setters and Getters /////
func (bpe *basePitEntry) EncName() enc.Name {
	return bpe.encname
}

func (bpe *basePitEntry) CanBePrefix() bool {
	return bpe.canBePrefix
}

func (bpe *basePitEntry) MustBeFresh() bool {
	return bpe.mustBeFresh
}

func (bpe *basePitEntry) Interest() *defn.FwInterest {
	return bpe.interest
}

func (bpe *basePitEntry) InRecords() map[uint64]*PitInRecord {
	return bpe.inRecords
}

func (bpe *basePitEntry) OutRecords() map[uint64]*PitOutRecord {
	return bpe.outRecords
}

func (bpe *basePitEntry) HasInRecords() bool {
	return len(bpe.inRecords) > 0
}

func (bpe *basePitEntry) RemoveInRecord(face uint64) {
	delete(bpe.inRecords, face)
}

func (bpe *basePitEntry) RemoveOutRecord(face uint64) {
	delete(bpe.outRecords, face)
}

// ClearInRecords removes all in-records from the PIT entry.
func (bpe *basePitEntry) ClearInRecords() {
	clear(bpe.inRecords)
}

// ClearOutRecords removes all out-records from the PIT entry.
func (bpe *basePitEntry) ClearOutRecords() {
	clear(bpe.outRecords)
}

func (bpe *basePitEntry) ExpirationTime() time.Time {
	return bpe.expirationTime
}

func (bpe *basePitEntry) setExpirationTime(t time.Time) {
	bpe.expirationTime = t
}

func (bpe *basePitEntry) Satisfied() bool {
	return bpe.satisfied
}

func (bpe *basePitEntry) SetSatisfied(isSatisfied bool) {
	bpe.satisfied = isSatisfied
}

func (bpe *basePitEntry) Token() uint32 {
	return bpe.token
}
