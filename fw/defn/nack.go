package defn

import (
	"fmt"

	enc "github.com/named-data/ndnd/std/encoding"
)

// NackReason is the reason code carried by a network Nack.
type NackReason uint64

const (
	NackReasonNone        NackReason = 0
	NackReasonCongestion  NackReason = 50
	NackReasonDuplicate   NackReason = 100
	NackReasonNoRoute     NackReason = 150
	NackReasonUnspecified NackReason = 255

	// Interest flooding signaling between cooperating routers.
	NackReasonFakeInterest          NackReason = 200
	NackReasonValidInterestOverload NackReason = 201
	NackReasonHintChangeNotice      NackReason = 202
)

func (r NackReason) String() string {
	switch r {
	case NackReasonNone:
		return "None"
	case NackReasonCongestion:
		return "Congestion"
	case NackReasonDuplicate:
		return "Duplicate"
	case NackReasonNoRoute:
		return "NoRoute"
	case NackReasonFakeInterest:
		return "FakeInterest"
	case NackReasonValidInterestOverload:
		return "ValidInterestOverload"
	case NackReasonHintChangeNotice:
		return "HintChangeNotice"
	case NackReasonUnspecified:
		return "Unspecified"
	default:
		return fmt.Sprintf("Reason(%d)", uint64(r))
	}
}

// IsDdos returns whether the reason belongs to the flooding mitigation protocol.
func (r NackReason) IsDdos() bool {
	return r == NackReasonFakeInterest ||
		r == NackReasonValidInterestOverload ||
		r == NackReasonHintChangeNotice
}

// LessSevere orders the standard reasons: Congestion < Duplicate < NoRoute.
// Unknown reasons are treated as the most severe.
func (r NackReason) LessSevere(other NackReason) bool {
	rank := func(x NackReason) int {
		switch x {
		case NackReasonCongestion:
			return 0
		case NackReasonDuplicate:
			return 1
		case NackReasonNoRoute:
			return 2
		default:
			return 3
		}
	}
	return rank(r) < rank(other)
}

// NackHeader is the header of a Nack. PrefixLen, FakeTolerance and
// FakeInterestNames are only meaningful for the DDoS reasons.
type NackHeader struct {
	Reason NackReason
	// Number of name components of the triggering Interest that form the attacked prefix
	PrefixLen int
	// Interest budget granted to the recipient
	FakeTolerance uint64
	// Full names of the Interests blamed on the recipient
	FakeInterestNames []enc.Name
}

func (h NackHeader) String() string {
	if !h.Reason.IsDdos() {
		return h.Reason.String()
	}
	return fmt.Sprintf("%s(prefixLen=%d tolerance=%d names=%d)",
		h.Reason, h.PrefixLen, h.FakeTolerance, len(h.FakeInterestNames))
}
