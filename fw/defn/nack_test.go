package defn

import (
	"testing"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNackReason(t *testing.T) {
	assert.True(t, NackReasonFakeInterest.IsDdos())
	assert.True(t, NackReasonHintChangeNotice.IsDdos())
	assert.False(t, NackReasonNoRoute.IsDdos())

	assert.True(t, NackReasonCongestion.LessSevere(NackReasonNoRoute))
	assert.True(t, NackReasonDuplicate.LessSevere(NackReasonNoRoute))
	assert.False(t, NackReasonNoRoute.LessSevere(NackReasonCongestion))
	assert.Equal(t, "Reason(7)", NackReason(7).String())
}

func TestNackHeaderString(t *testing.T) {
	name, err := enc.NameFromStr("/a/b")
	require.NoError(t, err)
	h := NackHeader{
		Reason:            NackReasonFakeInterest,
		PrefixLen:         1,
		FakeTolerance:     100,
		FakeInterestNames: []enc.Name{name},
	}
	assert.Equal(t, "FakeInterest(prefixLen=1 tolerance=100 names=1)", h.String())
	assert.Equal(t, "NoRoute", NackHeader{Reason: NackReasonNoRoute}.String())
}

func TestParseRouterType(t *testing.T) {
	for _, typ := range []RouterType{NormalRouter, ProducerGatewayRouter, EdgeRouter} {
		parsed, err := ParseRouterType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := ParseRouterType("core")
	assert.Error(t, err)
}
