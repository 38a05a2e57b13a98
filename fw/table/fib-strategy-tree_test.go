package table

import (
	"testing"

	"github.com/named-data/ndnd-ddos/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
)

func nexthopIDs(nhs []*FibNextHopEntry) []uint64 {
	ids := make([]uint64, 0, len(nhs))
	for _, nh := range nhs {
		ids = append(ids, nh.Nexthop)
	}
	return ids
}

func TestFibNextHops(t *testing.T) {
	fib := NewFibStrategyTree()
	prefix, _ := enc.NameFromStr("/ucla/video")
	name, _ := enc.NameFromStr("/ucla/video/seg=1")
	other, _ := enc.NameFromStr("/mit")

	assert.Empty(t, fib.FindNextHops(name))

	fib.InsertNextHop(prefix, 3, 10)
	fib.InsertNextHop(prefix, 1, 5)
	fib.InsertNextHop(prefix, 3, 1) // update cost only

	nhs := fib.FindNextHops(name)
	assert.Equal(t, []uint64{3, 1}, nexthopIDs(nhs))
	assert.Equal(t, uint64(1), nhs[0].Cost)
	assert.Empty(t, fib.FindNextHops(other))

	// Longest prefix wins
	longer, _ := enc.NameFromStr("/ucla/video/seg=1")
	fib.InsertNextHop(longer, 7, 0)
	assert.Equal(t, []uint64{7}, nexthopIDs(fib.FindNextHops(name)))

	fib.RemoveNextHop(longer, 7)
	assert.Equal(t, []uint64{3, 1}, nexthopIDs(fib.FindNextHops(name)))

	fib.RemoveFace(3)
	assert.Equal(t, []uint64{1}, nexthopIDs(fib.FindNextHops(name)))
	assert.Len(t, fib.GetAllFIBEntries(), 1)

	fib.ClearNextHops(prefix)
	assert.Empty(t, fib.FindNextHops(name))
	assert.Empty(t, fib.GetAllFIBEntries())
}

func TestFibNextHopsReturnCopy(t *testing.T) {
	fib := NewFibStrategyTree()
	prefix, _ := enc.NameFromStr("/a")
	fib.InsertNextHop(prefix, 1, 0)
	fib.InsertNextHop(prefix, 2, 0)

	nhs := fib.FindNextHops(prefix)
	nhs[0] = nil
	assert.Equal(t, []uint64{1, 2}, nexthopIDs(fib.FindNextHops(prefix)))
}

func TestFibStrategy(t *testing.T) {
	fib := NewFibStrategyTree()
	name, _ := enc.NameFromStr("/ucla/video/seg=1")
	prefix, _ := enc.NameFromStr("/ucla")

	assert.True(t, fib.FindStrategy(name).Equal(defn.DEFAULT_STRATEGY))

	ddos := append(defn.STRATEGY_PREFIX.Clone(),
		enc.NewStringComponent(enc.TypeGenericNameComponent, "ddos"))
	fib.SetStrategy(prefix, ddos)
	assert.True(t, fib.FindStrategy(name).Equal(ddos))
	assert.Len(t, fib.GetAllForwardingStrategies(), 2)

	fib.UnSetStrategy(prefix)
	assert.True(t, fib.FindStrategy(name).Equal(defn.DEFAULT_STRATEGY))

	// The root strategy stays
	fib.UnSetStrategy(enc.Name{})
	assert.True(t, fib.FindStrategy(name).Equal(defn.DEFAULT_STRATEGY))
}
