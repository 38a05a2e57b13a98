/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"sync"

	"github.com/named-data/ndnd-ddos/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// FibNextHopEntry is a nexthop of a FIB entry.
type FibNextHopEntry struct {
	Nexthop uint64
	Cost    uint64
}

// FibStrategyEntry is a node of the FIB-Strategy table.
type FibStrategyEntry interface {
	Name() enc.Name
	GetStrategy() enc.Name
	GetNextHops() []*FibNextHopEntry
}

type fibStrategyTreeEntry struct {
	component enc.Component
	name      enc.Name
	depth     int
	nexthops  []*FibNextHopEntry
	strategy  enc.Name

	parent   *fibStrategyTreeEntry
	children map[uint64]*fibStrategyTreeEntry
}

// FibStrategyTree is a name tree holding both the FIB and the strategy choice table.
// It is shared by the routers of a process, hence the lock.
type FibStrategyTree struct {
	root  *fibStrategyTreeEntry
	mutex sync.RWMutex
}

// NewFibStrategyTree creates an empty table whose root uses the default strategy.
func NewFibStrategyTree() *FibStrategyTree {
	return &FibStrategyTree{
		root: &fibStrategyTreeEntry{
			component: enc.Component{},
			name:      enc.Name{},
			strategy:  defn.DEFAULT_STRATEGY,
			children:  make(map[uint64]*fibStrategyTreeEntry),
		},
	}
}

func (e *fibStrategyTreeEntry) Name() enc.Name {
	return e.name
}

func (e *fibStrategyTreeEntry) GetStrategy() enc.Name {
	return e.strategy
}

func (e *fibStrategyTreeEntry) GetNextHops() []*FibNextHopEntry {
	return append([]*FibNextHopEntry{}, e.nexthops...)
}

func (e *fibStrategyTreeEntry) findLongestPrefixEntry(name enc.Name) *fibStrategyTreeEntry {
	entry := e
	for entry.depth < len(name) {
		child, ok := entry.children[name[entry.depth].Hash()]
		if !ok {
			break
		}
		entry = child
	}
	return entry
}

func (e *fibStrategyTreeEntry) findExactMatchEntry(name enc.Name) *fibStrategyTreeEntry {
	match := e.findLongestPrefixEntry(name)
	if match.depth == len(name) {
		return match
	}
	return nil
}

func (f *FibStrategyTree) fillTreeToPrefix(name enc.Name) *fibStrategyTreeEntry {
	entry := f.root.findLongestPrefixEntry(name)
	for depth := entry.depth; depth < len(name); depth++ {
		component := name[depth].Clone()
		child := &fibStrategyTreeEntry{
			component: component,
			name:      entry.name.Append(component),
			depth:     depth + 1,
			parent:    entry,
			children:  make(map[uint64]*fibStrategyTreeEntry),
		}
		entry.children[component.Hash()] = child
		entry = child
	}
	return entry
}

// pruneIfEmpty removes nodes that no longer carry children, nexthops or a strategy.
func (e *fibStrategyTreeEntry) pruneIfEmpty() {
	for entry := e; entry.parent != nil &&
		len(entry.children) == 0 && len(entry.nexthops) == 0 && entry.strategy == nil; entry = entry.parent {
		delete(entry.parent.children, entry.component.Hash())
	}
}

// FindNextHops returns the longest-prefix matching nexthop(s) matching the specified name,
// in insertion order.
func (f *FibStrategyTree) FindNextHops(name enc.Name) []*FibNextHopEntry {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	// Some entries only carry a strategy, so step back up to the first one with nexthops
	for entry := f.root.findLongestPrefixEntry(name); entry != nil; entry = entry.parent {
		if len(entry.nexthops) > 0 {
			return entry.GetNextHops()
		}
	}
	return []*FibNextHopEntry{}
}

// FindStrategy returns the longest-prefix matching strategy choice entry for the specified name.
func (f *FibStrategyTree) FindStrategy(name enc.Name) enc.Name {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	for entry := f.root.findLongestPrefixEntry(name); entry != nil; entry = entry.parent {
		if entry.strategy != nil {
			return entry.strategy
		}
	}
	return nil
}

// InsertNextHop adds or updates a nexthop entry for the specified prefix.
func (f *FibStrategyTree) InsertNextHop(name enc.Name, nexthop uint64, cost uint64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	entry := f.fillTreeToPrefix(name)
	for _, nh := range entry.nexthops {
		if nh.Nexthop == nexthop {
			nh.Cost = cost
			return
		}
	}
	entry.nexthops = append(entry.nexthops, &FibNextHopEntry{
		Nexthop: nexthop,
		Cost:    cost,
	})
}

// RemoveNextHop removes the specified nexthop entry from the specified prefix.
func (f *FibStrategyTree) RemoveNextHop(name enc.Name, nexthop uint64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	entry := f.root.findExactMatchEntry(name)
	if entry == nil {
		return
	}
	for i, nh := range entry.nexthops {
		if nh.Nexthop == nexthop {
			entry.nexthops = append(entry.nexthops[:i], entry.nexthops[i+1:]...)
			break
		}
	}
	entry.pruneIfEmpty()
}

// ClearNextHops clears all nexthops for the specified prefix.
func (f *FibStrategyTree) ClearNextHops(name enc.Name) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if entry := f.root.findExactMatchEntry(name); entry != nil {
		entry.nexthops = nil
		entry.pruneIfEmpty()
	}
}

// RemoveFace removes a face from every nexthop list.
func (f *FibStrategyTree) RemoveFace(faceID uint64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	var emptied []*fibStrategyTreeEntry
	f.walk(func(entry *fibStrategyTreeEntry) {
		for i, nh := range entry.nexthops {
			if nh.Nexthop == faceID {
				entry.nexthops = append(entry.nexthops[:i], entry.nexthops[i+1:]...)
				emptied = append(emptied, entry)
				break
			}
		}
	})
	for _, entry := range emptied {
		entry.pruneIfEmpty()
	}
}

// SetStrategy sets the strategy for the specified prefix.
func (f *FibStrategyTree) SetStrategy(name enc.Name, strategy enc.Name) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	entry := f.fillTreeToPrefix(name)
	entry.strategy = strategy.Clone()
}

// UnSetStrategy unsets the strategy for the specified prefix.
// The root always keeps a strategy.
func (f *FibStrategyTree) UnSetStrategy(name enc.Name) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	entry := f.root.findExactMatchEntry(name)
	if entry != nil && entry != f.root {
		entry.strategy = nil
		entry.pruneIfEmpty()
	}
}

// GetAllFIBEntries returns all entries with at least one nexthop.
func (f *FibStrategyTree) GetAllFIBEntries() []FibStrategyEntry {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	entries := make([]FibStrategyEntry, 0)
	f.walk(func(entry *fibStrategyTreeEntry) {
		if len(entry.nexthops) > 0 {
			entries = append(entries, entry)
		}
	})
	return entries
}

// GetAllForwardingStrategies returns all strategy choice entries.
func (f *FibStrategyTree) GetAllForwardingStrategies() []FibStrategyEntry {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	entries := make([]FibStrategyEntry, 0)
	f.walk(func(entry *fibStrategyTreeEntry) {
		if entry.strategy != nil {
			entries = append(entries, entry)
		}
	})
	return entries
}

// walk visits every node depth first.
func (f *FibStrategyTree) walk(fn func(*fibStrategyTreeEntry)) {
	stack := []*fibStrategyTreeEntry{f.root}
	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range entry.children {
			stack = append(stack, child)
		}
		fn(entry)
	}
}
