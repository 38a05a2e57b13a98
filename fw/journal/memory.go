package journal

import (
	"slices"
	"sync"
)

// MemoryJournal keeps snapshots in memory.
type MemoryJournal struct {
	mutex     sync.Mutex
	snapshots []*Snapshot
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) String() string {
	return "journal-memory"
}

func (j *MemoryJournal) Put(s *Snapshot) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	cp := *s
	cp.Faces = slices.Clone(s.Faces)
	for i, cur := range j.snapshots {
		if compareSnapshots(cur, &cp) == 0 {
			j.snapshots[i] = &cp
			return nil
		}
	}
	j.snapshots = append(j.snapshots, &cp)
	return nil
}

func (j *MemoryJournal) List() ([]*Snapshot, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	ret := slices.Clone(j.snapshots)
	slices.SortStableFunc(ret, compareSnapshots)
	return ret, nil
}

func (j *MemoryJournal) Close() error {
	return nil
}

func compareSnapshots(a, b *Snapshot) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	if a.Router != b.Router {
		if a.Router < b.Router {
			return -1
		}
		return 1
	}
	if a.Prefix != b.Prefix {
		if a.Prefix < b.Prefix {
			return -1
		}
		return 1
	}
	return 0
}
