package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/named-data/ndnd-ddos/fw/core"
)

// BadgerJournal stores snapshots in a badger database.
// Keys are the big-endian timestamp followed by router and prefix,
// so iteration order is the List order.
type BadgerJournal struct {
	db *badger.DB
}

func NewBadgerJournal(path string) (*BadgerJournal, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open badger journal: %w", err)
	}
	return &BadgerJournal{db: db}, nil
}

func (j *BadgerJournal) String() string {
	return "journal-badger"
}

func (j *BadgerJournal) Put(s *Snapshot) error {
	value, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(s), value)
	})
}

func (j *BadgerJournal) List() (ret []*Snapshot, err error) {
	err = j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			s := &Snapshot{}
			if err := json.Unmarshal(value, s); err != nil {
				return err
			}
			ret = append(ret, s)
		}
		return nil
	})
	return
}

func (j *BadgerJournal) Close() error {
	return j.db.Close()
}

func snapshotKey(s *Snapshot) []byte {
	key := make([]byte, 8, 8+len(s.Router)+1+len(s.Prefix))
	binary.BigEndian.PutUint64(key, uint64(s.Time.UnixNano()))
	key = append(key, s.Router...)
	key = append(key, 0)
	key = append(key, s.Prefix...)
	return key
}

// badgerLogger forwards badger's messages to the forwarder log.
type badgerLogger struct{}

func (badgerLogger) String() string {
	return "journal-badger"
}

func (l badgerLogger) Errorf(format string, args ...any) {
	core.Log.Error(l, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	core.Log.Warn(l, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	core.Log.Debug(l, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	core.Log.Trace(l, fmt.Sprintf(format, args...))
}
