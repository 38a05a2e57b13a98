package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	time INTEGER NOT NULL,
	router TEXT NOT NULL,
	prefix TEXT NOT NULL,
	body BLOB NOT NULL,
	PRIMARY KEY (time, router, prefix)
)`

// SqliteJournal stores snapshots in a sqlite database.
type SqliteJournal struct {
	db *sql.DB
}

func NewSqliteJournal(path string) (*SqliteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite journal: %w", err)
	}
	if _, err = db.Exec(sqliteSchema); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to create journal schema: %w", err), db.Close())
	}
	return &SqliteJournal{db: db}, nil
}

func (j *SqliteJournal) String() string {
	return "journal-sqlite"
}

func (j *SqliteJournal) Put(s *Snapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(
		"INSERT OR REPLACE INTO snapshots (time, router, prefix, body) VALUES (?, ?, ?, ?)",
		s.Time.UnixNano(), s.Router, s.Prefix, body,
	)
	return err
}

func (j *SqliteJournal) List() ([]*Snapshot, error) {
	rows, err := j.db.Query("SELECT body FROM snapshots ORDER BY time, router, prefix")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*Snapshot, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		s := &Snapshot{}
		if err := json.Unmarshal(body, s); err != nil {
			return nil, err
		}
		ret = append(ret, s)
	}
	return ret, rows.Err()
}

func (j *SqliteJournal) Close() error {
	return j.db.Close()
}
