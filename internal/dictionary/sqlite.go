package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dict (
	name     TEXT PRIMARY KEY,
	aphia_id INTEGER NOT NULL
);
`

// SQLiteStore is a Dictionary persisted in SQLite. Entries are loaded into
// memory on open and writes go through to both, so lookups during a
// resolution run never touch the database.
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex

	entries map[string]int64
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init dictionary schema: %w", err)
	}
	s := &SQLiteStore{db: db, entries: map[string]int64{}}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) loadAll() error {
	rows, err := s.db.Queryx(`SELECT name, aphia_id FROM dict`)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return fmt.Errorf("scan dictionary row: %w", err)
		}
		s.entries[name] = id
	}
	return rows.Err()
}

func (s *SQLiteStore) Lookup(name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	return id, ok
}

func (s *SQLiteStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Put inserts or replaces one entry, write-through.
func (s *SQLiteStore) Put(name string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO dict (name, aphia_id) VALUES (?, ?)`, name, id); err != nil {
		return fmt.Errorf("put %q: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// ImportTSV bulk-loads tab-separated "name<TAB>aphia_id" lines inside one
// transaction. Blank lines and a "name" header line are skipped. Returns
// the number of entries imported.
func (s *SQLiteStore) ImportTSV(r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, idText, ok := strings.Cut(line, "\t")
		if !ok {
			tx.Rollback()
			return 0, fmt.Errorf("line %d: expected name<TAB>aphia_id", lineNo)
		}
		name = strings.TrimSpace(name)
		idText = strings.TrimSpace(idText)
		if lineNo == 1 && !isInteger(idText) {
			continue // header
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("line %d: bad aphia_id %q: %w", lineNo, idText, err)
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO dict (name, aphia_id) VALUES (?, ?)`, name, id); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("line %d: insert: %w", lineNo, err)
		}
		s.entries[name] = id
		count++
	}
	if err := scanner.Err(); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("read tsv: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
