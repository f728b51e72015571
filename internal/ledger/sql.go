package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/pkg/repository"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sentences (
	id            INTEGER PRIMARY KEY,
	sentence_date TEXT,
	sentence      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
	name       TEXT PRIMARY KEY,
	name_key   TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS labels (
	sentence_id INTEGER NOT NULL REFERENCES sentences(id),
	source      TEXT NOT NULL REFERENCES sources(name),
	value       INTEGER NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (sentence_id, source)
);

CREATE TABLE IF NOT EXISTS label_events (
	id          TEXT PRIMARY KEY,
	sentence_id INTEGER NOT NULL,
	source      TEXT NOT NULL,
	value       INTEGER NOT NULL,
	written_at  TIMESTAMP NOT NULL
);`

type sqlStore struct {
	db      *sql.DB
	dialect repository.Dialect
	match   MatchMode
	audit   bool
	now     func() time.Time
}

// NewSQLStore creates a Store over an open database. driver is "postgres" or
// "sqlite"; the SQLite schema is created on demand, the PostgreSQL schema is
// owned by cmd/migrate. When audit is set every Put is also appended to
// label_events.
func NewSQLStore(ctx context.Context, db *sql.DB, driver string, match MatchMode, audit bool) (Store, error) {
	s := &sqlStore{
		db:      db,
		dialect: repository.DialectFor(driver),
		match:   match,
		audit:   audit,
		now:     time.Now,
	}

	if s.dialect == repository.Question {
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}
	return s, nil
}

func (s *sqlStore) q(query string) string {
	return s.dialect.Rebind(query)
}

func (s *sqlStore) Load(ctx context.Context, records []corpus.Record) (int, error) {
	insertQ := s.q(`
		INSERT INTO sentences (id, sentence_date, sentence)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) (int, error) {
		added := 0
		for _, r := range records {
			if r.ID < 1 {
				return 0, fmt.Errorf("%w: %d", corpus.ErrInvalidID, r.ID)
			}

			var date sql.NullString
			if r.Date != nil {
				date = sql.NullString{String: r.Date.String(), Valid: true}
			}

			res, err := tx.ExecContext(ctx, insertQ, r.ID, date, r.Text)
			if err != nil {
				return 0, fmt.Errorf("insert sentence %d: %w", r.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		return added, nil
	})
}

func (s *sqlStore) Records(ctx context.Context) ([]corpus.Record, error) {
	return s.records(ctx, s.db)
}

func (s *sqlStore) records(ctx context.Context, q repository.Querier) ([]corpus.Record, error) {
	return repository.QueryMany(ctx, q,
		"SELECT id, sentence_date, sentence FROM sentences ORDER BY id",
		nil, scanRecord)
}

func (s *sqlStore) RegisterSource(ctx context.Context, name string, kind Kind) (Source, bool, error) {
	name = strings.TrimSpace(name)
	key := s.match.Key(name)

	insertQ := s.q(`
		INSERT INTO sources (name, name_key, kind, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name_key) DO NOTHING`)
	selectQ := s.q("SELECT name, kind, created_at FROM sources WHERE name_key = ?")

	type registration struct {
		src     Source
		created bool
	}

	reg, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (registration, error) {
		res, err := tx.ExecContext(ctx, insertQ, name, key, string(kind), s.now().UTC())
		if err != nil {
			return registration{}, fmt.Errorf("insert source: %w", err)
		}
		n, _ := res.RowsAffected()

		src, err := repository.QueryOne(ctx, tx, selectQ, []any{key}, scanSource)
		if err != nil {
			return registration{}, fmt.Errorf("select source: %w", err)
		}
		return registration{src: src, created: n > 0}, nil
	})
	if err != nil {
		// Lost a race on the name primary key; return the winner.
		if repository.IsUniqueViolation(err) {
			src, lookupErr := s.resolve(ctx, s.db, name)
			return src, false, lookupErr
		}
		return Source{}, false, err
	}
	return reg.src, reg.created, nil
}

func (s *sqlStore) Sources(ctx context.Context) ([]Source, error) {
	return s.sources(ctx, s.db)
}

func (s *sqlStore) sources(ctx context.Context, q repository.Querier) ([]Source, error) {
	return repository.QueryMany(ctx, q,
		"SELECT name, kind, created_at FROM sources ORDER BY created_at, name",
		nil, scanSource)
}

func (s *sqlStore) resolve(ctx context.Context, q repository.Querier, name string) (Source, error) {
	src, err := repository.QueryOne(ctx, q,
		s.q("SELECT name, kind, created_at FROM sources WHERE name_key = ?"),
		[]any{s.match.Key(name)}, scanSource)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return src, err
}

func (s *sqlStore) Put(ctx context.Context, e Entry) error {
	upsertQ := s.q(`
		INSERT INTO labels (sentence_id, source, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sentence_id, source) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)
	eventQ := s.q(`
		INSERT INTO label_events (id, sentence_id, source, value, written_at)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		src, err := s.resolve(ctx, tx, e.Source)
		if err != nil {
			return struct{}{}, err
		}

		var one int
		err = tx.QueryRowContext(ctx, s.q("SELECT 1 FROM sentences WHERE id = ?"), e.SentenceID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return struct{}{}, fmt.Errorf("%w: %d", ErrUnknownSentence, e.SentenceID)
		}
		if err != nil {
			return struct{}{}, fmt.Errorf("lookup sentence: %w", err)
		}

		at := e.UpdatedAt
		if at.IsZero() {
			at = s.now()
		}
		at = at.UTC()

		if _, err := tx.ExecContext(ctx, upsertQ, e.SentenceID, src.Name, int(e.Value), at); err != nil {
			return struct{}{}, fmt.Errorf("upsert label: %w", err)
		}

		if s.audit {
			if _, err := tx.ExecContext(ctx, eventQ, uuid.New(), e.SentenceID, src.Name, int(e.Value), at); err != nil {
				return struct{}{}, fmt.Errorf("append label event: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (s *sqlStore) Labels(ctx context.Context, source string) (map[int]Value, error) {
	src, err := s.resolve(ctx, s.db, source)
	if err != nil {
		return nil, err
	}

	entries, err := repository.QueryMany(ctx, s.db,
		s.q("SELECT sentence_id, source, value FROM labels WHERE source = ?"),
		[]any{src.Name}, scanLabel)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}

	out := make(map[int]Value, len(entries))
	for _, e := range entries {
		out[e.SentenceID] = e.Value
	}
	return out, nil
}

// snapshotTx makes the three snapshot queries observe one point in time.
var snapshotTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (s *sqlStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	return repository.WithTxOptions(ctx, s.db, snapshotTx, func(tx *sql.Tx) (*Snapshot, error) {
		records, err := s.records(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("query sentences: %w", err)
		}

		sources, err := s.sources(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("query sources: %w", err)
		}

		entries, err := repository.QueryMany(ctx, tx,
			"SELECT sentence_id, source, value FROM labels", nil, scanLabel)
		if err != nil {
			return nil, fmt.Errorf("query labels: %w", err)
		}

		labels := make(map[string]map[int]Value, len(sources))
		for _, src := range sources {
			labels[src.Name] = make(map[int]Value)
		}
		for _, e := range entries {
			if m, ok := labels[e.Source]; ok {
				m[e.SentenceID] = e.Value
			}
		}

		return &Snapshot{Records: records, Sources: sources, Labels: labels}, nil
	})
}

func (s *sqlStore) Close() error {
	return nil
}

func scanRecord(sc repository.Scanner) (corpus.Record, error) {
	var r corpus.Record
	var date sql.NullString
	if err := sc.Scan(&r.ID, &date, &r.Text); err != nil {
		return r, err
	}
	if date.Valid && date.String != "" {
		d, err := corpus.ParseDate(date.String)
		if err != nil {
			return r, fmt.Errorf("sentence %d: %w", r.ID, err)
		}
		r.Date = &d
	}
	return r, nil
}

func scanSource(sc repository.Scanner) (Source, error) {
	var src Source
	var kind string
	if err := sc.Scan(&src.Name, &kind, &src.CreatedAt); err != nil {
		return src, err
	}
	src.Kind = Kind(kind)
	return src, nil
}

func scanLabel(sc repository.Scanner) (Entry, error) {
	var e Entry
	var v int
	if err := sc.Scan(&e.SentenceID, &e.Source, &v); err != nil {
		return e, err
	}
	e.Value = Value(v)
	return e, nil
}
