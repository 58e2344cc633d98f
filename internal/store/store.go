// Package store archives assembled events so they can be reviewed without
// going back to the console.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alertlogic-events/internal/chrono"
	"alertlogic-events/internal/events"
)

//go:embed schema.sql
var Schema string

var ErrNotFound = errors.New("event not found in archive")

type Store struct {
	db   *sql.DB
	time chrono.TimeAPI
}

func New(database *sql.DB) Store {
	return Store{
		db:   database,
		time: chrono.NewStandardTime(),
	}
}

// WithTime returns a copy of the store that timestamps events with t.
func (s Store) WithTime(t chrono.TimeAPI) Store {
	s.time = t
	return s
}

func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type Record struct {
	Event     events.Event
	FetchedAt time.Time
}

type Summary struct {
	ID            string
	CustomerID    string
	SignatureName string
	Severity      string
	Outcome       string
	FetchedAt     time.Time
}

// Put stores the event, replacing an earlier copy with the same id.
func (s Store) Put(ctx context.Context, event events.Event) error {
	contents, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("put %s: %w", event.ID, err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`insert into event (id, customer_id, url, signature_name, severity, outcome, fetched_at, contents)
		values (?, ?, ?, ?, ?, ?, ?, ?)
		on conflict (id) do update set
			customer_id = excluded.customer_id,
			url = excluded.url,
			signature_name = excluded.signature_name,
			severity = excluded.severity,
			outcome = excluded.outcome,
			fetched_at = excluded.fetched_at,
			contents = excluded.contents`,
		event.ID,
		event.CustomerID,
		event.URL,
		event.Details.SignatureName,
		event.Details.Severity,
		event.Payload.Decompressed.Kind.String(),
		s.time.Now().UnixMilli(),
		string(contents),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", event.ID, err)
	}
	return nil
}

func (s Store) Get(ctx context.Context, id string) (Record, error) {
	var contents string
	var fetchedAt int64
	err := s.db.QueryRowContext(
		ctx,
		"select contents, fetched_at from event where id = ?",
		id,
	).Scan(&contents, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}

	var event events.Event
	err = json.Unmarshal([]byte(contents), &event)
	if err != nil {
		return Record{}, fmt.Errorf("get %s: decode: %w", id, err)
	}
	return Record{
		Event:     event,
		FetchedAt: time.UnixMilli(fetchedAt).UTC(),
	}, nil
}

// List returns the most recently fetched events first.
func (s Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select id, customer_id, signature_name, severity, outcome, fetched_at
		from event order by fetched_at desc, id limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var summary Summary
		var fetchedAt int64
		err := rows.Scan(
			&summary.ID,
			&summary.CustomerID,
			&summary.SignatureName,
			&summary.Severity,
			&summary.Outcome,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		summary.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return out, nil
}
