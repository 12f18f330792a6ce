// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package sqlite implements a durable event log on SQLite (WAL mode).
// Several processes may share the database file; subscribers poll to
// observe writes made by other processes.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/atomic"

	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - events table
const currentSchemaVersion = 1

const (
	columns = `global_position, stream_name, stream_position, swimlane, id_tag, entity_id,
		event_type, payload, event_id, correlation_id, causation_id, actor_id, created_at`

	defaultPollInterval = time.Second
)

// Log is a SQLite backed event log.
type Log struct {
	db           *sql.DB
	notifier     *eventlog.Notifier
	maxPayload   int
	pageSize     int
	pollInterval time.Duration
	closed       *atomic.Bool
}

// enforce compilation error
var _ eventlog.Log = (*Log)(nil)

// Option configures the SQLite log.
type Option func(*Log)

// WithMaxPayload sets the maximum payload size in bytes. Zero disables the check.
func WithMaxPayload(size int) Option {
	return func(l *Log) { l.maxPayload = size }
}

// WithPageSize sets the number of rows read per query.
func WithPageSize(size int) Option {
	return func(l *Log) { l.pageSize = size }
}

// WithPollInterval sets how often subscribers poll for writes made by
// other processes. Zero disables polling.
func WithPollInterval(interval time.Duration) Option {
	return func(l *Log) { l.pollInterval = interval }
}

// Open creates or opens the database at the given path and applies the
// schema. Write transactions take the database lock immediately.
func Open(path string, opts ...Option) (*Log, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &Log{
		db:           db,
		notifier:     eventlog.NewNotifier(),
		pageSize:     eventlog.DefaultPageSize,
		pollInterval: defaultPollInterval,
		closed:       atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Insert appends events to the stream of id in one transaction.
func (l *Log) Insert(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID, mode eventlog.InsertionMode, events []eventlog.Candidate) (*eventlog.InsertResult, error) {
	streamName := identity.StreamName(swimlane, id)
	fail := func(err error) error {
		return eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
	}

	if err := l.guard(ctx); err != nil {
		return nil, fail(err)
	}

	if err := eventlog.Validate(streamName, events, l.maxPayload); err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fail(err)
	}
	defer func() { _ = tx.Rollback() }()

	var revision int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(stream_position), -1) FROM events WHERE stream_name = ?`, streamName).
		Scan(&revision); err != nil {
		return nil, fail(err)
	}

	if err := eventlog.Check(streamName, mode, revision); err != nil {
		return nil, err
	}

	var global int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(global_position), -1) + 1 FROM events`).Scan(&global); err != nil {
		return nil, fail(err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fail(err)
	}
	defer stmt.Close()

	position := revision + 1
	for _, event := range events {
		createdAt := event.Metadata.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		payload := event.Payload
		if payload == nil {
			payload = []byte{}
		}

		if _, err := stmt.ExecContext(ctx,
			global, streamName, position, string(swimlane), id.Tag(), id.StreamID(),
			event.EventType, payload, event.Metadata.EventID, event.Metadata.CorrelationID,
			event.Metadata.CausationID, event.Metadata.ActorID, createdAt.UnixNano()); err != nil {
			return nil, fail(err)
		}
		global++
		position++
	}

	if err := tx.Commit(); err != nil {
		return nil, fail(err)
	}

	l.notifier.Notify()
	return &eventlog.InsertResult{
		GlobalPosition: uint64(global - 1),
		StreamPosition: uint64(position - 1),
	}, nil
}

// ReadStream reads a stream forwards from the given stream position.
func (l *Log) ReadStream(ctx context.Context, streamName string, from uint64) (eventlog.Cursor, error) {
	if err := l.guard(ctx); err != nil {
		return nil, err
	}

	var exists bool
	if err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE stream_name = ?)`, streamName).
		Scan(&exists); err != nil {
		return nil, fmt.Errorf("sqlite: read stream %s: %w", streamName, err)
	}
	if !exists {
		return nil, errors.NewErrStreamNotFound(streamName)
	}

	fetch := func(ctx context.Context, next uint64, limit int) (eventlog.Page, error) {
		if err := l.guard(ctx); err != nil {
			return eventlog.Page{}, err
		}

		records, err := l.query(ctx, `SELECT `+columns+` FROM events
			WHERE stream_name = ? AND stream_position >= ?
			ORDER BY stream_position ASC LIMIT ?`, streamName, int64(next), limit)
		if err != nil {
			return eventlog.Page{}, err
		}

		page := eventlog.Page{Records: records, Done: len(records) < limit}
		if len(records) > 0 {
			page.Next = records[len(records)-1].StreamPosition + 1
		}
		return page, nil
	}
	return eventlog.NewPagedCursor(fetch, from, l.pageSize), nil
}

// ReadAll reads the log in global order.
func (l *Log) ReadAll(ctx context.Context, from eventlog.Position, direction eventlog.Direction, swimlanes ...identity.Swimlane) (eventlog.Cursor, error) {
	head, exists, err := l.Head(ctx)
	if err != nil {
		return nil, err
	}

	first, ok := eventlog.FirstPosition(from, direction, head, exists)
	if !ok {
		return eventlog.EmptyCursor(), nil
	}

	query := `SELECT ` + columns + ` FROM events WHERE global_position >= ? ORDER BY global_position ASC LIMIT ?`
	if direction == eventlog.Backwards {
		query = `SELECT ` + columns + ` FROM events WHERE global_position <= ? ORDER BY global_position DESC LIMIT ?`
	}

	fetch := func(ctx context.Context, next uint64, limit int) (eventlog.Page, error) {
		if err := l.guard(ctx); err != nil {
			return eventlog.Page{}, err
		}

		rows, err := l.query(ctx, query, int64(next), limit)
		if err != nil {
			return eventlog.Page{}, err
		}

		page := eventlog.Page{Done: len(rows) < limit}
		for _, record := range rows {
			if eventlog.Owned(record.StreamName, swimlanes) {
				page.Records = append(page.Records, record)
			}
		}
		if len(rows) > 0 {
			var done bool
			page.Next, done = eventlog.Advance(rows[len(rows)-1].GlobalPosition, direction)
			page.Done = page.Done || done
		}
		return page, nil
	}
	return eventlog.NewPagedCursor(fetch, first, l.pageSize), nil
}

// SubscribeAll tails the log, polling for writes made by other processes.
func (l *Log) SubscribeAll(ctx context.Context, from eventlog.Position, swimlanes ...identity.Swimlane) (eventlog.Subscription, error) {
	if err := l.guard(ctx); err != nil {
		return nil, err
	}
	return eventlog.Tail(ctx, l, l.notifier, from, l.pollInterval, swimlanes...)
}

// Head returns the last global position.
func (l *Log) Head(ctx context.Context) (uint64, bool, error) {
	if err := l.guard(ctx); err != nil {
		return 0, false, err
	}

	var head sql.NullInt64
	if err := l.db.QueryRowContext(ctx, `SELECT MAX(global_position) FROM events`).Scan(&head); err != nil {
		return 0, false, fmt.Errorf("sqlite: read head: %w", err)
	}
	if !head.Valid {
		return 0, false, nil
	}
	return uint64(head.Int64), true, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.notifier.Notify()
	return l.db.Close()
}

func (l *Log) guard(ctx context.Context) error {
	if l.closed.Load() {
		return errors.ErrLogClosed
	}
	return ctx.Err()
}

func (l *Log) query(ctx context.Context, query string, args ...any) ([]*eventlog.Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query events: %w", err)
	}
	defer rows.Close()

	var records []*eventlog.Record
	for rows.Next() {
		var (
			record    eventlog.Record
			global    int64
			position  int64
			swimlane  string
			createdAt int64
		)
		if err := rows.Scan(&global, &record.StreamName, &position, &swimlane, &record.IDTag,
			&record.EntityID, &record.EventType, &record.Payload, &record.Metadata.EventID,
			&record.Metadata.CorrelationID, &record.Metadata.CausationID, &record.Metadata.ActorID,
			&createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan event: %w", err)
		}
		record.GlobalPosition = uint64(global)
		record.StreamPosition = uint64(position)
		record.Swimlane = identity.Swimlane(swimlane)
		record.Metadata.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, &record)
	}
	return records, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("sqlite: execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: read user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("sqlite: database schema version %d is newer than %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("sqlite: set user_version: %w", err)
	}
	return nil
}
