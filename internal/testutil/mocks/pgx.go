package mocks

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Rows serves fixed rows. Scan copies each value into the destination of
// the same position, so a row must carry the exact Go types being scanned.
type Rows struct {
	Data [][]any
	pos  int
}

func (r *Rows) Close()                                       {}
func (r *Rows) Err() error                                   { return nil }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }
func (r *Rows) Values() ([]any, error)                       { return r.Data[r.pos-1], nil }

func (r *Rows) Next() bool {
	if r.pos >= len(r.Data) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.Data) {
		return pgx.ErrNoRows
	}
	row := r.Data[r.pos-1]
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

// DB answers every query with Rows and every exec with the next queued
// command tag. Executed statements are kept in Execs.
type DB struct {
	Rows [][]any
	Tags []string

	mu    sync.Mutex
	Execs []string
}

func (db *DB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Execs = append(db.Execs, sql)
	tag := db.Tags[0]
	db.Tags = db.Tags[1:]
	return pgconn.NewCommandTag(tag), nil
}

func (db *DB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &Rows{Data: db.Rows}, nil
}

func (db *DB) QueryRow(context.Context, string, ...any) pgx.Row {
	return &Rows{Data: db.Rows, pos: 1}
}

// OutcomeRow builds a call_outcomes row in the column order the outcome
// repository selects.
func OutcomeRow(id, ownerID, campaignID uuid.UUID, status, disposition string, created time.Time) []any {
	return []any{
		id, ownerID, &campaignID, (*uuid.UUID)(nil), "+13125550100", status, disposition,
		false, created, (*time.Time)(nil), (*time.Time)(nil), (*int)(nil),
	}
}
