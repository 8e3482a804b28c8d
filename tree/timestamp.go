package tree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

/*
TimestampAllocator supplies the tree-scoped monotone counter §3 requires:
every write stamps its Message with a fresh timestamp, and 0 is reserved as
the message.RangeStart sentinel, so the first timestamp an allocator hands
out must be 1. Two implementations are provided, mirroring the teacher's
versionstore package almost exactly: an in-memory counter for tests and
single-process use, and a SQL-backed counter (grounded on
versionstore.sqlversionstore's reserve/UPDATE...RETURNING pattern) for a
durable, crash-resumable allocator that survives process restarts without
replaying every write since the tree was created.
*/

////////////////////////////////////////////////////////////////////////////////

// TimestampAllocator mints fresh, strictly increasing timestamps for a
// single tree. Implementations must never return 0.
type TimestampAllocator interface {
	Next(ctx context.Context) (uint64, error)
}

// memoryTimestampAllocator is a process-local monotone counter, scoped to
// the Tree value that owns it rather than to the process as a whole, per
// §9's "keep independent trees independent."
type memoryTimestampAllocator struct {
	mtx  sync.Mutex
	next uint64
}

// NewMemoryTimestampAllocator returns a TimestampAllocator backed by an
// in-memory counter. It is the default installed by New.
func NewMemoryTimestampAllocator() TimestampAllocator {
	return &memoryTimestampAllocator{next: 1}
}

func (a *memoryTimestampAllocator) Next(_ context.Context) (uint64, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	t := a.next
	a.next++
	return t, nil
}

// sqlTimestampAllocator reserves timestamps in batches from a SQL table,
// so a durable tree does not need a database round trip on every single
// write. Grounded on the teacher's versionstore.sqlversionstore: the same
// "UPDATE ... RETURNING counter" reservation dance, with a fallback INSERT
// for the first reservation ever made against a fresh table.
type sqlTimestampAllocator struct {
	db              *sql.DB
	reservationSize int

	mtx         sync.Mutex
	initialized bool
	cur, max    uint64
}

// NewSQLTimestampAllocator returns a TimestampAllocator backed by db,
// reserving reservationSize timestamps at a time. The only database this
// has been exercised against is SQLite, matching the teacher's own
// versionstore disclaimer.
func NewSQLTimestampAllocator(db *sql.DB, reservationSize int) TimestampAllocator {
	if reservationSize < 1 {
		reservationSize = 1
	}
	return &sqlTimestampAllocator{db: db, reservationSize: reservationSize}
}

func (a *sqlTimestampAllocator) initialize(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx,
		"create table if not exists betree_timestamps (counter bigint not null)"); err != nil {
		return fmt.Errorf("failed to create timestamps table: %w", err)
	}
	if err := a.reserve(ctx, a.reservationSize); err != nil {
		return fmt.Errorf("failed to reserve initial timestamps: %w", err)
	}
	a.initialized = true
	return nil
}

func (a *sqlTimestampAllocator) reserve(ctx context.Context, n int) error {
	var newMax uint64
	err := a.db.QueryRowContext(ctx,
		"update betree_timestamps set counter = counter + $1 returning counter", n).Scan(&newMax)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to update timestamp counter: %w", err)
		}
		err = a.db.QueryRowContext(ctx,
			"insert into betree_timestamps (counter) values ($1) returning counter", n).Scan(&newMax)
		if err != nil {
			return fmt.Errorf("failed to initialize timestamp counter: %w", err)
		}
	}
	a.max = newMax
	a.cur = newMax - uint64(n)
	return nil
}

// Next returns the next timestamp, reserving a fresh batch from the
// database whenever the current reservation is exhausted. Timestamps start
// at 1, since 0 is message.RangeStart's sentinel.
func (a *sqlTimestampAllocator) Next(ctx context.Context) (uint64, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if !a.initialized {
		if err := a.initialize(ctx); err != nil {
			return 0, err
		}
	}
	a.cur++
	if a.cur > a.max {
		if err := a.reserve(ctx, a.reservationSize); err != nil {
			return 0, err
		}
		a.cur++
	}
	return a.cur, nil
}
