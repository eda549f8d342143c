package http

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// errPoolFull is returned by tryAdmit when the registry is at capacity.
	errPoolFull = errors.New("connection pool full")

	// errPoolClosed is returned by tryAdmit once shutdown has drained the registry.
	errPoolClosed = errors.New("connection pool closed")
)

// connRecord is the bookkeeping for one admitted connection and its worker.
//
// alive is the only field shared between the worker and the acceptor or
// shutdown path. done is closed by the worker on exit; receiving from it
// joins the worker.
type connRecord struct {
	id         string
	remoteAddr string
	conn       net.Conn
	alive      atomic.Bool
	cancel     context.CancelFunc
	done       chan struct{}
}

func newConnRecord(conn net.Conn, cancel context.CancelFunc) *connRecord {
	rec := &connRecord{
		id:         uuid.NewString(),
		remoteAddr: conn.RemoteAddr().String(),
		conn:       conn,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	rec.alive.Store(true)
	return rec
}

func (r *connRecord) isAlive() bool {
	return r.alive.Load()
}

// markDead flips the liveness flag and cancels the connection context.
func (r *connRecord) markDead() {
	r.alive.Store(false)
	r.cancel()
}

// finished reports whether the worker has exited.
func (r *connRecord) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// connRegistry tracks admitted connections in arrival order.
//
// reap, tryAdmit and drain are the only mutation points. The mutex is held
// for the slice operation only, never across I/O or while joining workers.
type connRegistry struct {
	mu      sync.Mutex
	max     int
	records []*connRecord
	closed  bool
}

func newConnRegistry(max int) *connRegistry {
	return &connRegistry{max: max}
}

// reap removes records whose liveness flag is false and returns how many
// were removed.
func (g *connRegistry) reap() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	kept := g.records[:0]
	for _, rec := range g.records {
		if rec.isAlive() {
			kept = append(kept, rec)
		}
	}
	reaped := len(g.records) - len(kept)

	// Clear the tail so reaped records can be collected.
	for i := len(kept); i < len(g.records); i++ {
		g.records[i] = nil
	}
	g.records = kept
	return reaped
}

// tryAdmit appends rec when the registry holds fewer than max records.
func (g *connRegistry) tryAdmit(rec *connRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return errPoolClosed
	}
	if len(g.records) >= g.max {
		return errPoolFull
	}
	g.records = append(g.records, rec)
	return nil
}

// count returns the number of records, including dead ones not yet reaped.
func (g *connRegistry) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// drain closes the registry to further admissions and returns every record
// it held. Subsequent calls return nil.
func (g *connRegistry) drain() []*connRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	records := g.records
	g.records = nil
	return records
}
