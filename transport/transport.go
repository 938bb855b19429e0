// Package transport supplies ascending.Attempt with borrowed connections
// to bootstrap peers and the bulk_pull wire framing described in spec §6.
// It replaces the teacher's length-prefixed JSON peer protocol with the
// block lattice's binary bulk_pull request/response framing, but keeps
// the teacher's dial/pool/deadline shape.
package transport

import (
	"context"
	"errors"

	"github.com/tolelom/latticenode/block"
)

// ErrNoPeer is returned by Dial when no bootstrap peer is configured.
// ascending.Attempt treats this as a graceful stop, not a
// retryable error.
var ErrNoPeer = errors.New("transport: no bootstrap peer available")

// Conn is a connection borrowed for the duration of one bulk_pull
// request/response cycle. A caller that hits a read or write error must
// Close it rather than Release it back to the pool.
type Conn interface {
	// Request writes one bulk_pull request frame.
	Request(req block.BulkPullRequest) error

	// ReadBlock reads the next block of the response stream. A clean
	// peer-signalled end of stream is reported as (nil, nil), mirroring
	// block.ReadBlock.
	ReadBlock() (*block.Block, error)

	// Close tears down the underlying socket. Not safe to use conn
	// afterward.
	Close() error
}

// Transport is what ascending.Attempt depends on for connection lifetime:
// an idle pool of reusable connections plus a way to dial a fresh one.
type Transport interface {
	// Idle returns a pooled idle connection, if one exists.
	Idle() (Conn, bool)

	// Release returns conn to the idle pool for reuse by a later
	// request. Only call this after a clean peer EOF.
	Release(conn Conn)

	// Dial borrows or opens a new connection to a bootstrap peer. Returns
	// ErrNoPeer if no peer is configured at all; a configured peer that
	// is merely unreachable returns a different, non-ErrNoPeer error so
	// callers can distinguish "give up" from "skip this one and go on".
	Dial(ctx context.Context) (Conn, error)
}
