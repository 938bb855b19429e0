package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tolelom/latticenode/block"
)

// readDeadline bounds a single socket read the way the teacher's Peer.Receive
// does, so a stalled peer surfaces as an error instead of hanging the
// attempt's read pipeline forever (spec §5: "the transport is expected to
// surface stalled reads as socket errors").
const readDeadline = 30 * time.Second

// Message type and flag bits for the bulk_pull request header: one type
// byte followed by one flag byte, then the 68-byte block.BulkPullRequest
// frame.
const (
	msgTypeBulkPull  byte = 0x0c
	flagAscending    byte = 0x01
	flagCountPresent byte = 0x02
)

// TCPDialer is the reference Transport: plain or TLS TCP to a fixed list
// of bootstrap peer addresses, round-robined, with an idle connection
// pool guarded by a mutex (never shared across attempts, per spec §5).
type TCPDialer struct {
	tlsConfig *tls.Config
	peers     []string

	mu       sync.Mutex
	idle     []*tcpConn
	nextPeer int
}

// NewTCPDialer returns a Transport dialing peers in round-robin order.
// tlsConfig may be nil for plain TCP.
func NewTCPDialer(peers []string, tlsConfig *tls.Config) *TCPDialer {
	return &TCPDialer{peers: peers, tlsConfig: tlsConfig}
}

func (d *TCPDialer) Idle() (Conn, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.idle) == 0 {
		return nil, false
	}
	n := len(d.idle) - 1
	c := d.idle[n]
	d.idle = d.idle[:n]
	return c, true
}

func (d *TCPDialer) Release(conn Conn) {
	c, ok := conn.(*tcpConn)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idle = append(d.idle, c)
}

func (d *TCPDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	if len(d.peers) == 0 {
		d.mu.Unlock()
		return nil, ErrNoPeer
	}
	addr := d.peers[d.nextPeer%len(d.peers)]
	d.nextPeer++
	d.mu.Unlock()

	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		// A configured peer that's unreachable is a per-connection
		// failure, not ErrNoPeer: spec.md §5 — "the attempt does not
		// retry the specific peer", but the attempt itself continues.
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	conn := raw
	if d.tlsConfig != nil {
		tlsConn := tls.Client(raw, d.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, fmt.Errorf("transport: tls handshake with %s: %w", addr, err)
		}
		conn = tlsConn
	}

	return &tcpConn{id: uuid.NewString(), conn: conn, r: bufio.NewReader(conn)}, nil
}

// tcpConn is one borrowed connection, good for exactly one
// request-then-stream-then-EOF cycle before being Released or Closed
// (spec §5: "on a single socket the protocol is strictly
// request-then-stream-then-EOF before the next request"). id exists
// purely for log correlation, the same role the per-request uuid plays
// in ascending's read pipeline.
type tcpConn struct {
	id   string
	conn net.Conn
	r    *bufio.Reader
}

// ID returns the connection's log-correlation identifier.
func (c *tcpConn) ID() string { return c.id }

func (c *tcpConn) Request(req block.BulkPullRequest) error {
	if _, err := c.conn.Write([]byte{msgTypeBulkPull, flagAscending | flagCountPresent}); err != nil {
		return fmt.Errorf("transport: write bulk_pull header: %w", err)
	}
	if err := req.Encode(c.conn); err != nil {
		return fmt.Errorf("transport: write bulk_pull request: %w", err)
	}
	return nil
}

func (c *tcpConn) ReadBlock() (*block.Block, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	return block.ReadBlock(c.r)
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}
