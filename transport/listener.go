package transport

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/store"
)

// Server accepts incoming connections and answers each one's bulk_pull
// request against a store snapshot, playing the peer role
// ascending.Attempt dials out to. Adapted from the teacher's
// Node.acceptLoop: one goroutine per connection, request-then-respond,
// then close — there is no multiplexed session state to keep per peer.
type Server struct {
	store     store.Store
	tlsConfig *tls.Config

	mu       sync.Mutex
	listener net.Listener
	stopCh   chan struct{}
}

// NewServer returns a Server that answers bulk_pull requests from st.
// tlsConfig may be nil for plain TCP.
func NewServer(st store.Store, tlsConfig *tls.Config) *Server {
	return &Server{store: st, tlsConfig: tlsConfig, stopCh: make(chan struct{})}
}

// Listen starts accepting connections on addr. Returns once the listener
// is bound; the accept loop runs in the background until Close.
func (s *Server) Listen(addr string) error {
	var ln net.Listener
	var err error
	if s.tlsConfig != nil {
		ln, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, useful when Listen was given
// port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	close(s.stopCh)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.Printf("transport: accept error: %v", err)
				return
			}
		}
		go s.serveOne(conn)
	}
}

func (s *Server) serveOne(conn net.Conn) {
	defer conn.Close()

	var header [2]byte
	if _, err := conn.Read(header[:]); err != nil {
		return
	}
	if header[0] != msgTypeBulkPull {
		return
	}
	req, err := block.DecodeBulkPullRequest(conn)
	if err != nil {
		return
	}
	snap, err := s.store.NewSnapshot()
	if err != nil {
		log.Printf("transport: snapshot for bulk_pull: %v", err)
		return
	}
	if err := WriteBulkPullResponse(conn, snap, req); err != nil {
		log.Printf("transport: write bulk_pull response: %v", err)
	}
}
