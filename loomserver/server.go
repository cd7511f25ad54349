// Package loomserver holds the top-level Server: a map from port to a
// (router, listening socket) pair, with one accept-loop task per port
// spawned on the owning scheduler.
package loomserver

import (
	"crypto/tls"
	"strconv"
	"sync"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/httpcore"
	"github.com/matgreaves/loom/loomerr"
	"github.com/matgreaves/loom/netio"
	"github.com/matgreaves/loom/tlsio"
)

// attachment pairs a router with the listening socket serving it, once
// Listen has run, and an optional TLS identity the accept loop terminates
// before handing the connection to the router.
type attachment struct {
	router    *httpcore.Router
	tlsConfig *tls.Config
	listener  *netio.Socket
}

// Server holds a scheduler and the port → (router, listening socket) map.
type Server struct {
	s    *sched.Scheduler
	host string

	mu        sync.Mutex
	ports     map[int]*attachment
	listening bool
}

// New returns a Server that will listen on host (e.g. "0.0.0.0" or
// "127.0.0.1") and drive every attached router's connections on s.
func New(s *sched.Scheduler, host string) *Server {
	return &Server{s: s, host: host, ports: map[int]*attachment{}}
}

// AttachRouter associates router with port. It fails with AlreadyExists
// if port is already attached, or FailedPrecondition if Listen has
// already run.
func (srv *Server) AttachRouter(port int, router *httpcore.Router) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.listening {
		return loomerr.New(loomerr.FailedPrecondition, "cannot attach a router to port %d after Listen", port)
	}
	if _, exists := srv.ports[port]; exists {
		return loomerr.New(loomerr.AlreadyExists, "port %d already has an attached router", port)
	}
	srv.ports[port] = &attachment{router: router}
	return nil
}

// AttachSecureRouter is AttachRouter plus a TLS identity: every connection
// accepted on port is terminated with tlsConfig (via tlsio.Server) before
// router ever sees it, so the router's own code has no TLS awareness.
func (srv *Server) AttachSecureRouter(port int, router *httpcore.Router, tlsConfig *tls.Config) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.listening {
		return loomerr.New(loomerr.FailedPrecondition, "cannot attach a router to port %d after Listen", port)
	}
	if _, exists := srv.ports[port]; exists {
		return loomerr.New(loomerr.AlreadyExists, "port %d already has an attached router", port)
	}
	srv.ports[port] = &attachment{router: router, tlsConfig: tlsConfig}
	return nil
}

// Listen opens a listening socket for every attached port.
func (srv *Server) Listen() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.listening {
		return loomerr.New(loomerr.FailedPrecondition, "Listen has already run")
	}

	for port, att := range srv.ports {
		ln, err := netio.Listen(netio.Address{Host: srv.host, Service: strconv.Itoa(port)})
		if err != nil {
			return loomerr.Wrap(loomerr.Internal, "listen on port "+strconv.Itoa(port), err)
		}
		att.listener = ln
	}
	srv.listening = true
	return nil
}

// Run spawns one accept-loop Task per listening port on the Server's
// scheduler and then drives the scheduler to completion.
func (srv *Server) Run() error {
	srv.mu.Lock()
	if !srv.listening {
		srv.mu.Unlock()
		return loomerr.New(loomerr.FailedPrecondition, "Listen must run before Run")
	}
	attachments := make([]*attachment, 0, len(srv.ports))
	for _, att := range srv.ports {
		attachments = append(attachments, att)
	}
	srv.mu.Unlock()

	for _, att := range attachments {
		att := att
		task := co.New(func(c *co.Ctx) (struct{}, error) {
			srv.acceptLoop(c, att)
			return struct{}{}, nil
		})
		if err := srv.s.Spawn(task); err != nil {
			return err
		}
	}

	return srv.s.Run()
}

// acceptLoop accepts connections on att.listener forever, spawning one
// Task per connection that runs att.router's request loop.
func (srv *Server) acceptLoop(c *co.Ctx, att *attachment) {
	for {
		conn, err := att.listener.Accept(srv.s, c)
		if err != nil {
			return
		}
		router := att.router
		tlsConfig := att.tlsConfig
		connTask := co.New(func(connCtx *co.Ctx) (struct{}, error) {
			if tlsConfig == nil {
				router.Run(srv.s, connCtx, conn)
				return struct{}{}, nil
			}
			adapter := tlsio.Server(srv.s, conn, tlsConfig)
			defer adapter.Close()
			if err := adapter.Handshake(connCtx); err != nil {
				return struct{}{}, nil
			}
			router.Run(srv.s, connCtx, adapter)
			return struct{}{}, nil
		})
		if err := srv.s.Spawn(connTask); err != nil {
			conn.Close()
		}
	}
}

// TryClose closes every listening socket and reports true only if every
// attached router currently reports zero connections; with any connection
// still in flight it closes nothing and reports false.
func (srv *Server) TryClose() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	for _, att := range srv.ports {
		if att.router.ConnectionCount() != 0 {
			return false
		}
	}
	srv.closeListeners()
	return true
}

// ForceClose closes every listening socket and stops the scheduler
// regardless of in-flight connections.
func (srv *Server) ForceClose() {
	srv.mu.Lock()
	srv.closeListeners()
	srv.mu.Unlock()
	srv.s.Stop()
}

// closeListeners closes every attached listening socket. Caller must
// hold srv.mu.
func (srv *Server) closeListeners() {
	for _, att := range srv.ports {
		if att.listener != nil {
			att.listener.Close()
		}
	}
}
