package main

import (
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/httpcore"
	"github.com/matgreaves/loom/loomserver"
	"github.com/matgreaves/loom/netio"
)

func newTestScheduler(t *testing.T) *sched.Scheduler {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	s, err := sched.New()
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	return s
}

// roundTrip spawns a client task that writes req over a fresh connection to
// port and returns whatever comes back before forcing the server closed.
func roundTrip(t *testing.T, s *sched.Scheduler, srv *loomserver.Server, port int, req string) string {
	t.Helper()

	var response string
	var clientErr error
	clientTask := co.New(func(c *co.Ctx) (struct{}, error) {
		defer srv.ForceClose()
		conn, err := netio.Connect(s, c, netio.Address{Host: "127.0.0.1", Service: strconv.Itoa(port)})
		if err != nil {
			clientErr = err
			return struct{}{}, nil
		}
		defer conn.Close()
		if _, err := conn.Write(s, c, []byte(req)); err != nil {
			clientErr = err
			return struct{}{}, nil
		}
		buf := make([]byte, 8192)
		n, err := conn.Read(s, c, buf)
		if err != nil {
			clientErr = err
			return struct{}{}, nil
		}
		response = string(buf[:n])
		return struct{}{}, nil
	})
	if err := s.Spawn(clientTask); err != nil {
		t.Fatalf("spawn client: %v", err)
	}
	if err := srv.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if clientErr != nil {
		t.Fatalf("client: %v", clientErr)
	}
	return response
}

func TestEchoGetReturnsRawPath(t *testing.T) {
	s := newTestScheduler(t)
	defer s.Close()

	rt := httpcore.NewRouter(nil)
	mustAttach(rt, "/echo", echoFactory{})
	srv := loomserver.New(s, "127.0.0.1")
	if err := srv.AttachRouter(19501, rt); err != nil {
		t.Fatalf("AttachRouter: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	resp := roundTrip(t, s, srv, 19501, "GET /echo?x=1 HTTP/1.1\r\n\r\n")
	if !strings.Contains(resp, "Content-Length: 9\r\n") || !strings.HasSuffix(resp, "/echo?x=1") {
		t.Fatalf("response = %q, want Content-Length: 9 and body /echo?x=1", resp)
	}
}

func TestEchoPostEchoesBody(t *testing.T) {
	s := newTestScheduler(t)
	defer s.Close()

	rt := httpcore.NewRouter(nil)
	mustAttach(rt, "/echo", echoFactory{})
	srv := loomserver.New(s, "127.0.0.1")
	if err := srv.AttachRouter(19502, rt); err != nil {
		t.Fatalf("AttachRouter: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	req := "POST /echo HTTP/1.1\r\nContent-Length: 6\r\n\r\nfoobar"
	resp := roundTrip(t, s, srv, 19502, req)
	if !strings.Contains(resp, "HTTP/1.1 200 OK") || !strings.HasSuffix(resp, "foobar") {
		t.Fatalf("response = %q, want 200 OK ... foobar", resp)
	}
}

func TestAuthorRouteCapturesUintID(t *testing.T) {
	s := newTestScheduler(t)
	defer s.Close()

	rt := httpcore.NewRouter(nil)
	mustAttach(rt, "/authors/:[uint]id", authorFactory{})
	srv := loomserver.New(s, "127.0.0.1")
	if err := srv.AttachRouter(19503, rt); err != nil {
		t.Fatalf("AttachRouter: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	resp := roundTrip(t, s, srv, 19503, "GET /authors/42 HTTP/1.1\r\n\r\n")
	if !strings.Contains(resp, "HTTP/1.1 200 OK") || !strings.HasSuffix(resp, "author 42") {
		t.Fatalf("response = %q, want 200 OK ... author 42", resp)
	}
}

func TestAuthorRouteRejectsNonNumeric(t *testing.T) {
	s := newTestScheduler(t)
	defer s.Close()

	rt := httpcore.NewRouter(nil)
	mustAttach(rt, "/authors/:[uint]id", authorFactory{})
	srv := loomserver.New(s, "127.0.0.1")
	if err := srv.AttachRouter(19504, rt); err != nil {
		t.Fatalf("AttachRouter: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	resp := roundTrip(t, s, srv, 19504, "GET /authors/abc HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 404") || !strings.HasSuffix(resp, "Not Found.") {
		t.Fatalf("response = %q, want 404 ... Not Found.", resp)
	}
}
