//go:build linux

package netio

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/ev"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/loomerr"
)

// Address names a connection endpoint as a hostname plus a service
// (port number or name), the pair getaddrinfo-style resolution accepts.
type Address struct {
	Host    string
	Service string
}

func (a Address) String() string { return net.JoinHostPort(a.Host, a.Service) }

// Socket is a thin non-blocking wrapper over a connected or listening TCP
// endpoint — the canonical CoStream every other layer (BufferedReader, the
// TLS adapter, the HTTP router) is written against.
type Socket struct {
	fd     int
	closed bool
	eof    bool
}

// Listen binds and listens on addr. Failures surface as the mapped
// canonical system error kind rather than a panic.
func Listen(addr Address) (*Socket, error) {
	resolved, err := net.ResolveTCPAddr("tcp", addr.String())
	if err != nil {
		return nil, loomerr.New(loomerr.InvalidArgument, "resolving %s: %v", addr, err)
	}

	domain := unix.AF_INET
	if resolved.IP != nil && resolved.IP.To4() == nil {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, loomerr.WrapErrno("socket", err.(unix.Errno))
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, loomerr.Wrap(loomerr.Internal, "setsockopt(SO_REUSEADDR)", err)
	}

	sa, err := sockaddr(domain, resolved)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, loomerr.WrapErrno("bind", err.(unix.Errno))
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, loomerr.WrapErrno("listen", err.(unix.Errno))
	}
	return &Socket{fd: fd}, nil
}

func sockaddr(domain int, addr *net.TCPAddr) (unix.Sockaddr, error) {
	if domain == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], addr.IP.To16())
		return sa, nil
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	ip := addr.IP.To4()
	if ip == nil {
		ip = net.IPv4zero.To4()
	}
	copy(sa.Addr[:], ip)
	return sa, nil
}

// Accept suspends until a connection is ready, yielding a new connected
// Socket.
func (sock *Socket) Accept(s *sched.Scheduler, c *co.Ctx) (*Socket, error) {
	if sock.closed {
		return nil, loomerr.New(loomerr.FailedPrecondition, "Accept called on a closed socket")
	}
	for {
		childFd, _, err := unix.Accept4(sock.fd, unix.SOCK_NONBLOCK)
		if err == nil {
			return &Socket{fd: childFd}, nil
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return nil, loomerr.WrapErrno("accept4", err.(unix.Errno))
		}
		if werr := sched.WaitHandle(s, c, ev.Handle(sock.fd), ev.Readable); werr != nil {
			return nil, werr
		}
	}
}

// Connect resolves addr, and suspends until a non-blocking connect attempt
// succeeds. DNS resolution runs on a dedicated goroutine via sched.Go since
// net.ResolveTCPAddr blocks.
func Connect(s *sched.Scheduler, c *co.Ctx, addr Address) (*Socket, error) {
	resolveFuture := sched.Go(s, func() (*net.TCPAddr, error) {
		return net.ResolveTCPAddr("tcp", addr.String())
	})
	resolved, err := co.Await(c, resolveFuture)
	if err != nil {
		return nil, loomerr.Wrap(loomerr.NotFound, "resolving "+addr.String(), err)
	}

	domain := unix.AF_INET
	if resolved.IP.To4() == nil {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, loomerr.WrapErrno("socket", err.(unix.Errno))
	}
	sa, err := sockaddr(domain, resolved)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	connErr := unix.Connect(fd, sa)
	if connErr != nil && connErr != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, loomerr.WrapErrno("connect", connErr.(unix.Errno))
	}
	if connErr == unix.EINPROGRESS {
		if werr := sched.WaitHandle(s, c, ev.Handle(fd), ev.Writable); werr != nil {
			unix.Close(fd)
			return nil, werr
		}
		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			unix.Close(fd)
			return nil, loomerr.Wrap(loomerr.Internal, "getsockopt(SO_ERROR)", err)
		}
		if soErr != 0 {
			unix.Close(fd)
			return nil, loomerr.WrapErrno("connect", unix.Errno(soErr))
		}
	}
	return &Socket{fd: fd}, nil
}

// Read suspends until at least one byte is available, or returns 0 with
// Eof() becoming true.
func (sock *Socket) Read(s *sched.Scheduler, c *co.Ctx, buf []byte) (int, error) {
	if sock.closed {
		return 0, loomerr.New(loomerr.FailedPrecondition, "Read called on a closed socket")
	}
	for {
		n, err := unix.Read(sock.fd, buf)
		if err == nil {
			if n == 0 {
				sock.eof = true
			}
			return n, nil
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return 0, loomerr.WrapErrno("read", err.(unix.Errno))
		}
		if werr := sched.WaitHandle(s, c, ev.Handle(sock.fd), ev.Readable); werr != nil {
			return 0, werr
		}
	}
}

// Write suspends until at least one byte is sent. An EMSGSIZE error splits
// the buffer in half and retries both halves recursively.
func (sock *Socket) Write(s *sched.Scheduler, c *co.Ctx, buf []byte) (int, error) {
	if sock.closed {
		return 0, loomerr.New(loomerr.FailedPrecondition, "Write called on a closed socket")
	}
	return sock.doWrite(s, c, buf)
}

func (sock *Socket) doWrite(s *sched.Scheduler, c *co.Ctx, buf []byte) (int, error) {
	n, err := unix.Write(sock.fd, buf)
	if err == nil {
		return n, nil
	}
	if err == unix.EMSGSIZE {
		if len(buf) < 2 {
			return 0, loomerr.New(loomerr.ResourceExhausted, "message too large to send but too small to split")
		}
		half := len(buf) / 2
		first, err := sock.doWrite(s, c, buf[:half])
		if err != nil {
			return first, err
		}
		second, err := sock.doWrite(s, c, buf[half:])
		return first + second, err
	}
	if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		return 0, loomerr.WrapErrno("write", err.(unix.Errno))
	}
	if werr := sched.WaitHandle(s, c, ev.Handle(sock.fd), ev.Writable); werr != nil {
		return 0, werr
	}
	return sock.doWrite(s, c, buf)
}

// Eof reports whether the last Read returned zero bytes.
func (sock *Socket) Eof() bool { return sock.eof }

// Good reports whether the socket is open and hasn't seen EOF.
func (sock *Socket) Good() bool { return !sock.closed && !sock.eof }

// Handle exposes the raw OS descriptor so a caller can register it with its
// own Scheduler directly.
func (sock *Socket) Handle() ev.Handle { return ev.Handle(sock.fd) }

// LocalAddr reports the address the socket is bound to, useful after
// Listen(addr) with an ephemeral port ("0") to discover which port the
// kernel actually assigned.
func (sock *Socket) LocalAddr() (Address, error) {
	sa, err := unix.Getsockname(sock.fd)
	if err != nil {
		return Address{}, loomerr.Wrap(loomerr.Internal, "getsockname", err)
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(sa.Addr[:])
		return Address{Host: ip.String(), Service: strconv.Itoa(sa.Port)}, nil
	case *unix.SockaddrInet6:
		ip := net.IP(sa.Addr[:])
		return Address{Host: ip.String(), Service: strconv.Itoa(sa.Port)}, nil
	default:
		return Address{}, loomerr.New(loomerr.Internal, "unexpected sockaddr type %T", sa)
	}
}

// Close closes the socket. Calling Close twice is a precondition failure.
func (sock *Socket) Close() error {
	if sock.closed {
		return loomerr.New(loomerr.FailedPrecondition, "socket is already closed, cannot close again")
	}
	sock.closed = true
	return unix.Close(sock.fd)
}
