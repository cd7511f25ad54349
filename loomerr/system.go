package loomerr

import (
	"golang.org/x/sys/unix"
)

// FromErrno maps an OS errno to a canonical Kind, following the fixed
// table described in the error-handling design: EAGAIN → Aborted,
// ETIMEDOUT → DeadlineExceeded, EACCES → PermissionDenied, ENOENT →
// NotFound, EINVAL → InvalidArgument, ENOMEM → ResourceExhausted, etc.
func FromErrno(errno unix.Errno) Kind {
	switch errno {
	case unix.EAGAIN, unix.ECONNABORTED, unix.EDEADLK, unix.ENETRESET:
		return Aborted

	case unix.EALREADY, unix.EEXIST, unix.EINPROGRESS:
		return AlreadyExists

	case unix.ECANCELED, unix.ECONNRESET, unix.EINTR:
		return Cancelled

	case unix.ETIME, unix.ETIMEDOUT:
		return DeadlineExceeded

	case unix.EADDRINUSE, unix.EADDRNOTAVAIL, unix.EISCONN, unix.EISDIR,
		unix.ENOTCONN, unix.ENOTEMPTY, unix.ENOTTY, unix.EPIPE, unix.ESHUTDOWN:
		return FailedPrecondition

	case unix.EIO, unix.EIDRM:
		return Internal

	case unix.E2BIG, unix.EBADF, unix.EBADMSG, unix.EDESTADDRREQ,
		unix.EFAULT, unix.EILSEQ, unix.EINVAL, unix.ENAMETOOLONG,
		unix.ENOEXEC, unix.ENOTDIR, unix.ENOTSOCK, unix.EPROTOTYPE, unix.ESPIPE:
		return InvalidArgument

	case unix.ENODEV, unix.ENOENT, unix.ENOMSG, unix.ENXIO, unix.ESRCH:
		return NotFound

	case unix.EDOM, unix.ERANGE:
		return OutOfRange

	case unix.EACCES, unix.ECONNREFUSED, unix.EPERM, unix.EROFS:
		return PermissionDenied

	case unix.EDQUOT, unix.EFBIG, unix.ELOOP, unix.EMFILE, unix.EMLINK,
		unix.EMSGSIZE, unix.ENFILE, unix.ENOBUFS, unix.ENOLCK, unix.ENOMEM,
		unix.ENOSPC, unix.EOVERFLOW:
		return ResourceExhausted

	case unix.EBUSY, unix.EHOSTDOWN, unix.EHOSTUNREACH, unix.ENETDOWN,
		unix.ENETUNREACH, unix.ENOPROTOOPT:
		return Unavailable

	case unix.EAFNOSUPPORT, unix.ENOSYS, unix.ENOTSUP, unix.EPFNOSUPPORT,
		unix.EPROTONOSUPPORT, unix.ESOCKTNOSUPPORT:
		return Unimplemented

	case 0:
		return Kind(-1) // sentinel; callers should check errno != 0 first

	default:
		return Internal
	}
}

// WrapErrno wraps a raw syscall errno into a canonical Error using
// FromErrno's mapping, with op describing the failing operation.
func WrapErrno(op string, errno unix.Errno) error {
	return New(FromErrno(errno), "%s: %v", op, errno)
}
