package loomerr_test

import (
	"errors"
	"testing"

	"github.com/matgreaves/loom/loomerr"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := map[loomerr.Kind]int{
		loomerr.InvalidArgument:   400,
		loomerr.FailedPrecondition: 400,
		loomerr.NotFound:          404,
		loomerr.AlreadyExists:     409,
		loomerr.PermissionDenied:  403,
		loomerr.Unauthenticated:   401,
		loomerr.OutOfRange:        416,
		loomerr.ResourceExhausted: 429,
		loomerr.Aborted:           503,
		loomerr.Cancelled:         499,
		loomerr.DeadlineExceeded:  504,
		loomerr.Unavailable:       503,
		loomerr.Unimplemented:     501,
		loomerr.Internal:          500,
	}
	for kind, want := range cases {
		if got := loomerr.StatusCode(kind); got != want {
			t.Errorf("StatusCode(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestKindFromStatusMapping(t *testing.T) {
	cases := map[int]loomerr.Kind{
		400: loomerr.InvalidArgument,
		401: loomerr.Unauthenticated,
		403: loomerr.PermissionDenied,
		404: loomerr.NotFound,
		409: loomerr.AlreadyExists,
		416: loomerr.OutOfRange,
		429: loomerr.ResourceExhausted,
		499: loomerr.Cancelled,
		501: loomerr.Unimplemented,
		503: loomerr.Unavailable,
		504: loomerr.DeadlineExceeded,
		500: loomerr.Internal,
		418: loomerr.Internal,
	}
	for status, want := range cases {
		if got := loomerr.KindFromStatus(status); got != want {
			t.Errorf("KindFromStatus(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestWrapPreservesInnerKind(t *testing.T) {
	inner := loomerr.New(loomerr.NotFound, "route missing")
	wrapped := loomerr.Wrap(loomerr.Internal, "dispatch failed", inner)
	if loomerr.KindOf(wrapped) != loomerr.NotFound {
		t.Fatalf("KindOf(wrapped) = %s, want NotFound", loomerr.KindOf(wrapped))
	}
	if !errors.Is(wrapped, wrapped) {
		t.Fatal("errors.Is should hold for the same error value")
	}
	if !errors.As(wrapped, new(*loomerr.Error)) {
		t.Fatal("errors.As should recover *loomerr.Error")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	plain := errors.New("boom")
	if loomerr.KindOf(plain) != loomerr.Internal {
		t.Fatalf("KindOf(plain) = %s, want Internal", loomerr.KindOf(plain))
	}
}
