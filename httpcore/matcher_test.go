package httpcore

import (
	"testing"

	"github.com/matgreaves/loom/loomerr"
)

func TestParseMatchersLiteralSegment(t *testing.T) {
	matchers, err := parseMatchers("/foo/bar")
	if err != nil {
		t.Fatalf("parseMatchers: %v", err)
	}
	if len(matchers) != 2 {
		t.Fatalf("len(matchers) = %d, want 2", len(matchers))
	}
	if !matchers[0].isLiteral() || matchers[0].chunk() != "foo" {
		t.Fatalf("matchers[0] = %+v", matchers[0])
	}
	if val, ok := matchers[0].match("FOO"); !ok || val != "" {
		t.Fatalf("literal match should be case-insensitive, got %q/%v", val, ok)
	}
	if _, ok := matchers[0].match("food"); ok {
		t.Fatal("literal matcher should not match a different segment")
	}
}

func TestParseMatchersNamedParameter(t *testing.T) {
	matchers, err := parseMatchers("/users/:id")
	if err != nil {
		t.Fatalf("parseMatchers: %v", err)
	}
	m := matchers[1]
	if m.isLiteral() || m.name() != "id" {
		t.Fatalf("matchers[1] = %+v", m)
	}
	val, ok := m.match("42")
	if !ok || val != "42" {
		t.Fatalf("match(42) = %q/%v", val, ok)
	}
}

func TestParseMatchersParameterWithExtension(t *testing.T) {
	matchers, err := parseMatchers("/files/:name.json")
	if err != nil {
		t.Fatalf("parseMatchers: %v", err)
	}
	m := matchers[1]
	if val, ok := m.match("report.JSON"); !ok || val != "report" {
		t.Fatalf("match(report.JSON) = %q/%v, want report/true", val, ok)
	}
	if _, ok := m.match("report.txt"); ok {
		t.Fatal("extension mismatch should not match")
	}
}

func TestParseMatchersValidatedIntParameter(t *testing.T) {
	matchers, err := parseMatchers("/items/:[int]n")
	if err != nil {
		t.Fatalf("parseMatchers: %v", err)
	}
	m := matchers[1]
	if m.name() != "n" {
		t.Fatalf("name() = %q, want n", m.name())
	}
	for _, tc := range []struct {
		in string
		ok bool
	}{
		{"42", true},
		{"-7", true},
		{"abc", false},
		{"4.2", false},
	} {
		if _, ok := m.match(tc.in); ok != tc.ok {
			t.Errorf("match(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}
}

func TestParseMatchersValidatedUintParameter(t *testing.T) {
	matchers, err := parseMatchers("/items/:[uint]n")
	if err != nil {
		t.Fatalf("parseMatchers: %v", err)
	}
	m := matchers[1]
	if _, ok := m.match("-7"); ok {
		t.Fatal("uint matcher should reject a negative number")
	}
	if _, ok := m.match("7"); !ok {
		t.Fatal("uint matcher should accept a non-negative integer")
	}
}

func TestParseMatchersUnknownValidatorType(t *testing.T) {
	_, err := parseMatchers("/items/:[bogus]n")
	if loomerr.KindOf(err) != loomerr.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, want InvalidArgument", loomerr.KindOf(err))
	}
}

func TestParseMatchersRegexParameterNamedByOrdinal(t *testing.T) {
	matchers, err := parseMatchers("/a/:[re]<[a-z]+>/:[re]<\\d+>")
	if err != nil {
		t.Fatalf("parseMatchers: %v", err)
	}
	if matchers[1].name() != "0" || matchers[2].name() != "1" {
		t.Fatalf("regex matcher names = %q, %q, want 0, 1", matchers[1].name(), matchers[2].name())
	}
	if _, ok := matchers[1].match("abc"); !ok {
		t.Fatal("expected [a-z]+ to match \"abc\"")
	}
	if _, ok := matchers[2].match("123"); !ok {
		t.Fatal("expected \\d+ to match \"123\"")
	}
	if _, ok := matchers[2].match("abc"); ok {
		t.Fatal("expected \\d+ not to match \"abc\"")
	}
}
