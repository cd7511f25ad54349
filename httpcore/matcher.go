package httpcore

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matgreaves/loom/loomerr"
)

// pathMatcher is one compiled segment of a mount path, one of the grammar
// productions: a case-insensitive literal, a named capture (optionally
// requiring a literal extension), a validated int/uint capture, or a
// regex capture.
type pathMatcher interface {
	// isLiteral reports whether this matcher is a plain literal segment;
	// literal matchers never contribute to the captured parameter set.
	isLiteral() bool
	// name is the parameter name a successful match is recorded under.
	name() string
	// chunk is the literal text used to key this matcher's trie edge —
	// the literal text itself for a literal matcher, or the `:`-prefixed
	// expression for everything else (so two routes that both declare a
	// wildcard at the same trie position must declare it identically).
	chunk() string
	// match reports whether segment satisfies this matcher, and if so the
	// value it captures (empty string for a literal matcher).
	match(segment string) (string, bool)
}

type literalMatcher struct{ text string }

func (m literalMatcher) isLiteral() bool { return true }
func (m literalMatcher) name() string    { return "" }
func (m literalMatcher) chunk() string   { return m.text }
func (m literalMatcher) match(segment string) (string, bool) {
	return "", strings.EqualFold(segment, m.text)
}

// parameterMatcher implements `:name` and `:name.ext`.
type parameterMatcher struct {
	paramName string
	ext       string // "" unless an extension was declared
}

func (m parameterMatcher) isLiteral() bool { return false }
func (m parameterMatcher) name() string    { return m.paramName }
func (m parameterMatcher) chunk() string {
	if m.ext == "" {
		return ":" + m.paramName
	}
	return ":" + m.paramName + "." + m.ext
}
func (m parameterMatcher) match(segment string) (string, bool) {
	if m.ext == "" {
		return segment, true
	}
	suffix := "." + m.ext
	if !strings.HasSuffix(strings.ToLower(segment), strings.ToLower(suffix)) {
		return "", false
	}
	return segment[:len(segment)-len(suffix)], true
}

// validatedParameterMatcher implements `:[int]name` and `:[uint]name`.
type validatedParameterMatcher struct {
	paramName string
	kind      string // "int" or "uint"
}

func (m validatedParameterMatcher) isLiteral() bool { return false }
func (m validatedParameterMatcher) name() string    { return m.paramName }
func (m validatedParameterMatcher) chunk() string {
	return ":[" + m.kind + "]" + m.paramName
}
func (m validatedParameterMatcher) match(segment string) (string, bool) {
	switch m.kind {
	case "int":
		if _, err := strconv.ParseInt(segment, 10, 64); err != nil {
			return "", false
		}
	case "uint":
		if _, err := strconv.ParseUint(segment, 10, 64); err != nil {
			return "", false
		}
	}
	return segment, true
}

// regexMatcher implements `:[re]<...>`. Its name is its ordinal position
// among the regex matchers in the endpoint, stringified.
type regexMatcher struct {
	ordinal string
	pattern string
	re      *regexp.Regexp
}

func (m regexMatcher) isLiteral() bool { return false }
func (m regexMatcher) name() string    { return m.ordinal }
func (m regexMatcher) chunk() string   { return ":[re]" + m.pattern }
func (m regexMatcher) match(segment string) (string, bool) {
	if m.re.MatchString(segment) {
		return segment, true
	}
	return "", false
}

// validatorKinds are the only validated-parameter type names the grammar
// recognizes.
var validatorKinds = map[string]bool{"int": true, "uint": true}

// parseMatchers splits endpoint on '/' and compiles each non-empty
// segment into a pathMatcher. A segment beginning with ':' is a
// parameter of one of the grammar's forms; anything else is a literal.
func parseMatchers(endpoint string) ([]pathMatcher, error) {
	var matchers []pathMatcher
	regexOrdinal := 0

	for _, segment := range strings.Split(strings.Trim(endpoint, "/"), "/") {
		if segment == "" {
			continue
		}
		if segment[0] != ':' {
			matchers = append(matchers, literalMatcher{text: segment})
			continue
		}

		m, consumedOrdinal, err := parseParameterSegment(segment, regexOrdinal)
		if err != nil {
			return nil, err
		}
		if consumedOrdinal {
			regexOrdinal++
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// parseParameterSegment parses one ':'-prefixed segment into a
// pathMatcher: an optional [type] annotation, then a name, then an
// optional .extension.
func parseParameterSegment(segment string, regexOrdinal int) (pathMatcher, bool, error) {
	body := segment[1:] // strip leading ':'

	if strings.HasPrefix(body, "[") {
		closeBracket := strings.IndexByte(body, ']')
		if closeBracket < 0 {
			return nil, false, loomerr.New(loomerr.InvalidArgument, "unterminated type annotation in path segment %q", segment)
		}
		kind := body[1:closeBracket]
		rest := body[closeBracket+1:]

		if kind == "re" {
			pattern := strings.TrimSuffix(strings.TrimPrefix(rest, "<"), ">")
			// The whole segment must satisfy the expression, not merely
			// contain a match.
			re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
			if err != nil {
				return nil, false, loomerr.Wrap(loomerr.InvalidArgument, "invalid regex path matcher", err)
			}
			return regexMatcher{
				ordinal: strconv.Itoa(regexOrdinal),
				pattern: pattern,
				re:      re,
			}, true, nil
		}

		if !validatorKinds[kind] {
			return nil, false, loomerr.New(loomerr.InvalidArgument, "unknown validated parameter type %q", kind)
		}
		if rest == "" {
			return nil, false, loomerr.New(loomerr.InvalidArgument, "validated parameter %q missing a name", segment)
		}
		return validatedParameterMatcher{paramName: rest, kind: kind}, false, nil
	}

	name, ext, hasExt := strings.Cut(body, ".")
	if name == "" {
		return nil, false, loomerr.New(loomerr.InvalidArgument, "path parameter %q missing a name", segment)
	}
	if hasExt {
		return parameterMatcher{paramName: name, ext: ext}, false, nil
	}
	return parameterMatcher{paramName: name}, false, nil
}
