// Package subst replaces literal placeholder tokens in template text.
//
// Tokens are matched literally, never as patterns. Where one token is a
// substring of another, the longer token wins at any given position, so a
// map holding both @VERSION@ and @VERSION_ID@ never shadows the longer one.
// Tokens missing from the map pass through untouched.
package subst

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyToken is returned when a mapping contains an empty token.
	ErrEmptyToken = errors.New("placeholder token must not be empty")

	// ErrInvalidMapping is returned when a serialized mapping cannot be parsed.
	ErrInvalidMapping = errors.New("invalid placeholder mapping")
)

// PlaceholderMap is an immutable token→value mapping.
// The zero value is an empty map that leaves every text unchanged.
type PlaceholderMap struct {
	entries  map[string]string
	order    []string // resolution order: longest token first
	replacer *strings.Replacer
}

// NewPlaceholderMap copies m into a PlaceholderMap.
func NewPlaceholderMap(m map[string]string) (PlaceholderMap, error) {
	entries := make(map[string]string, len(m))
	for tok, val := range m {
		if tok == "" {
			return PlaceholderMap{}, ErrEmptyToken
		}
		entries[tok] = val
	}
	return build(entries), nil
}

// MustPlaceholderMap is NewPlaceholderMap for static tables; it panics on an empty token.
func MustPlaceholderMap(m map[string]string) PlaceholderMap {
	pm, err := NewPlaceholderMap(m)
	if err != nil {
		panic(err)
	}
	return pm
}

func build(entries map[string]string) PlaceholderMap {
	order := make([]string, 0, len(entries))
	for tok := range entries {
		order = append(order, tok)
	}
	sort.Slice(order, func(i, j int) bool {
		if len(order[i]) != len(order[j]) {
			return len(order[i]) > len(order[j])
		}
		return order[i] < order[j]
	})

	pm := PlaceholderMap{entries: entries, order: order}
	if len(order) > 0 {
		// strings.Replacer prefers earlier pairs when several match at the
		// same position, which gives longest-token-first resolution.
		pairs := make([]string, 0, 2*len(order))
		for _, tok := range order {
			pairs = append(pairs, tok, entries[tok])
		}
		pm.replacer = strings.NewReplacer(pairs...)
	}
	return pm
}

// Len returns the number of tokens.
func (m PlaceholderMap) Len() int { return len(m.entries) }

// Get returns the value for tok.
func (m PlaceholderMap) Get(tok string) (string, bool) {
	v, ok := m.entries[tok]
	return v, ok
}

// Tokens returns the tokens in resolution order.
func (m PlaceholderMap) Tokens() []string {
	return append([]string(nil), m.order...)
}

// Map returns a copy of the mapping.
func (m PlaceholderMap) Map() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// With returns a new map with tok set to value.
func (m PlaceholderMap) With(tok, value string) (PlaceholderMap, error) {
	if tok == "" {
		return PlaceholderMap{}, ErrEmptyToken
	}
	entries := m.Map()
	entries[tok] = value
	return build(entries), nil
}

// Merge returns a new map holding m overlaid by other; other wins on conflict.
func (m PlaceholderMap) Merge(other PlaceholderMap) PlaceholderMap {
	entries := m.Map()
	for k, v := range other.entries {
		entries[k] = v
	}
	return build(entries)
}

// String renders the map in resolution order, for logs.
func (m PlaceholderMap) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, tok := range m.order {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %q", tok, m.entries[tok])
	}
	b.WriteByte('}')
	return b.String()
}

// ParseMapping parses a serialized token→value mapping. JSON objects and
// YAML mappings are accepted, including the flow form {'@K@': 'v'}.
// Non-string scalar values keep their literal text ("1", "true").
func ParseMapping(serialized string) (PlaceholderMap, error) {
	trimmed := strings.TrimSpace(serialized)
	if trimmed == "" {
		return PlaceholderMap{}, fmt.Errorf("%w: empty input", ErrInvalidMapping)
	}

	// JSON escapes such as \/ are not valid YAML, so objects try JSON first.
	if strings.HasPrefix(trimmed, "{") {
		if entries, err := parseJSONMapping(trimmed); err == nil {
			return build(entries), nil
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(serialized), &doc); err != nil {
		return PlaceholderMap{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return PlaceholderMap{}, fmt.Errorf("%w: expected a mapping of token to value", ErrInvalidMapping)
	}

	entries := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return PlaceholderMap{}, fmt.Errorf("%w: line %d: token must be a scalar", ErrInvalidMapping, key.Line)
		}
		if val.Kind != yaml.ScalarNode {
			return PlaceholderMap{}, fmt.Errorf("%w: line %d: value for %q must be a scalar", ErrInvalidMapping, val.Line, key.Value)
		}
		if key.Value == "" {
			return PlaceholderMap{}, fmt.Errorf("%w: %w", ErrInvalidMapping, ErrEmptyToken)
		}
		if _, dup := entries[key.Value]; dup {
			return PlaceholderMap{}, fmt.Errorf("%w: duplicate token %q", ErrInvalidMapping, key.Value)
		}
		value := val.Value
		if val.ShortTag() == "!!null" {
			value = ""
		}
		entries[key.Value] = value
	}

	return build(entries), nil
}

// parseJSONMapping decodes a flat JSON object. Any failure, syntactic or
// structural, is reported so the caller can fall back to YAML.
func parseJSONMapping(serialized string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(serialized))
	dec.UseNumber()

	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, errors.New("not a JSON object")
	}

	entries := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key == "" {
			return nil, ErrEmptyToken
		}
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("duplicate token %q", key)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := valTok.(type) {
		case string:
			entries[key] = v
		case json.Number:
			entries[key] = v.String()
		case bool:
			entries[key] = strconv.FormatBool(v)
		case nil:
			entries[key] = ""
		default:
			return nil, fmt.Errorf("value for %q must be a scalar", key)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	return entries, nil
}
