// Package textenc decodes attribute text read from vector sources using an
// ordered list of candidate encodings.
package textenc

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrDecode is returned when no candidate encoding can decode the text
var ErrDecode = errors.New("attribute text could not be decoded")

// Outcome records which attempt decoded the text
type Outcome int

const (
	DecodedPrimary Outcome = iota
	DecodedFallback
	DecodeFailed
)

func (o Outcome) String() string {
	switch o {
	case DecodedPrimary:
		return "primary"
	case DecodedFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// Result is the decoded text together with how it was obtained
type Result struct {
	Values   []string
	Encoding string
	Outcome  Outcome
}

// Strategy tries its encodings in order on the whole set of values; the first
// encoding that decodes every value wins.
type Strategy struct {
	Encodings []string
}

// DefaultStrategy tries UTF-8 then Latin-1
func DefaultStrategy() Strategy {
	return Strategy{Encodings: []string{"utf-8", "latin1"}}
}

// Prefer returns a copy of the strategy with name tried first. Sources that
// declare their encoding (a shapefile .cpg) use it ahead of the defaults.
func (s Strategy) Prefer(name string) Strategy {
	name = strings.TrimSpace(name)
	if name == "" {
		return s
	}
	encs := []string{name}
	for _, e := range s.Encodings {
		if !strings.EqualFold(e, name) {
			encs = append(encs, e)
		}
	}
	return Strategy{Encodings: encs}
}

// Decode decodes raw attribute strings. Values are decoded all-or-nothing per
// encoding so that a layer never mixes encodings.
func (s Strategy) Decode(raw []string) (Result, error) {
	if len(s.Encodings) == 0 {
		return Result{Outcome: DecodeFailed}, fmt.Errorf("%w: no encodings configured", ErrDecode)
	}

	var errs []string
	for i, name := range s.Encodings {
		enc, err := Lookup(name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		values, err := decodeAll(enc, raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		outcome := DecodedPrimary
		if i > 0 {
			outcome = DecodedFallback
		}
		return Result{Values: values, Encoding: name, Outcome: outcome}, nil
	}

	return Result{Outcome: DecodeFailed}, fmt.Errorf("%w: %s", ErrDecode, strings.Join(errs, "; "))
}

var replacement = string(utf8.RuneError)

func decodeAll(enc encoding.Encoding, raw []string) ([]string, error) {
	dec := enc.NewDecoder()
	out := make([]string, len(raw))
	for i, s := range raw {
		v, err := dec.String(s)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		// Decoders substitute U+FFFD for bytes they cannot map.
		// Match the encoded U+FFFD: ranging over invalid raw bytes also yields RuneError.
		if strings.Contains(v, replacement) && !strings.Contains(s, replacement) {
			return nil, fmt.Errorf("value %d: invalid byte sequence", i)
		}
		out[i] = v
	}
	return out, nil
}

// Lookup resolves an encoding name. Common aliases are handled directly and
// anything else goes through the IANA registry.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1", "88591":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252", "1252":
		return charmap.Windows1252, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}
