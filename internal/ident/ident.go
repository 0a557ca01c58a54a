// Package ident generates order ids, order item ids and public tracking codes.
//
// Every identifier combines the creation time with a random suffix so that no
// code can be derived from another by incrementing it. Uniqueness of tracking
// codes is ultimately enforced by the order store.
package ident

import (
	"crypto/rand"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	TrackingPrefix = "SWIFT"

	alphabet          = "0123456789abcdefghijklmnopqrstuvwxyz"
	trackingSuffixLen = 6
	idSuffixLen       = 7
	rejectAbove       = 252
)

var trackingPattern = regexp.MustCompile(`^SWIFT-[A-Z0-9]+-[A-Z0-9]+$`)

// Generator yields a fresh identifier per call.
type Generator interface {
	Next() string
}

type Option func(*Sequence)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sequence) { s.now = now }
}

// WithRandom overrides the randomness source. Tests use it to make output deterministic.
func WithRandom(r io.Reader) Option {
	return func(s *Sequence) { s.rand = r }
}

// Sequence is a Generator parameterised by layout.
type Sequence struct {
	format    func(ms int64, suffix string) string
	suffixLen int
	now       func() time.Time
	rand      io.Reader
}

func newSequence(suffixLen int, format func(int64, string) string, opts []Option) *Sequence {
	s := &Sequence{
		format:    format,
		suffixLen: suffixLen,
		now:       time.Now,
		rand:      rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrackingCodes produces SWIFT-<BASE36 MILLIS>-<BASE36 RANDOM>.
func TrackingCodes(opts ...Option) *Sequence {
	return newSequence(trackingSuffixLen, func(ms int64, suffix string) string {
		return strings.ToUpper(TrackingPrefix + "-" + strconv.FormatInt(ms, 36) + "-" + suffix)
	}, opts)
}

// OrderIDs produces order_<millis>_<base36 random>.
func OrderIDs(opts ...Option) *Sequence {
	return newSequence(idSuffixLen, func(ms int64, suffix string) string {
		return "order_" + strconv.FormatInt(ms, 10) + "_" + suffix
	}, opts)
}

// ItemIDs produces item_<millis>_<base36 random>.
func ItemIDs(opts ...Option) *Sequence {
	return newSequence(idSuffixLen, func(ms int64, suffix string) string {
		return "item_" + strconv.FormatInt(ms, 10) + "_" + suffix
	}, opts)
}

func (s *Sequence) Next() string {
	return s.format(s.now().UnixMilli(), s.suffix())
}

func (s *Sequence) suffix() string {
	out := make([]byte, 0, s.suffixLen)
	buf := make([]byte, s.suffixLen*2)
	for len(out) < s.suffixLen {
		if _, err := io.ReadFull(s.rand, buf); err != nil {
			// crypto/rand does not fail on supported platforms; a failing
			// injected reader is a programming error.
			panic("ident: random source failed: " + err.Error())
		}
		for _, c := range buf {
			// Reject the tail above the largest multiple of 36 to keep digits uniform.
			if c >= rejectAbove || len(out) == s.suffixLen {
				continue
			}
			out = append(out, alphabet[int(c)%len(alphabet)])
		}
	}
	return string(out)
}

// ValidTrackingCode reports whether code has the public tracking code shape.
func ValidTrackingCode(code string) bool {
	return trackingPattern.MatchString(code)
}
