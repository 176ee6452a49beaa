package identity

import (
	"errors"
	"strings"
)

// Classification is a data-sensitivity level. Levels are totally ordered:
// OPEN < RESTRICTED < CONFIDENTIAL < SECRET.
type Classification string

const (
	ClassificationOpen         Classification = "OPEN"
	ClassificationRestricted   Classification = "RESTRICTED"
	ClassificationConfidential Classification = "CONFIDENTIAL"
	ClassificationSecret       Classification = "SECRET"
)

// ErrUnknownClassification is returned by ParseClassification for unrecognized input.
var ErrUnknownClassification = errors.New("unknown classification")

// Level returns the rank of c, or -1 when c is not a known level.
func (c Classification) Level() int {
	switch c {
	case ClassificationOpen:
		return 0
	case ClassificationRestricted:
		return 1
	case ClassificationConfidential:
		return 2
	case ClassificationSecret:
		return 3
	default:
		return -1
	}
}

// Valid reports whether c is one of the four known levels.
func (c Classification) Valid() bool {
	return c.Level() >= 0
}

// AtLeast reports whether c is as restrictive as other or more.
func (c Classification) AtLeast(other Classification) bool {
	return c.Level() >= other.Level()
}

// ParseClassification accepts any letter case and surrounding whitespace.
func ParseClassification(raw string) (Classification, error) {
	c := Classification(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", ErrUnknownClassification
	}
	return c, nil
}

// MostRestrictive returns the highest level among levels. Unknown and empty
// values are ignored; OPEN is returned when nothing valid is supplied.
func MostRestrictive(levels ...Classification) Classification {
	out := ClassificationOpen
	for _, c := range levels {
		if c.Level() > out.Level() {
			out = c
		}
	}
	return out
}
