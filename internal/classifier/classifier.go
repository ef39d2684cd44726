// Package classifier decides whether a track identifier names an advertisement.
package classifier

import (
	"fmt"
	"strings"

	"github.com/genricoloni/adskip/internal/domain"
)

const (
	adSegment = "ad"

	// ModeMembership flags a track when any path segment is "ad"
	ModeMembership = "membership"
	// ModePositional flags a track when segment 3 is "ad".
	//
	// Deprecated: breaks as soon as the identifier layout shifts; use ModeMembership.
	ModePositional = "positional"

	positionalIndex = 3
)

// Func classifies a track identifier
type Func func(domain.TrackID) bool

// IsAd reports whether any '/'-separated segment of id equals "ad" exactly
func IsAd(id domain.TrackID) bool {
	for _, segment := range strings.Split(string(id), "/") {
		if segment == adSegment {
			return true
		}
	}
	return false
}

// IsAdPositional only looks at segment 3, e.g. "/com/spotify/ad/xyz".
//
// Deprecated: disagrees with IsAd whenever the marker moves; kept for players
// that are known to use the fixed layout.
func IsAdPositional(id domain.TrackID) bool {
	segments := strings.Split(string(id), "/")
	return len(segments) > positionalIndex && segments[positionalIndex] == adSegment
}

// ForMode returns the classifier configured by mode
func ForMode(mode string) (Func, error) {
	switch mode {
	case "", ModeMembership:
		return IsAd, nil
	case ModePositional:
		return IsAdPositional, nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", mode)
	}
}
