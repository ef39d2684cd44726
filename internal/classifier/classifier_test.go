package classifier

import (
	"testing"

	"github.com/genricoloni/adskip/internal/domain"
)

func TestIsAd(t *testing.T) {
	tests := []struct {
		id   domain.TrackID
		want bool
	}{
		{"/com/spotify/ad/0123", true},
		{"/com/spotify/track/0123", false},
		{"ad", true},
		{"", false},
		{"spotify:ad:0123", false},
		{"/com/spotify/AD/0123", false},
		{"/com/spotify/adverts/0123", false},
		{"/x/ad/2", true},
		{"/x/track/ad", true},
		{"ad/", true},
		{"//", false},
	}

	for _, tt := range tests {
		if got := IsAd(tt.id); got != tt.want {
			t.Errorf("IsAd(%q): expected %v, got %v", tt.id, tt.want, got)
		}
	}
}

// TestIsAdPositional documents where the positional rule diverges from IsAd.
func TestIsAdPositional(t *testing.T) {
	tests := []struct {
		id         domain.TrackID
		positional bool
		membership bool
	}{
		{"/com/spotify/ad/0123", true, true},
		{"/com/spotify/track/0123", false, false},
		{"/x/ad/2", false, true},
		{"ad", false, true},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := IsAdPositional(tt.id); got != tt.positional {
			t.Errorf("IsAdPositional(%q): expected %v, got %v", tt.id, tt.positional, got)
		}
		if got := IsAd(tt.id); got != tt.membership {
			t.Errorf("IsAd(%q): expected %v, got %v", tt.id, tt.membership, got)
		}
	}
}

func TestForMode(t *testing.T) {
	tests := []struct {
		mode      string
		expectErr bool
		probe     domain.TrackID
		want      bool
	}{
		{mode: "", probe: "/x/ad/2", want: true},
		{mode: ModeMembership, probe: "/x/ad/2", want: true},
		{mode: ModePositional, probe: "/x/ad/2", want: false},
		{mode: "regex", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			fn, err := ForMode(tt.mode)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fn(tt.probe); got != tt.want {
				t.Errorf("classifier(%q): expected %v, got %v", tt.probe, tt.want, got)
			}
		})
	}
}
