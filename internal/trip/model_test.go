package trip

import (
	"errors"
	"testing"
)

func TestVerificationLevelValid(t *testing.T) {
	tests := []struct {
		level VerificationLevel
		want  bool
	}{
		{VerificationBasic, true},
		{VerificationVerified, true},
		{VerificationPremium, true},
		{VerificationLevel(""), false},
		{VerificationLevel("gold"), false},
		{VerificationLevel("Premium"), false}, // case-sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestSizeRank(t *testing.T) {
	tests := []struct {
		size    Size
		want    int
		wantErr bool
	}{
		{SizeSmall, 1, false},
		{SizeMedium, 2, false},
		{SizeLarge, 3, false},
		{Size(""), 0, true},
		{Size("extra-large"), 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.size), func(t *testing.T) {
			got, err := tt.size.Rank()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Rank(%q) expected error, got %d", tt.size, got)
				}
				if !errors.Is(err, ErrUnknownSize) {
					t.Errorf("expected ErrUnknownSize, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Rank(%q) unexpected error: %v", tt.size, err)
			}
			if got != tt.want {
				t.Errorf("Rank(%q) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestSizeFits(t *testing.T) {
	tests := []struct {
		name  string
		space Size
		item  Size
		want  bool
	}{
		{"large holds small", SizeLarge, SizeSmall, true},
		{"large holds large", SizeLarge, SizeLarge, true},
		{"medium holds medium", SizeMedium, SizeMedium, true},
		{"medium cannot hold large", SizeMedium, SizeLarge, false},
		{"small cannot hold medium", SizeSmall, SizeMedium, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.space.Fits(tt.item)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Fits(%q, %q) = %v, want %v", tt.space, tt.item, got, tt.want)
			}
		})
	}
}

func TestSizeFitsUnknownTier(t *testing.T) {
	if _, err := SizeLarge.Fits(Size("huge")); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("expected ErrUnknownSize for unknown item tier, got %v", err)
	}
	if _, err := Size("tiny").Fits(SizeSmall); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("expected ErrUnknownSize for unknown space tier, got %v", err)
	}
}

func TestAcceptsCategory(t *testing.T) {
	trip := &Trip{ItemCategories: []string{"Electronics", "Documents"}}

	if !trip.AcceptsCategory("Electronics") {
		t.Error("expected Electronics to be accepted")
	}
	if trip.AcceptsCategory("electronics") {
		t.Error("category membership must be exact, not case-folded")
	}
	if trip.AcceptsCategory("Elec") {
		t.Error("category membership must be exact, not substring")
	}
	if trip.AcceptsCategory("Food") {
		t.Error("expected Food to be rejected")
	}
}
