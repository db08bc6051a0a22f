package scoring

import (
	"testing"

	"renolead_backend/internal/leads/domain"
)

func TestNormalizeStyle(t *testing.T) {
	cases := map[string]string{
		"Mid Century Modern":     "mid-century-modern",
		"  mid   century modern": "mid-century-modern",
		"Bohémian":               "bohemian",
		"Scandinavian":           "scandinavian",
		"":                       "",
	}
	for in, want := range cases {
		if got := NormalizeStyle(in); got != want {
			t.Fatalf("NormalizeStyle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestZipTierChecksHighBeforeMedium(t *testing.T) {
	tables := DefaultTables()
	if tier := tables.ZipTier("02481"); tier != TierHigh {
		t.Fatalf("expected high, got %s", tier)
	}
	if tier := tables.ZipTier("01760"); tier != TierMedium {
		t.Fatalf("expected medium, got %s", tier)
	}
	if tier := tables.ZipTier("90210"); tier != TierStandard {
		t.Fatalf("expected out-of-region zip to be standard, got %s", tier)
	}
	if tier := tables.ZipTier("  "); tier != TierNone {
		t.Fatalf("expected no tier for blank zip, got %s", tier)
	}
}

func TestNewTablesRejectsOverlappingTiers(t *testing.T) {
	_, err := NewTables(TablesConfig{
		ZipTiers: ZipTiersConfig{High: []string{"01776"}, Medium: []string{"01776"}},
	})
	if err == nil {
		t.Fatalf("expected overlapping tiers to be rejected")
	}
}

func TestNewTablesRejectsUnknownRoom(t *testing.T) {
	_, err := NewTables(TablesConfig{Projects: map[string]float64{"garage": 1.1}})
	if err == nil {
		t.Fatalf("expected unknown room type to be rejected")
	}
}

func TestNewTablesDefaultsOtherProject(t *testing.T) {
	tables, err := NewTables(TablesConfig{Projects: map[string]float64{"kitchen": 1.4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tables.ProjectMultiplier(domain.RoomBedroom); got != otherProjectMultiplier {
		t.Fatalf("expected unlisted room to use the other multiplier, got %v", got)
	}
}

func TestStyleHasNoFallback(t *testing.T) {
	if _, ok := DefaultTables().StyleMultiplier("art deco"); ok {
		t.Fatalf("expected unknown style to have no multiplier")
	}
}

func TestLoadTablesFromYAML(t *testing.T) {
	tables, err := LoadTables("testdata/tables_alt.yaml")
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}
	if tables.Region() != "Pioneer Valley" {
		t.Fatalf("unexpected region %q", tables.Region())
	}
	if tables.ZipTier("01060") != TierHigh {
		t.Fatalf("expected 01060 to be high tier in the alternate table")
	}
	// 02481 is high in MetroWest but unlisted here.
	if tables.ZipTier("02481") != TierStandard {
		t.Fatalf("expected 02481 to fall back to standard")
	}
	if mult, ok := tables.StyleMultiplier("rustic"); !ok || mult != 1.2 {
		t.Fatalf("expected rustic style keyed case-insensitively, got %v %v", mult, ok)
	}

	calc := NewCalculator(tables, nil)
	lead := domain.Lead{ZipCode: "01060", RoomType: domain.RoomKitchen}
	// 0 intent + 25 zip + (1.5-0.8)*50 = 60
	if got := calc.Quality(0, lead); got != 60 {
		t.Fatalf("expected injected tables to drive quality, got %d", got)
	}
}

func TestLoadTablesEmptyPathUsesDefaults(t *testing.T) {
	tables, err := LoadTables("")
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}
	if tables.Region() != "MetroWest Boston" {
		t.Fatalf("expected default tables, got %q", tables.Region())
	}
}

func TestLoadTablesMissingFile(t *testing.T) {
	if _, err := LoadTables("testdata/does_not_exist.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
