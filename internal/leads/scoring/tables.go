package scoring

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"renolead_backend/internal/leads/domain"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ZipTier buckets a zip code by expected project value.
type ZipTier string

const (
	TierHigh     ZipTier = "high"
	TierMedium   ZipTier = "medium"
	TierStandard ZipTier = "standard"
	// TierNone is used only when the lead has no zip code at all.
	TierNone ZipTier = "none"
)

// Zip tier bonuses added to the quality score.
const (
	highTierBonus     = 25
	mediumTierBonus   = 15
	standardTierBonus = 5
)

// otherProjectMultiplier is the project fallback. It contributes no quality bonus.
const otherProjectMultiplier = 0.8

// TablesConfig is the serialized form of the lookup tables.
type TablesConfig struct {
	Region   string             `yaml:"region"`
	ZipTiers ZipTiersConfig     `yaml:"zipTiers"`
	Projects map[string]float64 `yaml:"projectMultipliers"`
	Styles   map[string]float64 `yaml:"styleMultipliers"`
}

// ZipTiersConfig lists zip codes per tier. Unlisted zips fall into the standard tier.
type ZipTiersConfig struct {
	High     []string `yaml:"high"`
	Medium   []string `yaml:"medium"`
	Standard []string `yaml:"standard"`
}

// Tables is the immutable set of lookups the quality calculator reads.
// Build one with NewTables, DefaultTables or LoadTables and inject it into a Calculator.
type Tables struct {
	region   string
	high     map[string]struct{}
	medium   map[string]struct{}
	standard map[string]struct{}
	projects map[domain.RoomType]float64
	styles   map[string]float64
}

// NewTables validates cfg and builds lookup tables from it.
// Tier sets must be disjoint. The "other" project entry defaults to 0.8 when omitted.
func NewTables(cfg TablesConfig) (*Tables, error) {
	t := &Tables{
		region:   cfg.Region,
		high:     toSet(cfg.ZipTiers.High),
		medium:   toSet(cfg.ZipTiers.Medium),
		standard: toSet(cfg.ZipTiers.Standard),
		projects: make(map[domain.RoomType]float64, len(cfg.Projects)+1),
		styles:   make(map[string]float64, len(cfg.Styles)),
	}

	for zip := range t.high {
		if _, dup := t.medium[zip]; dup {
			return nil, fmt.Errorf("zip %s listed in both high and medium tiers", zip)
		}
		if _, dup := t.standard[zip]; dup {
			return nil, fmt.Errorf("zip %s listed in both high and standard tiers", zip)
		}
	}
	for zip := range t.medium {
		if _, dup := t.standard[zip]; dup {
			return nil, fmt.Errorf("zip %s listed in both medium and standard tiers", zip)
		}
	}

	for key, mult := range cfg.Projects {
		rt, ok := domain.ParseRoomType(key)
		if !ok {
			return nil, fmt.Errorf("unknown room type %q in project multipliers", key)
		}
		if mult <= 0 {
			return nil, fmt.Errorf("project multiplier for %s must be positive", key)
		}
		t.projects[rt] = mult
	}
	if _, ok := t.projects[domain.RoomOther]; !ok {
		t.projects[domain.RoomOther] = otherProjectMultiplier
	}

	for key, mult := range cfg.Styles {
		if mult <= 0 {
			return nil, fmt.Errorf("style multiplier for %s must be positive", key)
		}
		t.styles[NormalizeStyle(key)] = mult
	}

	return t, nil
}

// LoadTables reads a YAML tables file. An empty path returns DefaultTables.
func LoadTables(path string) (*Tables, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTables(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring tables: %w", err)
	}
	var cfg TablesConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse scoring tables: %w", err)
	}
	return NewTables(cfg)
}

// Region names the geography the zip tiers were built for.
func (t *Tables) Region() string { return t.region }

// ZipTier classifies a zip. High is checked before medium; anything else with a zip is standard,
// including zips outside the service region.
func (t *Tables) ZipTier(zip string) ZipTier {
	zip = normalizeZip(zip)
	if zip == "" {
		return TierNone
	}
	if _, ok := t.high[zip]; ok {
		return TierHigh
	}
	if _, ok := t.medium[zip]; ok {
		return TierMedium
	}
	return TierStandard
}

// ZipBonus is the quality-score contribution of a zip code.
func (t *Tables) ZipBonus(zip string) float64 {
	switch t.ZipTier(zip) {
	case TierHigh:
		return highTierBonus
	case TierMedium:
		return mediumTierBonus
	case TierStandard:
		return standardTierBonus
	default:
		return 0
	}
}

// ProjectMultiplier returns the value multiplier for a room type, falling back to "other".
func (t *Tables) ProjectMultiplier(rt domain.RoomType) float64 {
	if mult, ok := t.projects[rt]; ok {
		return mult
	}
	return t.projects[domain.RoomOther]
}

// StyleMultiplier returns the multiplier for a style. There is no fallback entry.
func (t *Tables) StyleMultiplier(style string) (float64, bool) {
	mult, ok := t.styles[NormalizeStyle(style)]
	return mult, ok
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// NormalizeStyle lower-cases a style, strips diacritics and joins words with hyphens,
// so "Mid Century Modern" and "mid-century  modérn" share a key.
func NormalizeStyle(style string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), style)
	if err != nil {
		folded = style
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), "-")
}

func normalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	// ZIP+4
	if len(zip) > 5 && zip[5] == '-' {
		zip = zip[:5]
	}
	return zip
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if z := normalizeZip(v); z != "" {
			set[z] = struct{}{}
		}
	}
	return set
}

// DefaultTables returns the built-in MetroWest Boston tables.
func DefaultTables() *Tables {
	t, err := NewTables(metroWestTables)
	if err != nil {
		panic(fmt.Sprintf("built-in scoring tables are invalid: %v", err))
	}
	return t
}

var metroWestTables = TablesConfig{
	Region: "MetroWest Boston",
	ZipTiers: ZipTiersConfig{
		// Wellesley, Weston, Sudbury, Concord, Dover, Sherborn, Needham, Lincoln
		High: []string{
			"02481", "02482", "02493", "01776", "01742", "01773",
			"02030", "01770", "02492", "02494", "02459",
		},
		// Framingham, Natick, Wayland, Southborough, Hopkinton, Westborough, Ashland, Marlborough, Medfield
		Medium: []string{
			"01701", "01702", "01760", "01778", "01772", "01748",
			"01581", "01746", "01721", "01752", "02052",
		},
		Standard: []string{
			"01749", "01754", "01757", "01532", "01545", "01747", "02054", "01756",
		},
	},
	Projects: map[string]float64{
		"kitchen":     1.3,
		"bathroom":    1.2,
		"living_room": 1.0,
		"bedroom":     0.9,
		"dining_room": 0.95,
		"home_office": 0.9,
		"other":       otherProjectMultiplier,
	},
	Styles: map[string]float64{
		"modern":             1.1,
		"contemporary":       1.1,
		"farmhouse":          1.05,
		"traditional":        1.0,
		"transitional":       1.05,
		"industrial":         1.0,
		"scandinavian":       1.05,
		"mid-century-modern": 1.1,
		"coastal":            1.0,
		"bohemian":           0.95,
		"minimalist":         1.0,
		"luxury":             1.3,
	},
}
