// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "US"

// Normalizer parses numbers relative to a default region.
type Normalizer struct {
	region string
}

// NewNormalizer creates a Normalizer. An empty region falls back to DefaultRegion.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func (n *Normalizer) NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses as a valid number for the configured region.
func (n *Normalizer) IsValid(input string) bool {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), n.region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}
