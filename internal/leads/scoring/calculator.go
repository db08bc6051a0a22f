// Package scoring turns lead and profile facts into the four 0-100 sub-scores
// and the overall ranking score.
package scoring

import (
	"math"
	"time"

	"renolead_backend/internal/leads/domain"
)

const (
	minScore = 0
	maxScore = 100
)

// Engagement weights.
const (
	loginPoints         = 5
	loginCap            = 25
	minutesCap          = 30
	renderPoints        = 10
	renderCap           = 40
	repeatVisitorPoints = 5
)

// Intent weights. The raw maximum is 110, so clamping is part of the formula here.
const (
	intentBase          = 10
	emailPoints         = 15
	phonePoints         = 20
	namePoints          = 10
	wantsQuotePoints    = 30
	extraRenderPoints   = 5
	extraRenderCap      = 15
	socialEngagedPoints = 10
)

// Quality weights.
const (
	qualityIntentWeight = 0.6
	projectBonusScale   = 50
	styleBaseline       = 0.9
	styleBonusScale     = 12.5
)

// Probability-to-close weights, status adjustments and age penalties.
const (
	probEngagementWeight = 0.2
	probIntentWeight     = 0.4
	probQualityWeight    = 0.3

	contactedBonus = 5
	quotedBonus    = 10

	staleNewDays    = 7
	staleNewPenalty = 10
	agedDays        = 30
	agedPenalty     = 15
	ancientDays     = 90
	ancientPenalty  = 25
)

// Overall score weights.
const (
	overallEngagementWeight  = 0.15
	overallIntentWeight      = 0.25
	overallQualityWeight     = 0.25
	overallProbabilityWeight = 0.35
)

// Calculator computes scores against injected lookup tables and clock.
// Calculators never fail: missing or negative inputs count as zero.
type Calculator struct {
	tables *Tables
	now    func() time.Time
}

// NewCalculator creates a Calculator. A nil tables argument uses DefaultTables.
func NewCalculator(tables *Tables, now func() time.Time) *Calculator {
	if tables == nil {
		tables = DefaultTables()
	}
	if now == nil {
		now = time.Now
	}
	return &Calculator{tables: tables, now: now}
}

// Tables exposes the lookups in use.
func (c *Calculator) Tables() *Tables { return c.tables }

// Compute runs the whole pipeline for one lead. profile may be nil for anonymous sessions.
func (c *Calculator) Compute(profile *domain.Profile, lead domain.Lead) domain.Scores {
	engagement := c.Engagement(profile, lead)
	intent := c.Intent(lead)
	quality := c.Quality(intent, lead)
	probability := c.ProbabilityToClose(engagement, intent, quality, lead.Status, lead.CreatedAt)
	return domain.Scores{
		Engagement:         engagement,
		Intent:             intent,
		Quality:            quality,
		ProbabilityToClose: probability,
		Overall:            Overall(engagement, intent, quality, probability),
	}
}

// Engagement scores on-site behaviour.
func (c *Calculator) Engagement(profile *domain.Profile, lead domain.Lead) int {
	var logins int
	var minutes float64
	if profile != nil {
		logins = nonNegative(profile.LoginCount)
		minutes = float64(max(profile.TotalTimeOnSiteMs, 0)) / float64(time.Minute/time.Millisecond)
	}

	score := math.Min(float64(logins*loginPoints), loginCap)
	score += math.Min(minutes, minutesCap)
	score += math.Min(float64(renderingsFor(profile, lead)*renderPoints), renderCap)
	if lead.IsRepeatVisitor {
		score += repeatVisitorPoints
	}
	return clampScore(score)
}

// renderingsFor prefers the profile's lifetime count, then the lead's own, then 1.
func renderingsFor(profile *domain.Profile, lead domain.Lead) int {
	if profile != nil && profile.AIRenderingsCount > 0 {
		return profile.AIRenderingsCount
	}
	if lead.RenderCount > 0 {
		return lead.RenderCount
	}
	return 1
}

// Intent scores how much the homeowner has told us and asked for.
func (c *Calculator) Intent(lead domain.Lead) int {
	score := float64(intentBase)
	if lead.HasEmail() {
		score += emailPoints
	}
	if lead.HasPhone() {
		score += phonePoints
	}
	if lead.HasName() {
		score += namePoints
	}
	if lead.WantsQuote {
		score += wantsQuotePoints
	}
	extra := nonNegative(lead.RenderCount - 1)
	score += math.Min(float64(extra*extraRenderPoints), extraRenderCap)
	if lead.SocialEngaged {
		score += socialEngagedPoints
	}
	return clampScore(score)
}

// Quality scores expected project value from intent, location, room and style.
func (c *Calculator) Quality(intent int, lead domain.Lead) int {
	score := float64(nonNegative(intent)) * qualityIntentWeight
	score += c.tables.ZipBonus(lead.ZipCode)
	score += (c.tables.ProjectMultiplier(lead.RoomType) - otherProjectMultiplier) * projectBonusScale
	// Unknown styles contribute nothing; there is no default style.
	if mult, ok := c.tables.StyleMultiplier(lead.Style); ok {
		score += (mult - styleBaseline) * styleBonusScale
	}
	return clampScore(score)
}

// ProbabilityToClose estimates the chance the lead converts.
// Converted is always 100 and dead/unqualified always 0. Otherwise the weighted base
// is adjusted by status and reduced by cumulative age penalties.
func (c *Calculator) ProbabilityToClose(engagement, intent, quality int, status domain.Status, createdAt time.Time) int {
	switch status {
	case domain.StatusConverted:
		return maxScore
	case domain.StatusDead, domain.StatusUnqualified:
		return minScore
	}

	score := float64(nonNegative(engagement))*probEngagementWeight +
		float64(nonNegative(intent))*probIntentWeight +
		float64(nonNegative(quality))*probQualityWeight

	switch status {
	case domain.StatusContacted:
		score += contactedBonus
	case domain.StatusQuoted:
		score += quotedBonus
	}

	score -= agePenalty(c.ageInDays(createdAt), status)
	return clampScore(score)
}

func (c *Calculator) ageInDays(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	days := c.now().Sub(createdAt).Hours() / 24
	return math.Max(days, 0)
}

// agePenalty applies each threshold independently; a 95-day-old new lead loses 50.
func agePenalty(days float64, status domain.Status) float64 {
	var penalty float64
	if days > staleNewDays && status == domain.StatusNew {
		penalty += staleNewPenalty
	}
	if days > agedDays {
		penalty += agedPenalty
	}
	if days > ancientDays {
		penalty += ancientPenalty
	}
	return penalty
}

// Overall is the ranking score used for sorting and priority labels.
func Overall(engagement, intent, quality, probability int) int {
	score := float64(nonNegative(engagement))*overallEngagementWeight +
		float64(nonNegative(intent))*overallIntentWeight +
		float64(nonNegative(quality))*overallQualityWeight +
		float64(nonNegative(probability))*overallProbabilityWeight
	return clampScore(score)
}

// clampScore rounds half up and bounds the result to [0,100].
func clampScore(score float64) int {
	if math.IsNaN(score) {
		return minScore
	}
	rounded := int(math.Floor(score + 0.5))
	if rounded < minScore {
		return minScore
	}
	if rounded > maxScore {
		return maxScore
	}
	return rounded
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
