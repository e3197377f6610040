package plans

import "strings"

type Plan string

const (
	PlanStart   Plan = "start"
	PlanPremium Plan = "premium"
	PlanEternal Plan = "eternal"
)

// Limits is the full feature table for a plan. Numeric ceilings use -1 for
// unlimited; a ceiling of exactly 0 means the feature is not included in
// the plan at all.
type Limits struct {
	MaxPhotos      int  `json:"max_photos"`
	MaxMusic       int  `json:"max_music"`
	MaxGifts       int  `json:"max_gifts"`
	PremiumThemes  bool `json:"premium_themes"`
	GiftAnimations bool `json:"gift_animations"`
	CustomDomain   bool `json:"custom_domain"`
}

var limitTable = map[Plan]Limits{
	PlanStart: {
		MaxPhotos:      5,
		MaxMusic:       0,
		MaxGifts:       1,
		PremiumThemes:  false,
		GiftAnimations: false,
		CustomDomain:   false,
	},
	PlanPremium: {
		MaxPhotos:      15,
		MaxMusic:       3,
		MaxGifts:       5,
		PremiumThemes:  true,
		GiftAnimations: true,
		CustomDomain:   false,
	},
	PlanEternal: {
		MaxPhotos:      -1,
		MaxMusic:       -1,
		MaxGifts:       -1,
		PremiumThemes:  true,
		GiftAnimations: true,
		CustomDomain:   true,
	},
}

// Normalize maps arbitrary input to a known plan, defaulting to start.
func Normalize(plan string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanPremium:
		return PlanPremium
	case PlanEternal:
		return PlanEternal
	default:
		return PlanStart
	}
}

// IsValid reports whether the input names a known plan exactly.
func IsValid(plan string) bool {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanStart, PlanPremium, PlanEternal:
		return true
	default:
		return false
	}
}

// Rank orders plans for tier comparisons: start < premium < eternal.
func Rank(plan Plan) int {
	switch plan {
	case PlanEternal:
		return 2
	case PlanPremium:
		return 1
	default:
		return 0
	}
}

// LimitsFor returns the limit table for a plan.
func LimitsFor(plan Plan) Limits {
	if l, ok := limitTable[plan]; ok {
		return l
	}
	return limitTable[PlanStart]
}

// Feature looks up a single feature value by name. Boolean features map
// directly; numeric features are reported as available iff non-zero.
// Unknown feature names are unavailable.
func Feature(plan Plan, name string) (available bool, limit int, known bool) {
	l := LimitsFor(plan)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "photos":
		return l.MaxPhotos != 0, l.MaxPhotos, true
	case "music":
		return l.MaxMusic != 0, l.MaxMusic, true
	case "gifts":
		return l.MaxGifts != 0, l.MaxGifts, true
	case "premium_themes":
		return l.PremiumThemes, 0, true
	case "gift_animations":
		return l.GiftAnimations, 0, true
	case "custom_domain":
		return l.CustomDomain, 0, true
	default:
		return false, 0, false
	}
}
