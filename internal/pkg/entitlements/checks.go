package entitlements

import (
	"fmt"

	"github.com/evergift/evergift/internal/pkg/plans"
)

// LimitCheck is the outcome of a single feature-limit question. The
// unlimited sentinel -1 passes through Limit and Remaining unchanged.
type LimitCheck struct {
	Allowed              bool `json:"allowed"`
	Limit                int  `json:"limit"`
	Remaining            int  `json:"remaining"`
	CurrentCount         int  `json:"current_count"`
	FeatureAvailable     bool `json:"feature_available"`
	RequiresUpgrade      bool `json:"requires_upgrade"`
	RequiresSubscription bool `json:"requires_subscription"`
}

// PlanAccess is the outcome of a tier comparison.
type PlanAccess struct {
	HasAccess   bool   `json:"has_access"`
	CurrentPlan string `json:"current_plan,omitempty"`
	Message     string `json:"message"`
}

// checkCeiling applies the shared ceiling semantics: 0 means the feature
// is not part of the plan, -1 means unlimited, anything else is a hard
// cap compared against the current count.
func checkCeiling(limit, currentCount int) LimitCheck {
	check := LimitCheck{Limit: limit, CurrentCount: currentCount}

	switch {
	case limit == 0:
		check.RequiresUpgrade = true
	case limit < 0:
		check.Allowed = true
		check.FeatureAvailable = true
		check.Remaining = -1
	case currentCount >= limit:
		check.FeatureAvailable = true
		check.RequiresUpgrade = true
	default:
		check.Allowed = true
		check.FeatureAvailable = true
		check.Remaining = limit - currentCount
	}
	return check
}

// deniedCheck is the fail-closed answer for users without an active plan.
func deniedCheck(currentCount int) LimitCheck {
	return LimitCheck{CurrentCount: currentCount, RequiresSubscription: true}
}

// CanAddPhoto reports whether the user may attach another photo given the
// photo count they already hold.
func (r *Resolver) CanAddPhoto(userID uint, currentCount int) (LimitCheck, error) {
	effective, err := r.GetEffectivePlan(userID)
	if err != nil {
		return deniedCheck(currentCount), err
	}
	if !effective.HasPlan() {
		return deniedCheck(currentCount), nil
	}
	return checkCeiling(effective.Limits.MaxPhotos, currentCount), nil
}

// CanAddMusic reports whether the user may attach another music track.
// FeatureAvailable distinguishes "music is not part of this plan" from
// "included but the limit is reached".
func (r *Resolver) CanAddMusic(userID uint, currentCount int) (LimitCheck, error) {
	effective, err := r.GetEffectivePlan(userID)
	if err != nil {
		return deniedCheck(currentCount), err
	}
	if !effective.HasPlan() {
		return deniedCheck(currentCount), nil
	}
	return checkCeiling(effective.Limits.MaxMusic, currentCount), nil
}

// CanCreateGift reports whether the user may create another gift page,
// counting their existing gifts live.
func (r *Resolver) CanCreateGift(userID uint) (LimitCheck, error) {
	effective, err := r.GetEffectivePlan(userID)
	if err != nil {
		return deniedCheck(0), err
	}
	if !effective.HasPlan() {
		return deniedCheck(0), nil
	}

	count, err := r.gifts.CountByUserID(userID)
	if err != nil {
		return deniedCheck(0), err
	}
	return checkCeiling(effective.Limits.MaxGifts, int(count)), nil
}

// HasFeatureAccess answers a generic feature question against the
// resolved plan. Unknown features and users without a plan get false.
func (r *Resolver) HasFeatureAccess(userID uint, feature string) (bool, error) {
	effective, err := r.GetEffectivePlan(userID)
	if err != nil || !effective.HasPlan() {
		return false, err
	}
	available, _, known := plans.Feature(effective.Plan, feature)
	return known && available, nil
}

// ValidatePlanAccess grants access iff the user's resolved plan ranks at
// least as high as requiredPlan in the fixed start < premium < eternal
// ordering.
func (r *Resolver) ValidatePlanAccess(userID uint, requiredPlan string) (PlanAccess, error) {
	if !plans.IsValid(requiredPlan) {
		return PlanAccess{Message: "Unknown plan requirement"}, nil
	}
	required := plans.Normalize(requiredPlan)

	effective, err := r.GetEffectivePlan(userID)
	if err != nil {
		return PlanAccess{Message: "An active subscription is required"}, err
	}
	if !effective.HasPlan() {
		return PlanAccess{Message: "An active subscription is required"}, nil
	}

	if plans.Rank(effective.Plan) < plans.Rank(required) {
		return PlanAccess{
			CurrentPlan: string(effective.Plan),
			Message:     fmt.Sprintf("This feature requires the %s plan or higher", required),
		}, nil
	}
	return PlanAccess{
		HasAccess:   true,
		CurrentPlan: string(effective.Plan),
		Message:     "Access granted",
	}, nil
}
