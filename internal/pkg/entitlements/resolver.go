package entitlements

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
	"github.com/evergift/evergift/internal/pkg/audit"
	"github.com/evergift/evergift/internal/pkg/plans"
)

// Resolution reasons. These values are wire-stable; route handlers and
// clients match on them.
const (
	ReasonActive               = "ACTIVE"
	ReasonNoSubscription       = "NO_SUBSCRIPTION"
	ReasonSubscriptionInactive = "SUBSCRIPTION_INACTIVE"
	ReasonSubscriptionExpired  = "SUBSCRIPTION_EXPIRED"
)

// EffectivePlan is the result of resolving a user's live entitlement.
// Plan and Limits are only set when Reason is ACTIVE.
type EffectivePlan struct {
	Plan         plans.Plan           `json:"plan,omitempty"`
	Reason       string               `json:"reason"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Limits       *plans.Limits        `json:"limits,omitempty"`
}

// HasPlan reports whether the user currently holds any entitling plan.
func (e EffectivePlan) HasPlan() bool {
	return e.Reason == ReasonActive
}

// Resolver derives the effective plan strictly from the live Subscription
// record. It deliberately has no access to the denormalized User.Plan
// column: that field is a display cache written by SyncUserPlanCache and
// must never feed an authorization decision.
type Resolver struct {
	subs  repository.SubscriptionRepository
	users repository.UserRepository
	gifts repository.GiftRepository
	sink  *audit.Sink

	now    func() time.Time
	detach func(func())
}

// NewResolver creates a resolver over the given repositories. The sink is
// optional; expiry transitions are recorded when it is set.
func NewResolver(repos *repository.Repositories, sink *audit.Sink) *Resolver {
	return &Resolver{
		subs:   repos.Subscription,
		users:  repos.User,
		gifts:  repos.Gift,
		sink:   sink,
		now:    time.Now,
		detach: func(f func()) { go f() },
	}
}

// GetEffectivePlan resolves what plan, if any, the user is entitled to
// right now. Every path that is not an unambiguous active subscription
// resolves to no plan:
//
//  1. no subscription row            -> NO_SUBSCRIPTION
//  2. status is anything but active  -> SUBSCRIPTION_INACTIVE
//  3. active but end date passed     -> SUBSCRIPTION_EXPIRED, and the
//     record is transitioned to expired off the read path
//  4. otherwise                      -> the subscription's plan + limits
func (r *Resolver) GetEffectivePlan(userID uint) (EffectivePlan, error) {
	sub, err := r.subs.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EffectivePlan{Reason: ReasonNoSubscription}, nil
		}
		// Infrastructure fault: still resolves to no access for the caller.
		return EffectivePlan{Reason: ReasonNoSubscription}, err
	}

	if !sub.IsActive() {
		return EffectivePlan{Reason: ReasonSubscriptionInactive, Subscription: sub}, nil
	}

	if sub.IsOverdue(r.now()) {
		// Lazy expiry: deny now, transition the record without blocking or
		// failing this read.
		expired := *sub
		r.detach(func() { r.expire(&expired) })
		return EffectivePlan{Reason: ReasonSubscriptionExpired, Subscription: sub}, nil
	}

	plan := plans.Normalize(sub.Plan)
	limits := plans.LimitsFor(plan)
	return EffectivePlan{
		Plan:         plan,
		Reason:       ReasonActive,
		Subscription: sub,
		Limits:       &limits,
	}, nil
}

// expire transitions an overdue subscription to expired and clears the
// user's display plan. MarkExpired matches only active rows, so
// concurrent attempts on the same subscription are harmless.
func (r *Resolver) expire(sub *models.Subscription) {
	if err := r.subs.MarkExpired(sub.ID); err != nil {
		log.Errorf("[Entitlements] failed to expire subscription %d: %v", sub.ID, err)
		return
	}
	if err := r.users.UpdatePlanCache(sub.UserID, ""); err != nil {
		log.Errorf("[Entitlements] failed to clear plan cache for user %d: %v", sub.UserID, err)
	}
	if r.sink != nil {
		userID := sub.UserID
		r.sink.Record(audit.Event{
			UserID: &userID,
			Action: models.AuditActionSubscriptionExpired,
			Metadata: map[string]interface{}{
				"subscription_id": sub.ID,
				"plan":            sub.Plan,
			},
		})
	}
	log.Infof("[Entitlements] subscription %d expired for user %d", sub.ID, sub.UserID)
}

// SyncUserPlanCache refreshes the denormalized User.Plan column from the
// live subscription state. It is the single writer of that column.
func (r *Resolver) SyncUserPlanCache(userID uint) error {
	effective, err := r.GetEffectivePlan(userID)
	if err != nil {
		return err
	}
	plan := ""
	if effective.HasPlan() {
		plan = string(effective.Plan)
	}
	return r.users.UpdatePlanCache(userID, plan)
}
