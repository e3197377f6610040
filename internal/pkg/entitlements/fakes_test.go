package entitlements

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
)

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uint]*models.Subscription // keyed by user ID
	err  error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uint]*models.Subscription)}
}

func (f *fakeSubscriptionRepo) GetByUserID(userID uint) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubscriptionRepo) Create(sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.UserID] = sub
	return nil
}

func (f *fakeSubscriptionRepo) Save(sub *models.Subscription) error {
	return f.Create(sub)
}

func (f *fakeSubscriptionRepo) MarkExpired(subID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID == subID && sub.Status == models.SubscriptionStatusActive {
			sub.Status = models.SubscriptionStatusExpired
			sub.AutoRenew = false
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) Cancel(subID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID == subID && sub.Status == models.SubscriptionStatusActive {
			sub.Status = models.SubscriptionStatusCancelled
			sub.AutoRenew = false
			sub.CancelledAt = &at
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) Refund(subID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID == subID {
			sub.Status = models.SubscriptionStatusRefunded
			sub.AutoRenew = false
			sub.CancelledAt = &at
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) ListOverdue(now time.Time, limit int) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.IsOverdue(now) {
			out = append(out, *sub)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == models.NormalizeEmail(email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByVerificationToken(tokenHash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.VerificationToken == tokenHash && tokenHash != "" {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	return f.Create(user)
}

func (f *fakeUserRepo) UpdatePlanCache(userID uint, plan string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		user.Plan = plan
	}
	return nil
}

func (f *fakeUserRepo) UpdateLoginState(user *models.User) error {
	return f.Create(user)
}

func (f *fakeUserRepo) planOf(userID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		return user.Plan
	}
	return ""
}

type fakeGiftRepo struct {
	mu     sync.Mutex
	counts map[uint]int64
	err    error
}

func newFakeGiftRepo() *fakeGiftRepo {
	return &fakeGiftRepo{counts: make(map[uint]int64)}
}

func (f *fakeGiftRepo) Create(gift *models.Gift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[gift.UserID]++
	return nil
}

func (f *fakeGiftRepo) GetByUUID(uuid string) (*models.Gift, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGiftRepo) Update(gift *models.Gift) error { return nil }

func (f *fakeGiftRepo) CountByUserID(userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[userID], nil
}

// testResolver builds a resolver over fakes with the expiry side effect
// running synchronously so tests can observe it deterministically.
func testResolver() (*Resolver, *fakeSubscriptionRepo, *fakeUserRepo, *fakeGiftRepo) {
	subs := newFakeSubscriptionRepo()
	users := newFakeUserRepo()
	gifts := newFakeGiftRepo()

	r := NewResolver(&repository.Repositories{
		User:         users,
		Subscription: subs,
		Gift:         gifts,
	}, nil)
	r.detach = func(f func()) { f() }

	return r, subs, users, gifts
}
