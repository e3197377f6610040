package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergift/evergift/app/models"
)

func TestCanAddPhoto(t *testing.T) {
	t.Run("no subscription", func(t *testing.T) {
		r, _, _, _ := testResolver()

		check, err := r.CanAddPhoto(1, 0)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.True(t, check.RequiresSubscription)
	})

	t.Run("under the limit", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "start", nil)))

		check, err := r.CanAddPhoto(1, 3)
		require.NoError(t, err)
		assert.True(t, check.Allowed)
		assert.Equal(t, 5, check.Limit)
		assert.Equal(t, 2, check.Remaining)
	})

	t.Run("at the limit", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "start", nil)))

		check, err := r.CanAddPhoto(1, 5)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.True(t, check.RequiresUpgrade)
		assert.Equal(t, 0, check.Remaining)
	})

	t.Run("unlimited", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "eternal", nil)))

		check, err := r.CanAddPhoto(1, 100000)
		require.NoError(t, err)
		assert.True(t, check.Allowed)
		assert.Equal(t, -1, check.Limit)
		assert.Equal(t, -1, check.Remaining)
	})

	t.Run("expired subscription is denied", func(t *testing.T) {
		r, subs, users, _ := testResolver()
		require.NoError(t, users.Create(&models.User{ID: 1}))
		yesterday := time.Now().Add(-24 * time.Hour)
		require.NoError(t, subs.Create(activeSubscription(1, "eternal", &yesterday)))

		check, err := r.CanAddPhoto(1, 0)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.True(t, check.RequiresSubscription)
	})
}

func TestCanAddMusic(t *testing.T) {
	t.Run("not included in plan", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "start", nil)))

		check, err := r.CanAddMusic(1, 0)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.False(t, check.FeatureAvailable)
		assert.True(t, check.RequiresUpgrade)
	})

	t.Run("included but limit reached", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "premium", nil)))

		check, err := r.CanAddMusic(1, 3)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.True(t, check.FeatureAvailable)
		assert.True(t, check.RequiresUpgrade)
	})

	t.Run("included with room", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "premium", nil)))

		check, err := r.CanAddMusic(1, 1)
		require.NoError(t, err)
		assert.True(t, check.Allowed)
		assert.Equal(t, 2, check.Remaining)
	})
}

func TestCanCreateGift(t *testing.T) {
	r, subs, _, gifts := testResolver()
	require.NoError(t, subs.Create(activeSubscription(1, "start", nil)))

	check, err := r.CanCreateGift(1)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 0, check.CurrentCount)

	// start allows a single gift page.
	require.NoError(t, gifts.Create(&models.Gift{UserID: 1}))

	check, err = r.CanCreateGift(1)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.True(t, check.RequiresUpgrade)
	assert.Equal(t, 1, check.CurrentCount)
}

func TestHasFeatureAccess(t *testing.T) {
	tests := []struct {
		plan    string
		feature string
		want    bool
	}{
		{plan: "eternal", feature: "custom_domain", want: true},
		{plan: "premium", feature: "custom_domain", want: false},
		{plan: "premium", feature: "premium_themes", want: true},
		{plan: "start", feature: "premium_themes", want: false},
		{plan: "premium", feature: "music", want: true},
		{plan: "start", feature: "music", want: false},
		{plan: "eternal", feature: "no_such_feature", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.plan+"/"+tt.feature, func(t *testing.T) {
			r, subs, _, _ := testResolver()
			require.NoError(t, subs.Create(activeSubscription(1, tt.plan, nil)))

			got, err := r.HasFeatureAccess(1, tt.feature)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no subscription", func(t *testing.T) {
		r, _, _, _ := testResolver()
		got, err := r.HasFeatureAccess(1, "custom_domain")
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestValidatePlanAccess(t *testing.T) {
	t.Run("higher tier grants access", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "eternal", nil)))

		access, err := r.ValidatePlanAccess(1, "premium")
		require.NoError(t, err)
		assert.True(t, access.HasAccess)
		assert.Equal(t, "eternal", access.CurrentPlan)
	})

	t.Run("same tier grants access", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "premium", nil)))

		access, err := r.ValidatePlanAccess(1, "premium")
		require.NoError(t, err)
		assert.True(t, access.HasAccess)
	})

	t.Run("lower tier is denied", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "start", nil)))

		access, err := r.ValidatePlanAccess(1, "premium")
		require.NoError(t, err)
		assert.False(t, access.HasAccess)
		assert.Equal(t, "start", access.CurrentPlan)
		assert.NotEmpty(t, access.Message)
	})

	t.Run("no subscription is denied", func(t *testing.T) {
		r, _, _, _ := testResolver()

		access, err := r.ValidatePlanAccess(1, "premium")
		require.NoError(t, err)
		assert.False(t, access.HasAccess)
		assert.Empty(t, access.CurrentPlan)
	})

	t.Run("unknown requirement is denied", func(t *testing.T) {
		r, subs, _, _ := testResolver()
		require.NoError(t, subs.Create(activeSubscription(1, "eternal", nil)))

		access, err := r.ValidatePlanAccess(1, "platinum")
		require.NoError(t, err)
		assert.False(t, access.HasAccess)
	})
}
