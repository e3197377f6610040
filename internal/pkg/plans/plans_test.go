package plans

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "start", want: PlanStart},
		{in: "premium", want: PlanPremium},
		{in: "eternal", want: PlanEternal},
		{in: "ETERNAL", want: PlanEternal},
		{in: " premium ", want: PlanPremium},
		{in: "invalid", want: PlanStart},
		{in: "", want: PlanStart},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	if Rank(PlanStart) >= Rank(PlanPremium) {
		t.Fatalf("expected premium to outrank start")
	}
	if Rank(PlanPremium) >= Rank(PlanEternal) {
		t.Fatalf("expected eternal to outrank premium")
	}
}

func TestLimitsSentinels(t *testing.T) {
	if LimitsFor(PlanStart).MaxMusic != 0 {
		t.Fatalf("start plan must not include music")
	}
	if LimitsFor(PlanEternal).MaxPhotos != -1 {
		t.Fatalf("eternal plan photos must be unlimited")
	}
}

func TestFeature(t *testing.T) {
	tests := []struct {
		plan      Plan
		name      string
		available bool
		known     bool
	}{
		{PlanStart, "music", false, true},
		{PlanPremium, "music", true, true},
		{PlanEternal, "photos", true, true},
		{PlanStart, "custom_domain", false, true},
		{PlanEternal, "custom_domain", true, true},
		{PlanEternal, "teleportation", false, false},
	}

	for _, tt := range tests {
		available, _, known := Feature(tt.plan, tt.name)
		if available != tt.available || known != tt.known {
			t.Fatalf("Feature(%q, %q) = (%v, %v), want (%v, %v)",
				tt.plan, tt.name, available, known, tt.available, tt.known)
		}
	}
}
