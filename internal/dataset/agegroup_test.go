package dataset

import "testing"

func TestAgeGroupFor(t *testing.T) {
	tests := []struct {
		age  float64
		want string
	}{
		{9, ""},
		{9.99, ""},
		{10, "10-19"},
		{19, "10-19"},
		{20, "20-29"},
		{29.5, "20-29"},
		{30, "30-39"},
		{119, "110-119"},
		{120, ""},
		{-3, ""},
	}
	for _, tt := range tests {
		if got := AgeGroupFor(tt.age).Label(); got != tt.want {
			t.Errorf("AgeGroupFor(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestAgeGroupContainsItsAges(t *testing.T) {
	for age := 0.0; age < 130; age += 0.5 {
		g := AgeGroupFor(age)
		if !g.Assigned() {
			if age >= MinGroupAge && age < MaxGroupAge {
				t.Fatalf("age %v should be assigned", age)
			}
			continue
		}
		if !g.Contains(age) || float64(g.Lower) > age || age >= float64(g.Upper) {
			t.Fatalf("age %v not inside %v", age, g)
		}
	}
}

func TestAllAgeGroupsPartitionRange(t *testing.T) {
	groups := AllAgeGroups()
	if len(groups) != 11 {
		t.Fatalf("groups = %d, want 11", len(groups))
	}
	next := MinGroupAge
	for _, g := range groups {
		if g.Lower != next || g.Upper-g.Lower != GroupWidth {
			t.Fatalf("non-consecutive group %v", g)
		}
		next = g.Upper
	}
	if next != MaxGroupAge {
		t.Fatalf("groups end at %d, want %d", next, MaxGroupAge)
	}
}

func TestParseAgeGroupRoundTrip(t *testing.T) {
	for _, g := range AllAgeGroups() {
		got, ok := ParseAgeGroup(g.Label())
		if !ok || got != g {
			t.Fatalf("ParseAgeGroup(%q) = %v, %v", g.Label(), got, ok)
		}
	}
	if _, ok := ParseAgeGroup("adult"); ok {
		t.Fatalf("expected parse failure")
	}
}
