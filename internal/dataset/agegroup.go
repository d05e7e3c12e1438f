package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Age group bounds. Ages outside [MinGroupAge, MaxGroupAge) get no group.
const (
	MinGroupAge = 10
	MaxGroupAge = 120
	GroupWidth  = 10
)

// AgeGroup is a half-open decade bucket [Lower, Upper). The zero value is unassigned.
type AgeGroup struct {
	Lower int
	Upper int
}

// AgeGroupFor returns the bucket containing age, or the zero AgeGroup when age is out of range.
func AgeGroupFor(age float64) AgeGroup {
	if math.IsNaN(age) || age < MinGroupAge || age >= MaxGroupAge {
		return AgeGroup{}
	}
	idx := int(math.Floor((age - MinGroupAge) / GroupWidth))
	lo := MinGroupAge + idx*GroupWidth
	return AgeGroup{Lower: lo, Upper: lo + GroupWidth}
}

// Assigned reports whether the group is a real bucket.
func (g AgeGroup) Assigned() bool { return g.Upper > g.Lower }

// Contains reports whether age falls in [Lower, Upper).
func (g AgeGroup) Contains(age float64) bool {
	return g.Assigned() && age >= float64(g.Lower) && age < float64(g.Upper)
}

// Label renders the bucket as "20-29"; unassigned groups render as "".
func (g AgeGroup) Label() string {
	if !g.Assigned() {
		return ""
	}
	return fmt.Sprintf("%d-%d", g.Lower, g.Upper-1)
}

func (g AgeGroup) String() string { return g.Label() }

// ParseAgeGroup parses a label produced by Label.
func ParseAgeGroup(label string) (AgeGroup, bool) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(label), "-")
	if !ok {
		return AgeGroup{}, false
	}
	l, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return AgeGroup{}, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || h < l {
		return AgeGroup{}, false
	}
	return AgeGroup{Lower: l, Upper: h + 1}, true
}

// AllAgeGroups returns the consecutive buckets partitioning [MinGroupAge, MaxGroupAge).
func AllAgeGroups() []AgeGroup {
	var out []AgeGroup
	for lo := MinGroupAge; lo < MaxGroupAge; lo += GroupWidth {
		out = append(out, AgeGroup{Lower: lo, Upper: lo + GroupWidth})
	}
	return out
}
