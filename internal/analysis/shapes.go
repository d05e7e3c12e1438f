package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
)

// CategoryMean groups by Label and averages metric. One row per Label present.
func CategoryMean(t *dataset.Table, metric string) (*SummaryTable, error) {
	if !dataset.IsNumeric(metric) {
		return nil, fmt.Errorf("%w: metric %q is not a numeric column", ErrInvalidGroupKey, metric)
	}
	return AggregateBy(t, []string{dataset.ColLabel}, []Aggregation{{Column: metric, Op: OpMean}})
}

// CategoryGenderCounts counts records per (Label, Gender) pair. Absent pairs are not zero-filled.
func CategoryGenderCounts(t *dataset.Table) (*SummaryTable, error) {
	return AggregateBy(t, []string{dataset.ColLabel, dataset.ColGender}, []Aggregation{{Op: OpCount}})
}

// ProfileAggs are the aggregates computed per gender and age group.
var ProfileAggs = []Aggregation{
	{Op: OpCount},
	{Column: dataset.ColBMI, Op: OpMean},
	{Column: dataset.ColHeight, Op: OpMean},
	{Column: dataset.ColWeight, Op: OpMean},
}

// GenderProfile holds the male and female age-group sub-tables and their side-by-side join.
type GenderProfile struct {
	Male   *SummaryTable
	Female *SummaryTable
	Rows   []ProfileRow
}

// ProfileRow pairs one age group across genders. A nil side means that gender has no
// records in the group.
type ProfileRow struct {
	AgeGroup string
	Male     *SummaryRow
	Female   *SummaryRow
}

// GenderAgeProfile builds independent male and female summaries by age group, sorted by
// bucket, and joins them on the age group label without synthesizing missing buckets.
func GenderAgeProfile(t *dataset.Table) (*GenderProfile, error) {
	sub := func(gender string) (*SummaryTable, error) {
		part := t.Filter(func(r dataset.Record) bool { return dataset.GenderIs(r.Gender, gender) })
		st, err := AggregateBy(part, []string{dataset.ColAgeGroup}, ProfileAggs)
		if err != nil {
			return nil, fmt.Errorf("%s profile: %w", gender, err)
		}
		return st.SortByAgeGroup(), nil
	}
	male, err := sub("male")
	if err != nil {
		return nil, err
	}
	female, err := sub("female")
	if err != nil {
		return nil, err
	}
	p := &GenderProfile{Male: male, Female: female}

	byLabel := map[string]*ProfileRow{}
	var labels []string
	join := func(st *SummaryTable, set func(*ProfileRow, *SummaryRow)) {
		for i := range st.Rows {
			label := st.Rows[i].Key[0]
			pr, ok := byLabel[label]
			if !ok {
				pr = &ProfileRow{AgeGroup: label}
				byLabel[label] = pr
				labels = append(labels, label)
			}
			set(pr, &st.Rows[i])
		}
	}
	join(male, func(pr *ProfileRow, r *SummaryRow) { pr.Male = r })
	join(female, func(pr *ProfileRow, r *SummaryRow) { pr.Female = r })

	sort.SliceStable(labels, func(i, j int) bool {
		a, _ := dataset.ParseAgeGroup(labels[i])
		b, _ := dataset.ParseAgeGroup(labels[j])
		return a.Lower < b.Lower
	})
	for _, l := range labels {
		p.Rows = append(p.Rows, *byLabel[l])
	}
	return p, nil
}
