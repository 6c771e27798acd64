package domain

import "strings"

// ContributionFrequency is how often a simulated plan adds contributions.
// It also sets the number of compounding periods per year.
type ContributionFrequency string

const (
	FrequencyMonthly   ContributionFrequency = "monthly"
	FrequencyQuarterly ContributionFrequency = "quarterly"
	FrequencyYearly    ContributionFrequency = "yearly"
	FrequencyNone      ContributionFrequency = "none"
)

// PeriodsPerYear returns the compounding periods per year for f. Unknown
// and empty frequencies compound monthly.
func (f ContributionFrequency) PeriodsPerYear() int {
	switch ContributionFrequency(strings.ToLower(string(f))) {
	case FrequencyQuarterly:
		return 4
	case FrequencyYearly, FrequencyNone:
		return 1
	default:
		return 12
	}
}

// Contributes reports whether f adds contributions at all.
func (f ContributionFrequency) Contributes() bool {
	return ContributionFrequency(strings.ToLower(string(f))) != FrequencyNone
}
