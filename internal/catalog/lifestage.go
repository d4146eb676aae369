package catalog

import "strings"

// Canonical species tags used by product targeting.
const (
	SpeciesDog = "DOG"
	SpeciesCat = "CAT"
)

// Life stage tags used by product targeting.
const (
	LifeStageJuvenile = "KITTEN_PUPPY"
	LifeStageAdult    = "ADULT"
	LifeStageSenior   = "SENIOR"
	LifeStageAll      = "ALL"
)

// Age thresholds in months for the coarse life-stage buckets.
const (
	juvenileMaxAgeMonths = 12
	seniorMinAgeMonths   = 84
)

// NormalizeSpecies maps a free-form species string to a canonical tag.
// Unknown species map to the empty string.
func NormalizeSpecies(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DOG", "CHÓ", "CHO", "PUPPY":
		return SpeciesDog
	case "CAT", "MÈO", "MEO", "KITTEN":
		return SpeciesCat
	default:
		return ""
	}
}

// LifeStageForAge buckets an age in months into juvenile, adult or senior.
func LifeStageForAge(ageMonths int) string {
	switch {
	case ageMonths < juvenileMaxAgeMonths:
		return LifeStageJuvenile
	case ageMonths > seniorMinAgeMonths:
		return LifeStageSenior
	default:
		return LifeStageAdult
	}
}

// IsJuvenile reports whether the age falls in the juvenile bucket.
func IsJuvenile(ageMonths int) bool {
	return ageMonths < juvenileMaxAgeMonths
}

// IsSenior reports whether the age falls in the senior bucket.
func IsSenior(ageMonths int) bool {
	return ageMonths > seniorMinAgeMonths
}
