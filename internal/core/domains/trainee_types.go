package domains

import "sort"

// TraineeProfile is the set of values derived from a trainee type.
type TraineeProfile struct {
	RankLabel     string
	Category      string
	TRBApplicable bool
}

// TraineeTypes maps trainee-type codes to their derived profile.
var TraineeTypes = map[string]TraineeProfile{
	"DECK_CADET":    {RankLabel: "Deck Cadet", Category: "Cadet", TRBApplicable: true},
	"ENGINE_CADET":  {RankLabel: "Engine Cadet", Category: "Cadet", TRBApplicable: true},
	"ETO_CADET":     {RankLabel: "ETO Cadet", Category: "Cadet", TRBApplicable: true},
	"DECK_RATING":   {RankLabel: "Deck Rating", Category: "Rating", TRBApplicable: true},
	"ENGINE_RATING": {RankLabel: "Engine Rating", Category: "Rating", TRBApplicable: true},
	"SUPERNUMERARY": {RankLabel: "Supernumerary", Category: "Other", TRBApplicable: false},
}

// TraineeTypeNames returns the trainee-type codes in sorted order.
func TraineeTypeNames() []string {
	names := make([]string, 0, len(TraineeTypes))
	for name := range TraineeTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
