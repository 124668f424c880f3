package govschedule

// DoseEntry is one dose in an externally supplied immunization schedule.
// AgeMonths is the target age for the dose, measured from birth.
type DoseEntry struct {
	Vaccine     string `json:"vaccine"`
	DoseNumber  int    `json:"dose_number"`
	AgeMonths   int    `json:"age_months"`
	Mandatory   bool   `json:"mandatory"`
	Description string `json:"description,omitempty"`
}

// Schedule is the reconciliation input for one user.
type Schedule struct {
	AgeInMonths int         `json:"age_in_months"`
	Doses       []DoseEntry `json:"doses"`
}
