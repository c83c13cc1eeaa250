package models

// CrosswalkEntry is one row of the HUD ZIP to census tract crosswalk. A ZIP
// can span several tracts, so multiple entries may share a Zip.
type CrosswalkEntry struct {
	Zip        string  `json:"zip"`
	StateFIPS  string  `json:"state_fips"`
	CountyFIPS string  `json:"county_fips"`
	Tract      string  `json:"tract"`
	ResRatio   float64 `json:"res_ratio"`
}

// GEOID returns the full tract FIPS identifier, the concatenation of the
// state, county, and tract codes.
func (e CrosswalkEntry) GEOID() string {
	return e.StateFIPS + e.CountyFIPS + e.Tract
}

// TractAssignment is the single best tract resolved for a ZIP, carrying the
// residential ratio that won the selection for audit.
type TractAssignment struct {
	ZipCode    string  `json:"zip_code"`
	StateFIPS  string  `json:"state_fips"`
	CountyFIPS string  `json:"county_fips"`
	TractFIPS  string  `json:"tract_fips"`
	ResRatio   float64 `json:"res_ratio"`
}

// CejstEntry is one row of the CEJST communities dataset, keyed by the
// 11-digit tract FIPS. MatchedCriteria holds the labels of the indicator
// columns that evaluated true for the row.
type CejstEntry struct {
	TractFIPS       string
	Disadvantaged   bool
	MatchedCriteria []string
}

type EligibilityStatus string

const (
	EligibilityEligible    EligibilityStatus = "Eligible"
	EligibilityPartial     EligibilityStatus = "Partial"
	EligibilityNotEligible EligibilityStatus = "Not Eligible"
)

// EligibilityVerdict is the classification outcome for one record. Reason is
// human-readable and cites the criteria that drove the status.
type EligibilityVerdict struct {
	Status          EligibilityStatus `json:"status"`
	Reason          string            `json:"reason"`
	Disadvantaged   bool              `json:"disadvantaged"`
	MatchedCriteria []string          `json:"matched_criteria,omitempty"`
}
