package models

import "fmt"

// Pipeline stage names as they appear in exception records and run reports.
const (
	StageNormalizer  = "normalizer"
	StageZipResolver = "zip_resolver"
	StageTractMapper = "tract_mapper"
	StageEligibility = "eligibility_classifier"
	StageJournal     = "journal_mapping"
)

// Rules a record can violate. The rule string is the stable, greppable key a
// reviewer uses to trace an exception back to the stage contract.
const (
	RuleRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	RuleInvalidDecimal       = "INVALID_DECIMAL"
	RuleInvalidDate          = "INVALID_DATE"
	RuleZipNotFound          = "ZIP_NOT_FOUND"
	RuleZipAmbiguous         = "ZIP_AMBIGUOUS"
	RuleZipNotInHudTable     = "ZIP_NOT_IN_HUD_TABLE"
	RuleNoCrosswalkEntry     = "NO_CROSSWALK_ENTRY"
	RuleNoFinancialData      = "NO_FINANCIAL_DATA"
)

// ExceptionRecord captures one per-record rule violation. It is created by
// the stage that detects the violation and never mutated afterwards; the
// offending record leaves the primary record set but its identity survives
// here so source data can be corrected and the run repeated.
type ExceptionRecord struct {
	Stage           string `json:"stage"`
	Rule            string `json:"rule"`
	ProjectID       string `json:"project_id"`
	CarrierID       string `json:"carrier_id"`
	SourceFile      string `json:"source_file"`
	SourceRowNumber int    `json:"source_row_number"`
	Field           string `json:"field,omitempty"`
	RawValue        string `json:"raw_value,omitempty"`
	Message         string `json:"message,omitempty"`
	Err             error  `json:"-"`
}

func (e *ExceptionRecord) Error() string {
	id := fmt.Sprintf("%s/%s", e.CarrierID, e.ProjectID)
	if e.Err != nil {
		return fmt.Sprintf("%s %s [%s] field=%s raw=%q: %s - %v", e.Stage, id, e.Rule, e.Field, e.RawValue, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s [%s] field=%s raw=%q: %s", e.Stage, id, e.Rule, e.Field, e.RawValue, e.Message)
	}
	return fmt.Sprintf("%s %s [%s] field=%s raw=%q", e.Stage, id, e.Rule, e.Field, e.RawValue)
}

// NewException builds an exception carrying the record's identity. Stage,
// rule, field, and raw value are set by the caller at the detection site.
func NewException(stage, rule string, rec *ProjectRecord, field, raw, message string) ExceptionRecord {
	return ExceptionRecord{
		Stage:           stage,
		Rule:            rule,
		ProjectID:       rec.ProjectID,
		CarrierID:       rec.CarrierID,
		SourceFile:      rec.SourceFile,
		SourceRowNumber: rec.SourceRowNumber,
		Field:           field,
		RawValue:        raw,
		Message:         message,
	}
}
