package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one unparsed bordereaux row as read from a source file.
// Fields maps the trimmed raw column header to the cell text.
type RawRecord struct {
	SourceFile string
	CarrierID  string
	Index      int
	RowNumber  int
	Fields     map[string]string
}

// ProjectRecord is one standardized bordereaux line item. Identity and
// lineage fields are stamped by the normalizer and immutable afterwards;
// enrichment fields are filled in by the downstream stages.
type ProjectRecord struct {
	ProjectID             string    `json:"project_id"`
	CarrierID             string    `json:"carrier_id"`
	SourceFile            string    `json:"source_file"`
	SourceRowNumber       int       `json:"source_row_number"`
	IngestionTimestampUTC time.Time `json:"ingestion_timestamp_utc"`
	AsOfDate              time.Time `json:"as_of_date"`

	EffectiveDate  *time.Time `json:"effective_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`

	GrossPremium          decimal.NullDecimal `json:"gross_premium"`
	NetPremium            decimal.NullDecimal `json:"net_premium"`
	CommissionAmount      decimal.NullDecimal `json:"commission_amount"`
	CededCommissionAmount decimal.NullDecimal `json:"ceded_commission_amount"`
	CommissionRatePct     decimal.NullDecimal `json:"commission_rate_pct"`
	QuotaSharePct         decimal.NullDecimal `json:"quota_share_pct"`
	PenalAmount           decimal.NullDecimal `json:"penal_amount"`

	ProductName      string `json:"product_name,omitempty"`
	PremiumState     string `json:"premium_state,omitempty"`
	PrincipalName    string `json:"principal_name,omitempty"`
	PrincipalAddress string `json:"principal_address,omitempty"`
	PrincipalZip     string `json:"principal_zip,omitempty"`
	BrokerName       string `json:"broker_name,omitempty"`
	BrokerState      string `json:"broker_state,omitempty"`
	ObligeeName      string `json:"obligee_name,omitempty"`
	ObligeeState     string `json:"obligee_state,omitempty"`

	ZipCode            string            `json:"zip_code,omitempty"`
	StateFIPS          string            `json:"state_fips,omitempty"`
	CountyFIPS         string            `json:"county_fips,omitempty"`
	TractFIPS          string            `json:"tract_fips,omitempty"`
	TractResRatio      float64           `json:"tract_res_ratio,omitempty"`
	CejstDisadvantaged bool              `json:"cejst_disadvantaged"`
	EligibilityStatus  EligibilityStatus `json:"eligibility_status,omitempty"`
	EligibilityReason  string            `json:"eligibility_reason,omitempty"`
}

// Identity returns the cross-stage record identity used in logs and
// exception records.
func (r *ProjectRecord) Identity() string {
	return fmt.Sprintf("%s/%s", r.CarrierID, r.ProjectID)
}

// ApplyTract copies a tract assignment onto the record.
func (r *ProjectRecord) ApplyTract(t TractAssignment) {
	r.StateFIPS = t.StateFIPS
	r.CountyFIPS = t.CountyFIPS
	r.TractFIPS = t.TractFIPS
	r.TractResRatio = t.ResRatio
}

// ApplyVerdict copies an eligibility verdict onto the record.
func (r *ProjectRecord) ApplyVerdict(v EligibilityVerdict) {
	r.CejstDisadvantaged = v.Disadvantaged
	r.EligibilityStatus = v.Status
	r.EligibilityReason = v.Reason
}

// FinancialField returns the named monetary field. The boolean reports
// whether the name is a known financial field, not whether the value is set.
func (r *ProjectRecord) FinancialField(name string) (decimal.NullDecimal, bool) {
	switch name {
	case "gross_premium":
		return r.GrossPremium, true
	case "net_premium":
		return r.NetPremium, true
	case "commission_amount":
		return r.CommissionAmount, true
	case "ceded_commission_amount":
		return r.CededCommissionAmount, true
	case "penal_amount":
		return r.PenalAmount, true
	}
	return decimal.NullDecimal{}, false
}

// HasFinancialData reports whether at least one of the journal-relevant
// monetary fields is present.
func (r *ProjectRecord) HasFinancialData() bool {
	return r.GrossPremium.Valid ||
		r.NetPremium.Valid ||
		r.CommissionAmount.Valid ||
		r.CededCommissionAmount.Valid ||
		r.PenalAmount.Valid
}
