package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideDebit  = "DR"
	SideCredit = "CR"
)

// JournalEntryLine is one accounting line derived from a project record.
// Lines belonging to the same project share a JournalID.
type JournalEntryLine struct {
	JournalID   string          `json:"journal_id"`
	LineNumber  int             `json:"line_number"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Side        string          `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`

	ProjectID         string            `json:"project_id"`
	CarrierID         string            `json:"carrier_id"`
	ProductName       string            `json:"product_name,omitempty"`
	EffectiveDate     *time.Time        `json:"effective_date,omitempty"`
	ExpirationDate    *time.Time        `json:"expiration_date,omitempty"`
	ZipCode           string            `json:"zip_code,omitempty"`
	StateFIPS         string            `json:"state_fips,omitempty"`
	CountyFIPS        string            `json:"county_fips,omitempty"`
	TractFIPS         string            `json:"tract_fips,omitempty"`
	EligibilityStatus EligibilityStatus `json:"eligibility_status,omitempty"`
	EligibilityReason string            `json:"eligibility_reason,omitempty"`
	SourceFile        string            `json:"source_file,omitempty"`
	SourceRowNumber   int               `json:"source_row_number,omitempty"`
}

// Account renders the combined ledger account label, e.g.
// "4000 - Written Premium Revenue".
func (l JournalEntryLine) Account() string {
	return l.AccountCode + " - " + l.AccountName
}

type AccumulationFlag string

const (
	FlagGreen  AccumulationFlag = "GREEN"
	FlagYellow AccumulationFlag = "YELLOW"
	FlagRed    AccumulationFlag = "RED"
)

// Severity orders flags for max-of-axes classification. Higher is worse.
func (f AccumulationFlag) Severity() int {
	switch f {
	case FlagRed:
		return 2
	case FlagYellow:
		return 1
	}
	return 0
}

// MoreSevere returns the worse of the two flags.
func (f AccumulationFlag) MoreSevere(other AccumulationFlag) AccumulationFlag {
	if other.Severity() > f.Severity() {
		return other
	}
	return f
}

// ZipAccumulationSummary aggregates all enriched records sharing a ZIP.
type ZipAccumulationSummary struct {
	ZipCode           string           `json:"zip_code"`
	ProjectCount      int              `json:"project_count"`
	DistinctCarriers  int              `json:"distinct_carriers"`
	Carriers          []string         `json:"carriers"`
	TotalGrossPremium decimal.Decimal  `json:"total_gross_premium"`
	TotalPenalAmount  decimal.Decimal  `json:"total_penal_amount"`
	Flag              AccumulationFlag `json:"flag"`
	Note              string           `json:"note"`
}
