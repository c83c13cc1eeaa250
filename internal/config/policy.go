package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// AccountMapping binds one financial field to a ledger account template.
// Description is the line-description prefix; the product name is appended
// at mapping time.
type AccountMapping struct {
	Field       string `yaml:"field"`
	AccountCode string `yaml:"account_code"`
	AccountName string `yaml:"account_name"`
	Side        string `yaml:"side"`
	Description string `yaml:"description"`
}

// Thresholds are the two accumulation axes. A ZIP group at or above a
// yellow cutoff is YELLOW, at or above a red cutoff is RED; the final flag
// is the more severe of the two axes.
type Thresholds struct {
	PremiumYellow decimal.Decimal `yaml:"premium_yellow"`
	PremiumRed    decimal.Decimal `yaml:"premium_red"`
	CountYellow   int             `yaml:"count_yellow"`
	CountRed      int             `yaml:"count_red"`
}

// IndicatorColumn names one CEJST criterion column and the short label used
// in eligibility reasons.
type IndicatorColumn struct {
	Column string `yaml:"column"`
	Label  string `yaml:"label"`
}

// CejstColumns configures how the CEJST dataset is read. Column candidates
// are tried in order, which absorbs dataset-version renames without a code
// change.
type CejstColumns struct {
	TractIDColumns       []string          `yaml:"tract_id_columns"`
	DisadvantagedColumns []string          `yaml:"disadvantaged_columns"`
	Indicators           []IndicatorColumn `yaml:"indicators"`
}

// Policy is the underwriting policy file: everything the business changes
// without a deploy. Loaded from YAML over the built-in defaults.
type Policy struct {
	Currency      string           `yaml:"currency"`
	OmitZeroLines bool             `yaml:"omit_zero_lines"`
	DateFormats   []string         `yaml:"date_formats"`
	Accounts      []AccountMapping `yaml:"account_mappings"`
	Thresholds    Thresholds       `yaml:"accumulation_thresholds"`
	Cejst         CejstColumns     `yaml:"cejst"`
}

func DefaultPolicy() *Policy {
	return &Policy{
		Currency:      "USD",
		OmitZeroLines: false,
		DateFormats: []string{
			"2006-01-02",
			"01/02/2006",
			"1/2/2006",
			"2006-01-02 15:04:05",
			"01-02-2006",
		},
		Accounts: []AccountMapping{
			{Field: "net_premium", AccountCode: "2300", AccountName: "MGA Payable", Side: models.SideDebit, Description: "Net Premium"},
			{Field: "gross_premium", AccountCode: "4000", AccountName: "Written Premium Revenue", Side: models.SideCredit, Description: "Written Premium"},
			{Field: "commission_amount", AccountCode: "5200", AccountName: "Commission Expense", Side: models.SideDebit, Description: "Commission"},
			{Field: "ceded_commission_amount", AccountCode: "2310", AccountName: "Ceded Commission Payable", Side: models.SideCredit, Description: "Ceded Commission"},
			{Field: "penal_amount", AccountCode: "9100", AccountName: "Penal Exposure Memo", Side: models.SideDebit, Description: "Penal Exposure"},
		},
		Thresholds: Thresholds{
			PremiumYellow: decimal.NewFromInt(2_000_000),
			PremiumRed:    decimal.NewFromInt(5_000_000),
			CountYellow:   2,
			CountRed:      4,
		},
		Cejst: CejstColumns{
			TractIDColumns:       []string{"Census tract 2010 ID", "Census tract ID", "GEOID10"},
			DisadvantagedColumns: []string{"Identified as disadvantaged", "Disadvantaged"},
			Indicators: []IndicatorColumn{
				{Column: "Greater than or equal to the 90th percentile for energy burden and is low income?", Label: "energy burden"},
				{Column: "Greater than or equal to the 90th percentile for PM2.5 exposure and is low income?", Label: "PM2.5 exposure"},
				{Column: "Greater than or equal to the 90th percentile for diesel particulate matter and is low income?", Label: "diesel particulate matter"},
				{Column: "Greater than or equal to the 90th percentile for traffic proximity and is low income?", Label: "traffic proximity"},
				{Column: "Greater than or equal to the 90th percentile for housing burden and is low income?", Label: "housing burden"},
				{Column: "Greater than or equal to the 90th percentile for proximity to hazardous waste facilities and is low income?", Label: "hazardous waste proximity"},
				{Column: "Greater than or equal to the 90th percentile for unemployment and has low HS attainment?", Label: "unemployment"},
			},
		},
	}
}

// LoadPolicy reads the policy file at path over the defaults. An empty path
// returns the defaults unchanged.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("parsing pipeline policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline policy %s: %w", path, err)
	}
	return policy, nil
}

func (p *Policy) Validate() error {
	if p.Currency == "" {
		return fmt.Errorf("currency must not be empty")
	}
	if len(p.DateFormats) == 0 {
		return fmt.Errorf("at least one date format is required")
	}
	if len(p.Accounts) == 0 {
		return fmt.Errorf("at least one account mapping is required")
	}
	for _, a := range p.Accounts {
		if a.Side != models.SideDebit && a.Side != models.SideCredit {
			return fmt.Errorf("account mapping %s: side must be %s or %s, got %q", a.Field, models.SideDebit, models.SideCredit, a.Side)
		}
		if a.AccountCode == "" {
			return fmt.Errorf("account mapping %s: account_code must not be empty", a.Field)
		}
	}
	if p.Thresholds.PremiumRed.LessThan(p.Thresholds.PremiumYellow) {
		return fmt.Errorf("premium_red must not be below premium_yellow")
	}
	if p.Thresholds.CountRed < p.Thresholds.CountYellow {
		return fmt.Errorf("count_red must not be below count_yellow")
	}
	return nil
}
