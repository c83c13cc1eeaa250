package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/config"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// Mapper turns enriched records into ledger lines via the configured
// chart-of-account table. One journal id is reserved per record in input
// order, so the export is reproducible row for row.
type Mapper struct {
	accounts      []config.AccountMapping
	currency      string
	omitZeroLines bool
}

func NewMapper(accounts []config.AccountMapping, currency string, omitZeroLines bool) (*Mapper, error) {
	var probe models.ProjectRecord
	for _, mapping := range accounts {
		if _, known := probe.FinancialField(mapping.Field); !known {
			return nil, fmt.Errorf("account mapping references unknown financial field %q", mapping.Field)
		}
	}
	return &Mapper{accounts: accounts, currency: currency, omitZeroLines: omitZeroLines}, nil
}

// MapEntries emits one line per configured financial field for every
// record. An absent field still yields a zero-amount line for audit
// completeness unless zero-line omission is on; a record with no financial
// fields at all is routed to exceptions and emits nothing. Journal ids are
// assigned by record position whether or not lines are emitted, so a
// corrected re-run keeps ids stable for the unaffected records.
func (m *Mapper) MapEntries(records []models.ProjectRecord) ([]models.JournalEntryLine, []models.ExceptionRecord) {
	var lines []models.JournalEntryLine
	var exceptions []models.ExceptionRecord

	for i := range records {
		record := &records[i]
		journalID := fmt.Sprintf("JE_%06d", i+1)

		if !record.HasFinancialData() {
			exceptions = append(exceptions, models.NewException(
				models.StageJournal, models.RuleNoFinancialData, record,
				"", "", "record carries no financial fields"))
			continue
		}

		lineNumber := 0
		for _, mapping := range m.accounts {
			value, _ := record.FinancialField(mapping.Field)
			amount := decimal.Zero
			if value.Valid {
				amount = value.Decimal
			}
			if m.omitZeroLines && amount.IsZero() {
				continue
			}

			lineNumber++
			lines = append(lines, models.JournalEntryLine{
				JournalID:         journalID,
				LineNumber:        lineNumber,
				AccountCode:       mapping.AccountCode,
				AccountName:       mapping.AccountName,
				Side:              mapping.Side,
				Amount:            amount,
				Currency:          m.currency,
				Description:       describe(mapping.Description, record.ProductName),
				ProjectID:         record.ProjectID,
				CarrierID:         record.CarrierID,
				ProductName:       record.ProductName,
				EffectiveDate:     record.EffectiveDate,
				ExpirationDate:    record.ExpirationDate,
				ZipCode:           record.ZipCode,
				StateFIPS:         record.StateFIPS,
				CountyFIPS:        record.CountyFIPS,
				TractFIPS:         record.TractFIPS,
				EligibilityStatus: record.EligibilityStatus,
				EligibilityReason: record.EligibilityReason,
				SourceFile:        record.SourceFile,
				SourceRowNumber:   record.SourceRowNumber,
			})
		}
	}

	return lines, exceptions
}

func describe(prefix, productName string) string {
	if productName == "" {
		return prefix
	}
	return prefix + " - " + productName
}
