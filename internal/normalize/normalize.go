package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/schema"
)

// Stamp carries the run-scoped lineage values. Both come from the
// orchestrator so a re-run with the same stamp reproduces identical records.
type Stamp struct {
	IngestionTime time.Time
	AsOfDate      time.Time
}

// Normalizer coerces raw rows into standardized project records per the
// field registry. Records with a failing required field are excluded from
// the primary output and surface only through exceptions.
type Normalizer struct {
	registry    schema.Registry
	dateFormats []string
}

func New(registry schema.Registry, dateFormats []string) *Normalizer {
	return &Normalizer{registry: registry, dateFormats: dateFormats}
}

// Normalize processes the whole raw record set. Failing fields produce one
// exception each; a record is kept only when none of its failing fields are
// required.
func (n *Normalizer) Normalize(raws []models.RawRecord, stamp Stamp) ([]models.ProjectRecord, []models.ExceptionRecord) {
	records := make([]models.ProjectRecord, 0, len(raws))
	var exceptions []models.ExceptionRecord

	for _, raw := range raws {
		record, recordExceptions, ok := n.normalizeRecord(raw, stamp)
		exceptions = append(exceptions, recordExceptions...)
		if ok {
			records = append(records, record)
		}
	}

	return records, exceptions
}

func (n *Normalizer) normalizeRecord(raw models.RawRecord, stamp Stamp) (models.ProjectRecord, []models.ExceptionRecord, bool) {
	record := models.ProjectRecord{
		ProjectID:             fmt.Sprintf("%s_%06d", raw.CarrierID, raw.Index+1),
		CarrierID:             raw.CarrierID,
		SourceFile:            raw.SourceFile,
		SourceRowNumber:       raw.RowNumber,
		IngestionTimestampUTC: stamp.IngestionTime,
		AsOfDate:              stamp.AsOfDate,
	}

	var exceptions []models.ExceptionRecord
	ok := true

	for _, field := range n.registry.Fields() {
		value := rawValue(raw.Fields, field.RawHeaders)

		if value == "" {
			if field.Required {
				exceptions = append(exceptions, models.NewException(
					models.StageNormalizer, models.RuleRequiredFieldMissing, &record,
					field.Name, "", "required field is empty"))
				ok = false
			}
			continue
		}

		if err := n.setField(&record, field, value); err != nil {
			rule := models.RuleInvalidDecimal
			if field.Type == schema.TypeDate {
				rule = models.RuleInvalidDate
			}
			exc := models.NewException(models.StageNormalizer, rule, &record, field.Name, value, "")
			exc.Err = err
			exc.Message = err.Error()
			exceptions = append(exceptions, exc)
			if field.Required {
				ok = false
			}
		}
	}

	return record, exceptions, ok
}

func (n *Normalizer) setField(record *models.ProjectRecord, field schema.FieldSpec, value string) error {
	switch field.Type {
	case schema.TypeDecimal:
		amount, err := ParseDecimal(value)
		if err != nil {
			return err
		}
		setDecimalField(record, field.Name, amount)
		return nil
	case schema.TypeDate:
		date, err := n.parseDate(value)
		if err != nil {
			return err
		}
		setDateField(record, field.Name, date)
		return nil
	}
	setStringField(record, field.Name, value)
	return nil
}

// ParseDecimal parses a currency-formatted cell: dollar signs, thousands
// separators, percent signs, and inner spaces are ignored; anything left
// over must be a plain number.
func ParseDecimal(value string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("no numeric content in %q", value)
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", value)
	}
	return amount, nil
}

func (n *Normalizer) parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range n.dateFormats {
		if date, err := time.Parse(layout, trimmed); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("no configured date format matches %q", value)
}

func rawValue(fields map[string]string, headers []string) string {
	for _, header := range headers {
		if value, ok := fields[header]; ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func setDecimalField(record *models.ProjectRecord, name string, amount decimal.Decimal) {
	value := decimal.NewNullDecimal(amount)
	switch name {
	case "gross_premium":
		record.GrossPremium = value
	case "net_premium":
		record.NetPremium = value
	case "commission_amount":
		record.CommissionAmount = value
	case "ceded_commission_amount":
		record.CededCommissionAmount = value
	case "commission_rate_pct":
		record.CommissionRatePct = value
	case "quota_share_pct":
		record.QuotaSharePct = value
	case "penal_amount":
		record.PenalAmount = value
	}
}

func setDateField(record *models.ProjectRecord, name string, date time.Time) {
	switch name {
	case "effective_date":
		record.EffectiveDate = &date
	case "expiration_date":
		record.ExpirationDate = &date
	}
}

func setStringField(record *models.ProjectRecord, name, value string) {
	switch name {
	case "product_name":
		record.ProductName = value
	case "premium_state":
		record.PremiumState = value
	case "principal_name":
		record.PrincipalName = value
	case "principal_address":
		record.PrincipalAddress = value
	case "principal_zip":
		record.PrincipalZip = value
	case "broker_name":
		record.BrokerName = value
	case "broker_state":
		record.BrokerState = value
	case "obligee_name":
		record.ObligeeName = value
	case "obligee_state":
		record.ObligeeState = value
	}
}
