package packaging

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// Deliverable file names. Downstream consumers key on these.
const (
	EnrichedFile          = "phase1_enriched_projects.csv"
	IntacctExportFile     = "phase1_intacct_export.csv"
	LidacReportFile       = "phase1_lidac_report.csv"
	AccumulationFile      = "phase1_zip_accumulation.csv"
	ExceptionsFile        = "phase1_exceptions.csv"
	ExceptionsSummaryFile = "phase1_exceptions_summary.csv"
)

// Writer renders the run outputs as CSV deliverables. Row order is the
// order handed in, headers are fixed, and all formatting is locale-free, so
// identical inputs produce byte-identical files.
type Writer struct {
	outputDir string
}

func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// WriteAll writes every deliverable and returns the written paths in write
// order.
func (w *Writer) WriteAll(
	enriched []models.ProjectRecord,
	lines []models.JournalEntryLine,
	summaries []models.ZipAccumulationSummary,
	exceptions []models.ExceptionRecord,
) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", w.outputDir, err)
	}

	var paths []string
	writes := []struct {
		name string
		fn   func(string) error
	}{
		{EnrichedFile, func(p string) error { return w.writeEnriched(p, enriched) }},
		{IntacctExportFile, func(p string) error { return w.writeIntacctExport(p, lines) }},
		{LidacReportFile, func(p string) error { return w.writeLidacReport(p, enriched) }},
		{AccumulationFile, func(p string) error { return w.writeAccumulation(p, summaries) }},
		{ExceptionsFile, func(p string) error { return w.writeExceptions(p, exceptions) }},
		{ExceptionsSummaryFile, func(p string) error { return w.writeExceptionsSummary(p, exceptions) }},
	}
	for _, write := range writes {
		path := filepath.Join(w.outputDir, write.name)
		if err := write.fn(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (w *Writer) writeEnriched(path string, records []models.ProjectRecord) error {
	header := []string{
		"project_id", "carrier_id", "source_file", "source_row_number",
		"ingestion_timestamp_utc", "as_of_date",
		"effective_date", "expiration_date",
		"gross_premium", "net_premium", "commission_amount", "ceded_commission_amount",
		"commission_rate_pct", "quota_share_pct", "penal_amount",
		"product_name", "premium_state",
		"principal_name", "principal_address", "principal_zip",
		"broker_name", "broker_state", "obligee_name", "obligee_state",
		"zip_code", "state_fips", "county_fips", "tract_fips", "tract_res_ratio",
		"cejst_disadvantaged", "eligibility_status", "eligibility_reason",
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ProjectID, r.CarrierID, r.SourceFile, strconv.Itoa(r.SourceRowNumber),
			r.IngestionTimestampUTC.UTC().Format(time.RFC3339), formatDate(&r.AsOfDate),
			formatDate(r.EffectiveDate), formatDate(r.ExpirationDate),
			formatNullDecimal(r.GrossPremium), formatNullDecimal(r.NetPremium),
			formatNullDecimal(r.CommissionAmount), formatNullDecimal(r.CededCommissionAmount),
			formatNullDecimal(r.CommissionRatePct), formatNullDecimal(r.QuotaSharePct),
			formatNullDecimal(r.PenalAmount),
			r.ProductName, r.PremiumState,
			r.PrincipalName, r.PrincipalAddress, r.PrincipalZip,
			r.BrokerName, r.BrokerState, r.ObligeeName, r.ObligeeState,
			r.ZipCode, r.StateFIPS, r.CountyFIPS, r.TractFIPS, formatRatio(r.TractResRatio),
			strconv.FormatBool(r.CejstDisadvantaged), string(r.EligibilityStatus), r.EligibilityReason,
		})
	}

	return writeCSV(path, header, rows)
}

func (w *Writer) writeIntacctExport(path string, lines []models.JournalEntryLine) error {
	header := []string{
		"journal_id", "line_number", "account_code", "account", "side",
		"amount", "currency", "description",
		"project_id", "carrier_id", "product_name",
		"effective_date", "expiration_date",
		"zip_code", "state_fips", "county_fips", "tract_fips",
		"eligibility_status", "eligibility_reason",
		"source_file", "source_row_number",
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			l.JournalID, strconv.Itoa(l.LineNumber), l.AccountCode, l.Account(), l.Side,
			l.Amount.String(), l.Currency, l.Description,
			l.ProjectID, l.CarrierID, l.ProductName,
			formatDate(l.EffectiveDate), formatDate(l.ExpirationDate),
			l.ZipCode, l.StateFIPS, l.CountyFIPS, l.TractFIPS,
			string(l.EligibilityStatus), l.EligibilityReason,
			l.SourceFile, strconv.Itoa(l.SourceRowNumber),
		})
	}

	return writeCSV(path, header, rows)
}

func (w *Writer) writeLidacReport(path string, records []models.ProjectRecord) error {
	header := []string{
		"project_id", "carrier_id", "zip_code",
		"state_fips", "county_fips", "tract_fips",
		"cejst_disadvantaged", "eligibility_status", "eligibility_reason",
		"product_name", "premium_state",
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ProjectID, r.CarrierID, r.ZipCode,
			r.StateFIPS, r.CountyFIPS, r.TractFIPS,
			strconv.FormatBool(r.CejstDisadvantaged), string(r.EligibilityStatus), r.EligibilityReason,
			r.ProductName, r.PremiumState,
		})
	}

	return writeCSV(path, header, rows)
}

func (w *Writer) writeAccumulation(path string, summaries []models.ZipAccumulationSummary) error {
	header := []string{
		"zip_code", "project_count", "distinct_carriers", "carriers_involved",
		"total_gross_premium", "total_penal_amount", "flag", "note",
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.ZipCode, strconv.Itoa(s.ProjectCount), strconv.Itoa(s.DistinctCarriers),
			joinCarriers(s.Carriers),
			s.TotalGrossPremium.String(), s.TotalPenalAmount.String(),
			string(s.Flag), s.Note,
		})
	}

	return writeCSV(path, header, rows)
}

func (w *Writer) writeExceptions(path string, exceptions []models.ExceptionRecord) error {
	header := []string{
		"stage", "rule", "project_id", "carrier_id",
		"source_file", "source_row_number", "field", "raw_value", "message",
	}

	rows := make([][]string, 0, len(exceptions))
	for _, e := range exceptions {
		rows = append(rows, []string{
			e.Stage, e.Rule, e.ProjectID, e.CarrierID,
			e.SourceFile, strconv.Itoa(e.SourceRowNumber), e.Field, e.RawValue, e.Message,
		})
	}

	return writeCSV(path, header, rows)
}

func (w *Writer) writeExceptionsSummary(path string, exceptions []models.ExceptionRecord) error {
	header := []string{"stage", "rule", "count"}

	rollup := models.ExceptionRollup(exceptions)
	rows := make([][]string, 0, len(rollup))
	for _, c := range rollup {
		rows = append(rows, []string{c.Stage, c.Rule, strconv.Itoa(c.Count)})
	}

	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	return nil
}

func formatNullDecimal(value decimal.NullDecimal) string {
	if !value.Valid {
		return ""
	}
	return value.Decimal.String()
}

func formatDate(date *time.Time) string {
	if date == nil || date.IsZero() {
		return ""
	}
	return date.Format("2006-01-02")
}

func formatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', -1, 64)
}

func joinCarriers(carriers []string) string {
	return strings.Join(carriers, "; ")
}
