package database

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// ConnectDB opens a pgx pool with the shopspring decimal codecs registered,
// so NUMERIC columns round-trip through decimal.Decimal without float
// conversion.
func ConnectDB(connStr string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	return dbpool, nil
}

type PostgresDBManager struct {
	dbpool *pgxpool.Pool
	ctx    context.Context
}

func NewPostgresDBManager(ctx context.Context, pool *pgxpool.Pool) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool, ctx: ctx}
}

func (m *PostgresDBManager) Close() {
	m.dbpool.Close()
}

func (m *PostgresDBManager) CreatePipelineRunsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id UUID PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		as_of_date DATE NOT NULL,
		input_fingerprint VARCHAR(64) NOT NULL,
		status VARCHAR(30) NOT NULL CHECK (status IN ('RUNNING', 'DONE', 'DONE_WITH_EXCEPTIONS', 'FATAL')),
		records_in INTEGER NOT NULL DEFAULT 0,
		records_enriched INTEGER NOT NULL DEFAULT 0,
		journal_lines INTEGER NOT NULL DEFAULT 0,
		zip_summaries INTEGER NOT NULL DEFAULT 0,
		exception_count INTEGER NOT NULL DEFAULT 0
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating pipeline_runs table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateSourceFilesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS source_files (
		id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		carrier_id VARCHAR(64) NOT NULL,
		checksum VARCHAR(64) NOT NULL,
		row_count INTEGER NOT NULL,
		status VARCHAR(50) NOT NULL CHECK (status IN ('DONE', 'DONE_WITH_ERRORS', 'PROCESSING', 'FATAL')),
		processed_at TIMESTAMP NOT NULL
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating source_files table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateEnrichedProjectsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS enriched_projects (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		project_id VARCHAR(64) NOT NULL,
		carrier_id VARCHAR(64) NOT NULL,
		source_file VARCHAR(255) NOT NULL,
		source_row_number INTEGER NOT NULL,
		ingestion_timestamp_utc TIMESTAMP NOT NULL,
		as_of_date DATE NOT NULL,
		effective_date DATE,
		expiration_date DATE,
		gross_premium NUMERIC(18, 2),
		net_premium NUMERIC(18, 2),
		commission_amount NUMERIC(18, 2),
		ceded_commission_amount NUMERIC(18, 2),
		commission_rate_pct NUMERIC(9, 4),
		quota_share_pct NUMERIC(9, 4),
		penal_amount NUMERIC(18, 2),
		product_name VARCHAR(255),
		premium_state VARCHAR(2),
		principal_name VARCHAR(255),
		principal_address TEXT,
		principal_zip VARCHAR(10),
		broker_name VARCHAR(255),
		broker_state VARCHAR(2),
		obligee_name VARCHAR(255),
		obligee_state VARCHAR(2),
		zip_code VARCHAR(5) NOT NULL,
		state_fips VARCHAR(2) NOT NULL,
		county_fips VARCHAR(3) NOT NULL,
		tract_fips VARCHAR(20) NOT NULL,
		tract_res_ratio DOUBLE PRECISION NOT NULL,
		cejst_disadvantaged BOOLEAN NOT NULL,
		eligibility_status VARCHAR(20) NOT NULL,
		eligibility_reason TEXT
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating enriched_projects table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateJournalEntryLinesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS journal_entry_lines (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		journal_id VARCHAR(20) NOT NULL,
		line_number INTEGER NOT NULL,
		account_code VARCHAR(10) NOT NULL,
		account_name VARCHAR(100) NOT NULL,
		side VARCHAR(2) NOT NULL CHECK (side IN ('DR', 'CR')),
		amount NUMERIC(18, 2) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		description TEXT,
		project_id VARCHAR(64) NOT NULL,
		carrier_id VARCHAR(64) NOT NULL,
		product_name VARCHAR(255),
		effective_date DATE,
		expiration_date DATE,
		zip_code VARCHAR(5),
		state_fips VARCHAR(2),
		county_fips VARCHAR(3),
		tract_fips VARCHAR(20),
		eligibility_status VARCHAR(20),
		eligibility_reason TEXT,
		source_file VARCHAR(255),
		source_row_number INTEGER
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating journal_entry_lines table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateZipAccumulationTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS zip_accumulation (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		zip_code VARCHAR(5) NOT NULL,
		project_count INTEGER NOT NULL,
		distinct_carriers INTEGER NOT NULL,
		carriers_involved TEXT[] NOT NULL,
		total_gross_premium NUMERIC(18, 2) NOT NULL,
		total_penal_amount NUMERIC(18, 2) NOT NULL,
		flag VARCHAR(10) NOT NULL CHECK (flag IN ('GREEN', 'YELLOW', 'RED')),
		note TEXT
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating zip_accumulation table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreatePipelineExceptionsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS pipeline_exceptions (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		stage VARCHAR(50) NOT NULL,
		rule VARCHAR(50) NOT NULL,
		project_id VARCHAR(64),
		carrier_id VARCHAR(64),
		source_file VARCHAR(255),
		source_row_number INTEGER,
		field VARCHAR(64),
		raw_value TEXT,
		message TEXT
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating pipeline_exceptions table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateReportIndexes() error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_enriched_projects_run_zip ON enriched_projects (run_id, zip_code) INCLUDE (gross_premium, penal_amount);`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_projects_project ON enriched_projects (project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_entry_lines_run ON journal_entry_lines (run_id, journal_id);`,
		`CREATE INDEX IF NOT EXISTS idx_zip_accumulation_run ON zip_accumulation (run_id, zip_code);`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_exceptions_run ON pipeline_exceptions (run_id, stage, rule);`,
	}

	for _, query := range queries {
		_, err := m.dbpool.Exec(m.ctx, query)
		if err != nil {
			return fmt.Errorf("error creating index: %v", err)
		}
	}

	return nil
}

func (m *PostgresDBManager) InsertRunRecord(runID string, startedAt time.Time, asOfDate time.Time, fingerprint string) error {
	query := `
	INSERT INTO pipeline_runs (run_id, started_at, as_of_date, input_fingerprint, status)
	VALUES ($1, $2, $3, $4, $5);`

	_, err := m.dbpool.Exec(m.ctx, query, runID, startedAt, asOfDate, fingerprint, RUN_STATUS_RUNNING)
	if err != nil {
		return fmt.Errorf("error inserting run record: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) FinishRunRecord(report *models.RunReport, status string) error {
	query := `
	UPDATE pipeline_runs
	SET finished_at = $1,
		status = $2,
		records_in = $3,
		records_enriched = $4,
		journal_lines = $5,
		zip_summaries = $6,
		exception_count = $7
	WHERE run_id = $8;`

	_, err := m.dbpool.Exec(m.ctx, query,
		report.FinishedAt, status,
		report.RecordsIn, report.RecordsEnriched, report.JournalLines,
		report.ZipSummaries, report.ExceptionCount,
		report.RunID)
	if err != nil {
		return fmt.Errorf("error updating run record: %v", err)
	}

	return nil
}

// FindCompletedRunByFingerprint returns the run_id of a finished run whose
// inputs hash to the same fingerprint, or "" when there is none.
func (m *PostgresDBManager) FindCompletedRunByFingerprint(fingerprint string) (string, error) {
	query := `
	SELECT run_id
	FROM pipeline_runs
	WHERE input_fingerprint = $1 AND status IN ('DONE', 'DONE_WITH_EXCEPTIONS')
	ORDER BY started_at DESC
	LIMIT 1;`

	var runID string

	err := m.dbpool.QueryRow(m.ctx, query, fingerprint).Scan(&runID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("error finding run by fingerprint: %v", err)
	}

	return runID, nil
}

func (m *PostgresDBManager) InsertSourceFileRecord(runID string, file models.SourceFileInfo, processedAt time.Time) (int, error) {
	query := `
	INSERT INTO source_files (run_id, file_name, carrier_id, checksum, row_count, status, processed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;`

	var fileID int
	err := m.dbpool.QueryRow(m.ctx, query, runID, file.Name, file.CarrierID, file.Checksum, file.RowCount, file.Status, processedAt).Scan(&fileID)
	if err != nil {
		return 0, fmt.Errorf("error inserting source file record: %v", err)
	}

	return fileID, nil
}

func (m *PostgresDBManager) CopyEnrichedProjects(runID string, records []models.ProjectRecord) error {
	// The column order here must match the order in the `enriched_projects` table.
	columnNames := []string{
		"run_id", "project_id", "carrier_id", "source_file", "source_row_number",
		"ingestion_timestamp_utc", "as_of_date", "effective_date", "expiration_date",
		"gross_premium", "net_premium", "commission_amount", "ceded_commission_amount",
		"commission_rate_pct", "quota_share_pct", "penal_amount",
		"product_name", "premium_state", "principal_name", "principal_address", "principal_zip",
		"broker_name", "broker_state", "obligee_name", "obligee_state",
		"zip_code", "state_fips", "county_fips", "tract_fips", "tract_res_ratio",
		"cejst_disadvantaged", "eligibility_status", "eligibility_reason",
	}

	copySource := pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
		r := records[i]
		return []interface{}{
			runID, r.ProjectID, r.CarrierID, r.SourceFile, r.SourceRowNumber,
			r.IngestionTimestampUTC, r.AsOfDate, r.EffectiveDate, r.ExpirationDate,
			r.GrossPremium, r.NetPremium, r.CommissionAmount, r.CededCommissionAmount,
			r.CommissionRatePct, r.QuotaSharePct, r.PenalAmount,
			r.ProductName, r.PremiumState, r.PrincipalName, r.PrincipalAddress, r.PrincipalZip,
			r.BrokerName, r.BrokerState, r.ObligeeName, r.ObligeeState,
			r.ZipCode, r.StateFIPS, r.CountyFIPS, r.TractFIPS, r.TractResRatio,
			r.CejstDisadvantaged, string(r.EligibilityStatus), r.EligibilityReason,
		}, nil
	})

	_, err := m.dbpool.CopyFrom(m.ctx, pgx.Identifier{"enriched_projects"}, columnNames, copySource)
	if err != nil {
		return fmt.Errorf("unable to copy enriched projects: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CopyJournalEntryLines(runID string, lines []models.JournalEntryLine) error {
	columnNames := []string{
		"run_id", "journal_id", "line_number", "account_code", "account_name", "side",
		"amount", "currency", "description",
		"project_id", "carrier_id", "product_name", "effective_date", "expiration_date",
		"zip_code", "state_fips", "county_fips", "tract_fips",
		"eligibility_status", "eligibility_reason", "source_file", "source_row_number",
	}

	copySource := pgx.CopyFromSlice(len(lines), func(i int) ([]interface{}, error) {
		l := lines[i]
		return []interface{}{
			runID, l.JournalID, l.LineNumber, l.AccountCode, l.AccountName, l.Side,
			l.Amount, l.Currency, l.Description,
			l.ProjectID, l.CarrierID, l.ProductName, l.EffectiveDate, l.ExpirationDate,
			l.ZipCode, l.StateFIPS, l.CountyFIPS, l.TractFIPS,
			string(l.EligibilityStatus), l.EligibilityReason, l.SourceFile, l.SourceRowNumber,
		}, nil
	})

	_, err := m.dbpool.CopyFrom(m.ctx, pgx.Identifier{"journal_entry_lines"}, columnNames, copySource)
	if err != nil {
		return fmt.Errorf("unable to copy journal entry lines: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CopyZipAccumulation(runID string, summaries []models.ZipAccumulationSummary) error {
	columnNames := []string{
		"run_id", "zip_code", "project_count", "distinct_carriers", "carriers_involved",
		"total_gross_premium", "total_penal_amount", "flag", "note",
	}

	copySource := pgx.CopyFromSlice(len(summaries), func(i int) ([]interface{}, error) {
		s := summaries[i]
		return []interface{}{
			runID, s.ZipCode, s.ProjectCount, s.DistinctCarriers, s.Carriers,
			s.TotalGrossPremium, s.TotalPenalAmount, string(s.Flag), s.Note,
		}, nil
	})

	_, err := m.dbpool.CopyFrom(m.ctx, pgx.Identifier{"zip_accumulation"}, columnNames, copySource)
	if err != nil {
		return fmt.Errorf("unable to copy zip accumulation summaries: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CopyPipelineExceptions(runID string, exceptions []models.ExceptionRecord) error {
	columnNames := []string{
		"run_id", "stage", "rule", "project_id", "carrier_id",
		"source_file", "source_row_number", "field", "raw_value", "message",
	}

	copySource := pgx.CopyFromSlice(len(exceptions), func(i int) ([]interface{}, error) {
		e := exceptions[i]
		return []interface{}{
			runID, e.Stage, e.Rule, e.ProjectID, e.CarrierID,
			e.SourceFile, e.SourceRowNumber, e.Field, e.RawValue, e.Message,
		}, nil
	})

	_, err := m.dbpool.CopyFrom(m.ctx, pgx.Identifier{"pipeline_exceptions"}, columnNames, copySource)
	if err != nil {
		return fmt.Errorf("unable to copy pipeline exceptions: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) ListRuns(limit int) ([]RunSummary, error) {
	query := `
	SELECT run_id, started_at, finished_at, as_of_date, input_fingerprint, status,
		records_in, records_enriched, journal_lines, zip_summaries, exception_count
	FROM pipeline_runs
	ORDER BY started_at DESC
	LIMIT $1;`

	rows, err := m.dbpool.Query(m.ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(
			&run.RunID, &run.StartedAt, &run.FinishedAt, &run.AsOfDate,
			&run.InputFingerprint, &run.Status,
			&run.RecordsIn, &run.RecordsEnriched, &run.JournalLines,
			&run.ZipSummaries, &run.ExceptionCount,
		); err != nil {
			return nil, fmt.Errorf("error scanning run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return runs, nil
}

func (m *PostgresDBManager) GetRun(runID string) (*RunSummary, error) {
	query := `
	SELECT run_id, started_at, finished_at, as_of_date, input_fingerprint, status,
		records_in, records_enriched, journal_lines, zip_summaries, exception_count
	FROM pipeline_runs
	WHERE run_id = $1;`

	var run RunSummary
	err := m.dbpool.QueryRow(m.ctx, query, runID).Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt, &run.AsOfDate,
		&run.InputFingerprint, &run.Status,
		&run.RecordsIn, &run.RecordsEnriched, &run.JournalLines,
		&run.ZipSummaries, &run.ExceptionCount,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying run: %w", err)
	}

	return &run, nil
}

// ListAccumulation returns a run's ZIP summaries, optionally restricted to
// one flag. An empty flag matches everything.
func (m *PostgresDBManager) ListAccumulation(runID string, flag string) ([]models.ZipAccumulationSummary, error) {
	query := `
	SELECT zip_code, project_count, distinct_carriers, carriers_involved,
		total_gross_premium, total_penal_amount, flag, note
	FROM zip_accumulation
	WHERE run_id = $1 AND ($2 = '' OR flag = $2)
	ORDER BY zip_code;`

	rows, err := m.dbpool.Query(m.ctx, query, runID, flag)
	if err != nil {
		return nil, fmt.Errorf("error querying zip accumulation: %w", err)
	}
	defer rows.Close()

	var summaries []models.ZipAccumulationSummary
	for rows.Next() {
		var s models.ZipAccumulationSummary
		var rowFlag string
		if err := rows.Scan(
			&s.ZipCode, &s.ProjectCount, &s.DistinctCarriers, &s.Carriers,
			&s.TotalGrossPremium, &s.TotalPenalAmount, &rowFlag, &s.Note,
		); err != nil {
			return nil, fmt.Errorf("error scanning zip accumulation row: %w", err)
		}
		s.Flag = models.AccumulationFlag(rowFlag)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return summaries, nil
}

// ListExceptions returns a run's exceptions, optionally restricted to one
// stage. An empty stage matches everything.
func (m *PostgresDBManager) ListExceptions(runID string, stage string) ([]models.ExceptionRecord, error) {
	query := `
	SELECT stage, rule, project_id, carrier_id, source_file, source_row_number, field, raw_value, message
	FROM pipeline_exceptions
	WHERE run_id = $1 AND ($2 = '' OR stage = $2)
	ORDER BY stage, rule, project_id;`

	rows, err := m.dbpool.Query(m.ctx, query, runID, stage)
	if err != nil {
		return nil, fmt.Errorf("error querying pipeline exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []models.ExceptionRecord
	for rows.Next() {
		var e models.ExceptionRecord
		if err := rows.Scan(
			&e.Stage, &e.Rule, &e.ProjectID, &e.CarrierID,
			&e.SourceFile, &e.SourceRowNumber, &e.Field, &e.RawValue, &e.Message,
		); err != nil {
			return nil, fmt.Errorf("error scanning exception row: %w", err)
		}
		exceptions = append(exceptions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return exceptions, nil
}

// GetProject returns one run's enriched row for a project id.
func (m *PostgresDBManager) GetProject(runID string, projectID string) (*models.ProjectRecord, error) {
	query := `
	SELECT project_id, carrier_id, source_file, source_row_number,
		ingestion_timestamp_utc, as_of_date, effective_date, expiration_date,
		gross_premium, net_premium, commission_amount, ceded_commission_amount,
		commission_rate_pct, quota_share_pct, penal_amount,
		product_name, premium_state, principal_name, principal_address, principal_zip,
		broker_name, broker_state, obligee_name, obligee_state,
		zip_code, state_fips, county_fips, tract_fips, tract_res_ratio,
		cejst_disadvantaged, eligibility_status, eligibility_reason
	FROM enriched_projects
	WHERE run_id = $1 AND project_id = $2;`

	var record models.ProjectRecord
	var status string
	err := m.dbpool.QueryRow(m.ctx, query, runID, projectID).Scan(
		&record.ProjectID, &record.CarrierID, &record.SourceFile, &record.SourceRowNumber,
		&record.IngestionTimestampUTC, &record.AsOfDate, &record.EffectiveDate, &record.ExpirationDate,
		&record.GrossPremium, &record.NetPremium, &record.CommissionAmount, &record.CededCommissionAmount,
		&record.CommissionRatePct, &record.QuotaSharePct, &record.PenalAmount,
		&record.ProductName, &record.PremiumState, &record.PrincipalName, &record.PrincipalAddress, &record.PrincipalZip,
		&record.BrokerName, &record.BrokerState, &record.ObligeeName, &record.ObligeeState,
		&record.ZipCode, &record.StateFIPS, &record.CountyFIPS, &record.TractFIPS, &record.TractResRatio,
		&record.CejstDisadvantaged, &status, &record.EligibilityReason,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying project: %w", err)
	}
	record.EligibilityStatus = models.EligibilityStatus(status)

	return &record, nil
}
