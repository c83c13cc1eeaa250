package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/accumulation"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/config"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/database"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/eligibility"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/intake"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/journal"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/normalize"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/packaging"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/schema"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/tract"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/zipcode"
	"github.com/stelladong-RA/greenie-re-data-pipeline/pkg/checksum"
)

// ErrInputsAlreadyProcessed reports that a finished run already covers the
// exact input set.
var ErrInputsAlreadyProcessed = errors.New("inputs already processed")

type Service struct {
	cfg       *config.Config
	policy    *config.Policy
	registry  schema.Registry
	dbManager database.DBManager
	logger    *slog.Logger
}

// NewService wires the enrichment pipeline. dbManager may be nil, which
// disables both the warehouse sink and the fingerprint idempotency check.
func NewService(cfg *config.Config, policy *config.Policy, registry schema.Registry, dbManager database.DBManager, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		policy:    policy,
		registry:  registry,
		dbManager: dbManager,
		logger:    logger,
	}
}

// Execute runs one full enrichment pass over every bordereaux file in the
// raw data directory. The stamp fixes every run-scoped timestamp, so two
// executions over identical inputs with the same stamp produce byte-identical
// deliverables.
func (s *Service) Execute(stamp normalize.Stamp, force bool) (*models.RunReport, error) {
	runID := uuid.New().String()
	report := &models.RunReport{
		RunID:     runID,
		StartedAt: stamp.IngestionTime,
		AsOfDate:  stamp.AsOfDate,
	}

	// Step 1: Discover input files and fingerprint the input set.
	files, err := intake.ScanForFiles(s.cfg.RawDataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no bordereaux files found in %s", s.cfg.RawDataDir)
	}

	sums := make([]string, len(files))
	for i := range files {
		sum, err := checksum.GetFileChecksum(files[i].Path)
		if err != nil {
			return nil, err
		}
		files[i].Checksum = sum
		files[i].Status = database.FILE_STATUS_PROCESSING
		sums[i] = sum
	}
	report.InputFingerprint = checksum.Combine(sums)

	s.logger.Info("starting pipeline run",
		"run_id", runID,
		"files", len(files),
		"input_fingerprint", report.InputFingerprint,
		"as_of_date", stamp.AsOfDate.Format("2006-01-02"))

	// Step 2: Check the run registry before doing any work.
	if s.dbManager != nil {
		prior, err := s.dbManager.FindCompletedRunByFingerprint(report.InputFingerprint)
		if err != nil {
			return nil, err
		}
		if prior != "" && !force {
			s.logger.Info("input set already processed, skipping", "prior_run_id", prior)
			return nil, fmt.Errorf("%w by run %s", ErrInputsAlreadyProcessed, prior)
		}
		if err := s.dbManager.InsertRunRecord(runID, stamp.IngestionTime, stamp.AsOfDate, report.InputFingerprint); err != nil {
			return nil, err
		}
	}

	if err := s.process(report, files, stamp); err != nil {
		report.FinishedAt = time.Now().UTC()
		if s.dbManager != nil {
			if finishErr := s.dbManager.FinishRunRecord(report, database.RUN_STATUS_FATAL); finishErr != nil {
				s.logger.Error("failed to mark run fatal", "run_id", runID, "error", finishErr)
			}
		}
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	status := database.RUN_STATUS_DONE
	if report.ExceptionCount > 0 {
		status = database.RUN_STATUS_DONE_WITH_EXCEPTIONS
	}
	if s.dbManager != nil {
		if err := s.dbManager.FinishRunRecord(report, status); err != nil {
			return nil, err
		}
	}

	s.logger.Info("pipeline run finished",
		"run_id", runID,
		"status", status,
		"records_in", report.RecordsIn,
		"records_enriched", report.RecordsEnriched,
		"journal_lines", report.JournalLines,
		"zip_summaries", report.ZipSummaries,
		"exceptions", report.ExceptionCount)

	return report, nil
}

func (s *Service) process(report *models.RunReport, files []models.SourceFileInfo, stamp normalize.Stamp) error {
	// Step 3: Read every file into raw records, in scan order.
	var raws []models.RawRecord
	for i := range files {
		rows, err := intake.ReadRecords(files[i])
		if err != nil {
			files[i].Status = database.FILE_STATUS_FATAL
			report.Files = files
			return err
		}
		files[i].RowCount = len(rows)
		raws = append(raws, rows...)
	}

	// Project ids are sequenced per carrier across the whole run, so a
	// carrier shipping more than one file keeps a single sequence.
	carrierSeq := make(map[string]int)
	for i := range raws {
		raws[i].Index = carrierSeq[raws[i].CarrierID]
		carrierSeq[raws[i].CarrierID]++
	}

	report.RecordsIn = len(raws)
	s.logger.Info("read raw records", "files", len(files), "records", len(raws))

	// Step 4: Normalize fields against the registry.
	normalizer := normalize.New(s.registry, s.policy.DateFormats)
	records, exceptions := normalizer.Normalize(raws, stamp)
	report.RecordsNormalized = len(records)
	s.logger.Info("normalized records", "kept", len(records), "exceptions", len(exceptions))

	// Step 5: Load the crosswalk and resolve ZIP codes against it.
	crosswalk, err := tract.LoadCrosswalk(s.cfg.CrosswalkPath)
	if err != nil {
		return err
	}
	s.logger.Info("loaded crosswalk", "zips", crosswalk.ZipCount(), "entries", crosswalk.EntryCount())

	resolver := zipcode.NewResolver(crosswalk)
	records, zipExceptions := resolver.Resolve(records)
	exceptions = append(exceptions, zipExceptions...)
	report.RecordsZipResolved = len(records)
	s.logger.Info("resolved zip codes", "kept", len(records), "exceptions", len(zipExceptions))

	// Step 6: Assign census tracts.
	mapper := tract.NewMapper(crosswalk, s.cfg.NumTractWorkers, s.logger)
	records, tractExceptions := mapper.MapTracts(records)
	exceptions = append(exceptions, tractExceptions...)
	report.RecordsTractMapped = len(records)
	s.logger.Info("mapped census tracts",
		"kept", len(records), "exceptions", len(tractExceptions), "workers", s.cfg.NumTractWorkers)

	// Step 7: Classify LIDAC eligibility against the CEJST dataset.
	dataset, err := eligibility.LoadDataset(s.cfg.CejstPath, s.policy.Cejst)
	if err != nil {
		return err
	}
	s.logger.Info("loaded CEJST dataset", "tracts", dataset.TractCount())

	classifier := eligibility.NewClassifier(dataset)
	records = classifier.Classify(records)
	report.RecordsEnriched = len(records)

	// Step 8: Derive journal entry lines and the ZIP accumulation view.
	journalMapper, err := journal.NewMapper(s.policy.Accounts, s.policy.Currency, s.policy.OmitZeroLines)
	if err != nil {
		return err
	}
	lines, journalExceptions := journalMapper.MapEntries(records)
	exceptions = append(exceptions, journalExceptions...)
	report.JournalLines = len(lines)
	s.logger.Info("derived journal entries", "lines", len(lines), "exceptions", len(journalExceptions))

	aggregator := accumulation.NewAggregator(s.policy.Thresholds)
	summaries := aggregator.Summarize(records)
	report.ZipSummaries = len(summaries)
	report.ExceptionCount = len(exceptions)

	// Step 9: Mark per-file statuses now that every stage has reported.
	flagFileStatuses(files, exceptions)
	report.Files = files

	// Step 10: Write the CSV deliverables.
	writer := packaging.NewWriter(s.cfg.OutputDir)
	paths, err := writer.WriteAll(records, lines, summaries, exceptions)
	if err != nil {
		return err
	}
	s.logger.Info("wrote deliverables", "output_dir", s.cfg.OutputDir, "files", len(paths))

	// Step 11: Persist to the warehouse when configured.
	if s.dbManager != nil {
		if err := s.persist(report, records, lines, summaries, exceptions, stamp); err != nil {
			return err
		}
		s.logger.Info("persisted run to warehouse", "run_id", report.RunID)
	}

	return nil
}

func (s *Service) persist(
	report *models.RunReport,
	records []models.ProjectRecord,
	lines []models.JournalEntryLine,
	summaries []models.ZipAccumulationSummary,
	exceptions []models.ExceptionRecord,
	stamp normalize.Stamp,
) error {
	for _, file := range report.Files {
		if _, err := s.dbManager.InsertSourceFileRecord(report.RunID, file, stamp.IngestionTime); err != nil {
			return err
		}
	}
	if err := s.dbManager.CopyEnrichedProjects(report.RunID, records); err != nil {
		return err
	}
	if err := s.dbManager.CopyJournalEntryLines(report.RunID, lines); err != nil {
		return err
	}
	if err := s.dbManager.CopyZipAccumulation(report.RunID, summaries); err != nil {
		return err
	}
	if err := s.dbManager.CopyPipelineExceptions(report.RunID, exceptions); err != nil {
		return err
	}
	return nil
}

func flagFileStatuses(files []models.SourceFileInfo, exceptions []models.ExceptionRecord) {
	flagged := make(map[string]bool, len(exceptions))
	for _, e := range exceptions {
		flagged[e.SourceFile] = true
	}
	for i := range files {
		if flagged[files[i].Name] {
			files[i].Status = database.FILE_STATUS_DONE_WITH_ERRORS
		} else {
			files[i].Status = database.FILE_STATUS_DONE
		}
	}
}
