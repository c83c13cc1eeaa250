package database

import (
	"time"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

const (
	FILE_STATUS_PROCESSING       = "PROCESSING"
	FILE_STATUS_DONE             = "DONE"
	FILE_STATUS_DONE_WITH_ERRORS = "DONE_WITH_ERRORS"
	FILE_STATUS_FATAL            = "FATAL"

	RUN_STATUS_RUNNING              = "RUNNING"
	RUN_STATUS_DONE                 = "DONE"
	RUN_STATUS_DONE_WITH_EXCEPTIONS = "DONE_WITH_EXCEPTIONS"
	RUN_STATUS_FATAL                = "FATAL"
)

// RunSummary is the run registry row served by the reports API.
type RunSummary struct {
	RunID            string     `json:"run_id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	AsOfDate         time.Time  `json:"as_of_date"`
	InputFingerprint string     `json:"input_fingerprint"`
	Status           string     `json:"status"`
	RecordsIn        int        `json:"records_in"`
	RecordsEnriched  int        `json:"records_enriched"`
	JournalLines     int        `json:"journal_lines"`
	ZipSummaries     int        `json:"zip_summaries"`
	ExceptionCount   int        `json:"exception_count"`
}

type DBManager interface {
	CreatePipelineRunsTable() error
	CreateSourceFilesTable() error
	CreateEnrichedProjectsTable() error
	CreateJournalEntryLinesTable() error
	CreateZipAccumulationTable() error
	CreatePipelineExceptionsTable() error
	CreateReportIndexes() error
	InsertRunRecord(runID string, startedAt time.Time, asOfDate time.Time, fingerprint string) error
	FinishRunRecord(report *models.RunReport, status string) error
	FindCompletedRunByFingerprint(fingerprint string) (string, error)
	InsertSourceFileRecord(runID string, file models.SourceFileInfo, processedAt time.Time) (int, error)
	CopyEnrichedProjects(runID string, records []models.ProjectRecord) error
	CopyJournalEntryLines(runID string, lines []models.JournalEntryLine) error
	CopyZipAccumulation(runID string, summaries []models.ZipAccumulationSummary) error
	CopyPipelineExceptions(runID string, exceptions []models.ExceptionRecord) error
	ListRuns(limit int) ([]RunSummary, error)
	GetRun(runID string) (*RunSummary, error)
	ListAccumulation(runID string, flag string) ([]models.ZipAccumulationSummary, error)
	ListExceptions(runID string, stage string) ([]models.ExceptionRecord, error)
	GetProject(runID string, projectID string) (*models.ProjectRecord, error)
	Close()
}
