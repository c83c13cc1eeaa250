package pipeline

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/database"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// MockDBManager is a testify mock implementing database.DBManager.
type MockDBManager struct {
	mock.Mock
}

func (m *MockDBManager) CreatePipelineRunsTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreateSourceFilesTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreateEnrichedProjectsTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreateJournalEntryLinesTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreateZipAccumulationTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreatePipelineExceptionsTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreateReportIndexes() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) InsertRunRecord(runID string, startedAt time.Time, asOfDate time.Time, fingerprint string) error {
	args := m.Called(runID, startedAt, asOfDate, fingerprint)
	return args.Error(0)
}

func (m *MockDBManager) FinishRunRecord(report *models.RunReport, status string) error {
	args := m.Called(report, status)
	return args.Error(0)
}

func (m *MockDBManager) FindCompletedRunByFingerprint(fingerprint string) (string, error) {
	args := m.Called(fingerprint)
	return args.String(0), args.Error(1)
}

func (m *MockDBManager) InsertSourceFileRecord(runID string, file models.SourceFileInfo, processedAt time.Time) (int, error) {
	args := m.Called(runID, file, processedAt)
	return args.Int(0), args.Error(1)
}

func (m *MockDBManager) CopyEnrichedProjects(runID string, records []models.ProjectRecord) error {
	args := m.Called(runID, records)
	return args.Error(0)
}

func (m *MockDBManager) CopyJournalEntryLines(runID string, lines []models.JournalEntryLine) error {
	args := m.Called(runID, lines)
	return args.Error(0)
}

func (m *MockDBManager) CopyZipAccumulation(runID string, summaries []models.ZipAccumulationSummary) error {
	args := m.Called(runID, summaries)
	return args.Error(0)
}

func (m *MockDBManager) CopyPipelineExceptions(runID string, exceptions []models.ExceptionRecord) error {
	args := m.Called(runID, exceptions)
	return args.Error(0)
}

func (m *MockDBManager) ListRuns(limit int) ([]database.RunSummary, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.RunSummary), args.Error(1)
}

func (m *MockDBManager) GetRun(runID string) (*database.RunSummary, error) {
	args := m.Called(runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.RunSummary), args.Error(1)
}

func (m *MockDBManager) ListAccumulation(runID string, flag string) ([]models.ZipAccumulationSummary, error) {
	args := m.Called(runID, flag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ZipAccumulationSummary), args.Error(1)
}

func (m *MockDBManager) ListExceptions(runID string, stage string) ([]models.ExceptionRecord, error) {
	args := m.Called(runID, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ExceptionRecord), args.Error(1)
}

func (m *MockDBManager) GetProject(runID string, projectID string) (*models.ProjectRecord, error) {
	args := m.Called(runID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectRecord), args.Error(1)
}

func (m *MockDBManager) Close() {
	m.Called()
}
