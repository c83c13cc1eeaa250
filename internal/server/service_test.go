package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/database"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDBManager struct {
	mock.Mock
}

func (m *MockDBManager) CreatePipelineRunsTable() error {
	return nil
}

func (m *MockDBManager) CreateSourceFilesTable() error {
	return nil
}

func (m *MockDBManager) CreateEnrichedProjectsTable() error {
	return nil
}

func (m *MockDBManager) CreateJournalEntryLinesTable() error {
	return nil
}

func (m *MockDBManager) CreateZipAccumulationTable() error {
	return nil
}

func (m *MockDBManager) CreatePipelineExceptionsTable() error {
	return nil
}

func (m *MockDBManager) CreateReportIndexes() error {
	return nil
}

func (m *MockDBManager) InsertRunRecord(runID string, startedAt time.Time, asOfDate time.Time, fingerprint string) error {
	return nil
}

func (m *MockDBManager) FinishRunRecord(report *models.RunReport, status string) error {
	return nil
}

func (m *MockDBManager) FindCompletedRunByFingerprint(fingerprint string) (string, error) {
	return "", nil
}

func (m *MockDBManager) InsertSourceFileRecord(runID string, file models.SourceFileInfo, processedAt time.Time) (int, error) {
	return 0, nil
}

func (m *MockDBManager) CopyEnrichedProjects(runID string, records []models.ProjectRecord) error {
	return nil
}

func (m *MockDBManager) CopyJournalEntryLines(runID string, lines []models.JournalEntryLine) error {
	return nil
}

func (m *MockDBManager) CopyZipAccumulation(runID string, summaries []models.ZipAccumulationSummary) error {
	return nil
}

func (m *MockDBManager) CopyPipelineExceptions(runID string, exceptions []models.ExceptionRecord) error {
	return nil
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
}

// serveRequest routes the request through the full router so chi's URL
// parameters are populated the same way they are in production.
func serveRequest(dbManager *MockDBManager, method, target string) *httptest.ResponseRecorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := SetupRoutes(NewReportsService(dbManager, logger))
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sampleRun() database.RunSummary {
	finished := time.Date(2025, 10, 1, 12, 4, 30, 0, time.UTC)
	return database.RunSummary{
		RunID:            "0d9be6a2-3c41-4bfb-9a6e-8f1f1f0cf9f4",
		StartedAt:        time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:       &finished,
		AsOfDate:         time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
		InputFingerprint: "9f86d081884c7d65",
		Status:           database.RUN_STATUS_DONE,
		RecordsIn:        120,
		RecordsEnriched:  117,
		JournalLines:     585,
		ZipSummaries:     42,
		ExceptionCount:   3,
	}
}

func TestReportsService_ListRuns(t *testing.T) {
	t.Run("should list runs with the default limit", func(t *testing.T) {
		dbManager := new(MockDBManager)
		expected := []database.RunSummary{sampleRun()}
		dbManager.On("ListRuns", defaultRunLimit).Return(expected, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var actual []database.RunSummary
		err := json.NewDecoder(rr.Body).Decode(&actual)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)

		dbManager.AssertExpectations(t)
	})

	t.Run("should honor the limit query parameter", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("ListRuns", 5).Return([]database.RunSummary{sampleRun()}, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs?limit=5")

		assert.Equal(t, http.StatusOK, rr.Code)

		dbManager.AssertExpectations(t)
	})

	t.Run("should reject a non-numeric limit", func(t *testing.T) {
		dbManager := new(MockDBManager)

		rr := serveRequest(dbManager, "GET", "/api/runs?limit=many")

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		dbManager.AssertNotCalled(t, "ListRuns", mock.Anything)
	})

	t.Run("should reject a limit below one", func(t *testing.T) {
		dbManager := new(MockDBManager)

		rr := serveRequest(dbManager, "GET", "/api/runs?limit=0")

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		dbManager.AssertNotCalled(t, "ListRuns", mock.Anything)
	})

	t.Run("should return an empty list when no runs exist", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("ListRuns", defaultRunLimit).Return(nil, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "[]\n", rr.Body.String())

		dbManager.AssertExpectations(t)
	})

	t.Run("should return error when db manager fails", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("ListRuns", defaultRunLimit).Return(nil, errors.New("db error")).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		dbManager.AssertExpectations(t)
	})
}

func TestReportsService_GetRun(t *testing.T) {
	t.Run("should return run details successfully", func(t *testing.T) {
		dbManager := new(MockDBManager)
		expected := sampleRun()
		dbManager.On("GetRun", expected.RunID).Return(&expected, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+expected.RunID)

		assert.Equal(t, http.StatusOK, rr.Code)

		var actual database.RunSummary
		err := json.NewDecoder(rr.Body).Decode(&actual)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)

		dbManager.AssertExpectations(t)
	})

	t.Run("should return 404 when run does not exist", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("GetRun", "missing-run").Return(nil, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/missing-run")

		assert.Equal(t, http.StatusNotFound, rr.Code)

		dbManager.AssertExpectations(t)
	})

	t.Run("should return error when db manager fails", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("GetRun", mock.Anything).Return(nil, errors.New("db error")).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/any-run")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		dbManager.AssertExpectations(t)
	})
}

func TestReportsService_GetRunAccumulation(t *testing.T) {
	t.Run("should return accumulation summaries for a run", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		summaries := []models.ZipAccumulationSummary{
			{
				ZipCode:           "78701",
				ProjectCount:      2,
				DistinctCarriers:  2,
				Carriers:          []string{"Alpha", "Beta"},
				TotalGrossPremium: decimal.NewFromInt(175000),
				TotalPenalAmount:  decimal.NewFromInt(900000),
				Flag:              models.FlagYellow,
				Note:              "Moderate premium concentration or project density",
			},
		}
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("ListAccumulation", run.RunID, "").Return(summaries, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/accumulation")

		assert.Equal(t, http.StatusOK, rr.Code)

		var actual []models.ZipAccumulationSummary
		err := json.NewDecoder(rr.Body).Decode(&actual)
		assert.NoError(t, err)
		assert.Len(t, actual, 1)
		assert.Equal(t, "78701", actual[0].ZipCode)
		assert.Equal(t, []string{"Alpha", "Beta"}, actual[0].Carriers)
		assert.Equal(t, models.FlagYellow, actual[0].Flag)
		assert.Equal(t, "175000", actual[0].TotalGrossPremium.String())
		assert.Equal(t, "900000", actual[0].TotalPenalAmount.String())

		dbManager.AssertExpectations(t)
	})

	t.Run("should filter by flag and normalize its case", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("ListAccumulation", run.RunID, "RED").Return([]models.ZipAccumulationSummary{}, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/accumulation?flag=red")

		assert.Equal(t, http.StatusOK, rr.Code)

		dbManager.AssertExpectations(t)
	})

	t.Run("should reject an unknown flag before touching the database", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/accumulation?flag=purple")

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		dbManager.AssertNotCalled(t, "GetRun", mock.Anything)
		dbManager.AssertNotCalled(t, "ListAccumulation", mock.Anything, mock.Anything)
	})

	t.Run("should return 404 without querying summaries when run does not exist", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("GetRun", "missing-run").Return(nil, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/missing-run/accumulation")

		assert.Equal(t, http.StatusNotFound, rr.Code)

		dbManager.AssertNotCalled(t, "ListAccumulation", mock.Anything, mock.Anything)
		dbManager.AssertExpectations(t)
	})
}

func TestReportsService_GetRunExceptions(t *testing.T) {
	t.Run("should return exceptions for a run", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		expected := []models.ExceptionRecord{
			{
				Stage:           "zip_resolver",
				Rule:            "ZIP_NOT_FOUND",
				ProjectID:       "Beta_000004",
				CarrierID:       "Beta",
				SourceFile:      "Beta_2025Q3.csv",
				SourceRowNumber: 5,
				Field:           "principal_address",
				RawValue:        "PO Box 12, Somewhere",
				Message:         "no 5-digit zip found in address",
			},
		}
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("ListExceptions", run.RunID, "").Return(expected, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/exceptions")

		assert.Equal(t, http.StatusOK, rr.Code)

		var actual []models.ExceptionRecord
		err := json.NewDecoder(rr.Body).Decode(&actual)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)

		dbManager.AssertExpectations(t)
	})

	t.Run("should pass the stage filter through to the query", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("ListExceptions", run.RunID, "normalizer").Return([]models.ExceptionRecord{}, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/exceptions?stage=normalizer")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "[]\n", rr.Body.String())

		dbManager.AssertExpectations(t)
	})

	t.Run("should return error when db manager fails", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("ListExceptions", run.RunID, "").Return(nil, errors.New("db error")).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/exceptions")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		dbManager.AssertExpectations(t)
	})
}

func TestReportsService_GetProject(t *testing.T) {
	t.Run("should return an enriched project from a run", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		record := &models.ProjectRecord{
			ProjectID:             "Alpha_000001",
			CarrierID:             "Alpha",
			SourceFile:            "Alpha_2025Q3.csv",
			SourceRowNumber:       2,
			IngestionTimestampUTC: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
			AsOfDate:              time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
			GrossPremium:          decimal.NewNullDecimal(decimal.RequireFromString("125000.5")),
			ZipCode:               "00211",
			StateFIPS:             "33",
			CountyFIPS:            "019",
			TractFIPS:             "33019975700",
			TractResRatio:         0.6,
			CejstDisadvantaged:    true,
			EligibilityStatus:     models.EligibilityEligible,
			EligibilityReason:     "CEJST disadvantaged: energy burden",
		}
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("GetProject", run.RunID, record.ProjectID).Return(record, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/projects/"+record.ProjectID)

		assert.Equal(t, http.StatusOK, rr.Code)

		var actual models.ProjectRecord
		err := json.NewDecoder(rr.Body).Decode(&actual)
		assert.NoError(t, err)
		assert.Equal(t, record.ProjectID, actual.ProjectID)
		assert.Equal(t, record.TractFIPS, actual.TractFIPS)
		assert.Equal(t, models.EligibilityEligible, actual.EligibilityStatus)
		assert.True(t, actual.GrossPremium.Valid)
		assert.Equal(t, "125000.5", actual.GrossPremium.Decimal.String())

		dbManager.AssertExpectations(t)
	})

	t.Run("should return 404 when the project is not part of the run", func(t *testing.T) {
		dbManager := new(MockDBManager)
		run := sampleRun()
		dbManager.On("GetRun", run.RunID).Return(&run, nil).Once()
		dbManager.On("GetProject", run.RunID, "Alpha_999999").Return(nil, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/"+run.RunID+"/projects/Alpha_999999")

		assert.Equal(t, http.StatusNotFound, rr.Code)

		dbManager.AssertExpectations(t)
	})

	t.Run("should return 404 without querying the project when run does not exist", func(t *testing.T) {
		dbManager := new(MockDBManager)
		dbManager.On("GetRun", "missing-run").Return(nil, nil).Once()

		rr := serveRequest(dbManager, "GET", "/api/runs/missing-run/projects/Alpha_000001")

		assert.Equal(t, http.StatusNotFound, rr.Code)

		dbManager.AssertNotCalled(t, "GetProject", mock.Anything, mock.Anything)
		dbManager.AssertExpectations(t)
	})
}

func TestReportsService_Health(t *testing.T) {
	t.Run("should report ok without touching the database", func(t *testing.T) {
		dbManager := new(MockDBManager)

		rr := serveRequest(dbManager, "GET", "/health")

		assert.Equal(t, http.StatusOK, rr.Code)

		var body map[string]string
		err := json.NewDecoder(rr.Body).Decode(&body)
		assert.NoError(t, err)
		assert.Equal(t, map[string]string{"status": "ok"}, body)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("should expose request counters after serving traffic", func(t *testing.T) {
		dbManager := new(MockDBManager)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		router := SetupRoutes(NewReportsService(dbManager, logger))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "bordereaux_api_requests_total")
	})
}
