package tract

import (
	"log/slog"
	"sync"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// Mapper assigns each record its best census tract. Records fan out across
// a small worker pool; results land in index-addressed slots and are merged
// back in input order, so the output is identical for any worker count.
type Mapper struct {
	crosswalk  *Crosswalk
	numWorkers int
	logger     *slog.Logger
}

func NewMapper(crosswalk *Crosswalk, numWorkers int, logger *slog.Logger) *Mapper {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Mapper{crosswalk: crosswalk, numWorkers: numWorkers, logger: logger}
}

type tractResult struct {
	assignment models.TractAssignment
	exception  *models.ExceptionRecord
}

// MapTracts resolves the whole record set. A record whose validated ZIP has
// no crosswalk rows is a data-integrity inconsistency: it is surfaced as a
// NO_CROSSWALK_ENTRY exception and logged loudly, never skipped.
func (m *Mapper) MapTracts(records []models.ProjectRecord) ([]models.ProjectRecord, []models.ExceptionRecord) {
	if len(records) == 0 {
		return nil, nil
	}

	workers := m.numWorkers
	if workers > len(records) {
		workers = len(records)
	}

	results := make([]tractResult, len(records))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = m.resolve(&records[i])
			}
		}()
	}

	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	kept := make([]models.ProjectRecord, 0, len(records))
	var exceptions []models.ExceptionRecord
	for i, result := range results {
		if result.exception != nil {
			m.logger.Error("crosswalk integrity failure: validated ZIP has no crosswalk rows",
				"zip", records[i].ZipCode,
				"project_id", records[i].ProjectID,
				"carrier_id", records[i].CarrierID,
			)
			exceptions = append(exceptions, *result.exception)
			continue
		}
		record := records[i]
		record.ApplyTract(result.assignment)
		kept = append(kept, record)
	}

	return kept, exceptions
}

func (m *Mapper) resolve(record *models.ProjectRecord) tractResult {
	assignment, found := m.crosswalk.BestAssignment(record.ZipCode)
	if !found {
		exc := models.NewException(models.StageTractMapper, models.RuleNoCrosswalkEntry, record,
			"zip_code", record.ZipCode, "ZIP passed validation but has no crosswalk rows")
		return tractResult{exception: &exc}
	}
	return tractResult{assignment: assignment}
}
