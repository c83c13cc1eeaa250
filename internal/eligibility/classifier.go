package eligibility

import (
	"strings"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

const ReasonTractNotInDataset = "Tract not present in CEJST dataset"

// Classifier assigns the LIDAC eligibility verdict. The verdict is a pure
// function of (tract FIPS, loaded dataset): every record resolving to the
// same tract gets the same status and reason, regulator-auditably so.
type Classifier struct {
	dataset *Dataset
}

func NewClassifier(dataset *Dataset) *Classifier {
	return &Classifier{dataset: dataset}
}

// Classify applies a verdict to every record. A tract missing from the
// dataset is a valid Not Eligible outcome, not an exception, so the whole
// input survives this stage.
func (c *Classifier) Classify(records []models.ProjectRecord) []models.ProjectRecord {
	classified := make([]models.ProjectRecord, len(records))
	for i, record := range records {
		record.ApplyVerdict(c.Verdict(record.TractFIPS))
		classified[i] = record
	}
	return classified
}

// Verdict classifies a single tract FIPS.
func (c *Classifier) Verdict(tractFIPS string) models.EligibilityVerdict {
	entry, found := c.dataset.Lookup(tractFIPS)
	if !found {
		return models.EligibilityVerdict{
			Status: models.EligibilityNotEligible,
			Reason: ReasonTractNotInDataset,
		}
	}

	if entry.Disadvantaged {
		reason := "CEJST disadvantaged (overall designation)"
		if len(entry.MatchedCriteria) > 0 {
			reason = "CEJST disadvantaged: " + strings.Join(entry.MatchedCriteria, ", ")
		}
		return models.EligibilityVerdict{
			Status:          models.EligibilityEligible,
			Reason:          reason,
			Disadvantaged:   true,
			MatchedCriteria: entry.MatchedCriteria,
		}
	}

	if len(entry.MatchedCriteria) > 0 {
		return models.EligibilityVerdict{
			Status:          models.EligibilityPartial,
			Reason:          "Partial CEJST indicators: " + strings.Join(entry.MatchedCriteria, ", "),
			MatchedCriteria: entry.MatchedCriteria,
		}
	}

	return models.EligibilityVerdict{
		Status: models.EligibilityNotEligible,
		Reason: "No CEJST criteria met",
	}
}
