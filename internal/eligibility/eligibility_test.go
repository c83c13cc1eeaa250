package eligibility

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/config"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

const testCejstCSV = `Census tract 2010 ID,Identified as disadvantaged,Greater than or equal to the 90th percentile for energy burden and is low income?,Greater than or equal to the 90th percentile for housing burden and is low income?
1400000US25017000100,Yes,1,0
25025010104,No,1,1
48453001100,No,0,0
1400000US25001111111,true,0,0
9017000101,disadvantaged,0,0
not-a-tract-id,Yes,1,1
`

func writeCejst(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cejst.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadTestDataset(t *testing.T) *Dataset {
	t.Helper()
	dataset, err := LoadDataset(writeCejst(t, testCejstCSV), config.DefaultPolicy().Cejst)
	require.NoError(t, err)
	return dataset
}

func TestLoadDataset(t *testing.T) {
	t.Run("should index rows by normalized tract id", func(t *testing.T) {
		dataset := loadTestDataset(t)

		assert.Equal(t, 5, dataset.TractCount())

		entry, found := dataset.Lookup("25017000100")
		require.True(t, found)
		assert.True(t, entry.Disadvantaged)
		assert.Equal(t, []string{"energy burden"}, entry.MatchedCriteria)

		_, found = dataset.Lookup("not-a-tract-id")
		assert.False(t, found)
	})

	t.Run("should left-pad a ten digit tract id", func(t *testing.T) {
		dataset := loadTestDataset(t)

		entry, found := dataset.Lookup("09017000101")
		require.True(t, found)
		assert.True(t, entry.Disadvantaged)
	})

	t.Run("should fail when the file is missing", func(t *testing.T) {
		_, err := LoadDataset(filepath.Join(t.TempDir(), "absent.csv"), config.DefaultPolicy().Cejst)
		assert.Error(t, err)
	})

	t.Run("should fail without a tract id column", func(t *testing.T) {
		_, err := LoadDataset(writeCejst(t, "Some Column,Identified as disadvantaged\nx,Yes\n"), config.DefaultPolicy().Cejst)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tract id column")
	})

	t.Run("should fail without a disadvantaged column", func(t *testing.T) {
		_, err := LoadDataset(writeCejst(t, "Census tract 2010 ID,Other\n25017000100,Yes\n"), config.DefaultPolicy().Cejst)
		assert.Error(t, err)
	})
}

func TestNormalizeTractID(t *testing.T) {
	cases := map[string]string{
		"1400000US25017000100": "25017000100",
		"25017000100":          "25017000100",
		" 25017000100 ":        "25017000100",
		"9017000101":           "09017000101",
		"not-a-tract-id":       "",
		"":                     "",
		"250170001001234":      "",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, NormalizeTractID(input), "input %q", input)
	}
}

func TestClassifier_Verdict(t *testing.T) {
	classifier := NewClassifier(loadTestDataset(t))

	t.Run("should mark a disadvantaged tract eligible with its criteria", func(t *testing.T) {
		verdict := classifier.Verdict("25017000100")

		assert.Equal(t, models.EligibilityEligible, verdict.Status)
		assert.True(t, verdict.Disadvantaged)
		assert.Equal(t, "CEJST disadvantaged: energy burden", verdict.Reason)
	})

	t.Run("should fall back to the overall designation when no criterion is recorded", func(t *testing.T) {
		verdict := classifier.Verdict("25001111111")

		assert.Equal(t, models.EligibilityEligible, verdict.Status)
		assert.Equal(t, "CEJST disadvantaged (overall designation)", verdict.Reason)
	})

	t.Run("should mark partial indicators without the overall flag as Partial", func(t *testing.T) {
		verdict := classifier.Verdict("25025010104")

		assert.Equal(t, models.EligibilityPartial, verdict.Status)
		assert.False(t, verdict.Disadvantaged)
		assert.Equal(t, "Partial CEJST indicators: energy burden, housing burden", verdict.Reason)
	})

	t.Run("should mark a tract with no criteria Not Eligible", func(t *testing.T) {
		verdict := classifier.Verdict("48453001100")

		assert.Equal(t, models.EligibilityNotEligible, verdict.Status)
		assert.Equal(t, "No CEJST criteria met", verdict.Reason)
	})

	t.Run("should mark a tract absent from the dataset Not Eligible", func(t *testing.T) {
		verdict := classifier.Verdict("99999999999")

		assert.Equal(t, models.EligibilityNotEligible, verdict.Status)
		assert.Equal(t, ReasonTractNotInDataset, verdict.Reason)
	})

	t.Run("should be a pure function of the tract id", func(t *testing.T) {
		first := classifier.Verdict("25025010104")
		second := classifier.Verdict("25025010104")
		assert.Equal(t, first, second)
	})
}

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier(loadTestDataset(t))

	t.Run("should keep every record and apply verdict fields", func(t *testing.T) {
		records := []models.ProjectRecord{
			{ProjectID: "Alpha_000001", TractFIPS: "25017000100"},
			{ProjectID: "Beta_000001", TractFIPS: "99999999999"},
			{ProjectID: "Gamma_000001", TractFIPS: "25017000100"},
		}

		classified := classifier.Classify(records)

		require.Len(t, classified, 3)
		assert.Equal(t, models.EligibilityEligible, classified[0].EligibilityStatus)
		assert.True(t, classified[0].CejstDisadvantaged)
		assert.Equal(t, models.EligibilityNotEligible, classified[1].EligibilityStatus)
		assert.Equal(t, ReasonTractNotInDataset, classified[1].EligibilityReason)

		// Two projects on the same tract always classify identically.
		assert.Equal(t, classified[0].EligibilityStatus, classified[2].EligibilityStatus)
		assert.Equal(t, classified[0].EligibilityReason, classified[2].EligibilityReason)
	})
}
