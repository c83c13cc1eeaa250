package tract

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

const testCrosswalkCSV = `ZIP,STATE,COUNTY,TRACT,RES_RATIO
00211,25,017,000100,0.95
02115,25,025,010300,0.60
02115,25,025,010104,0.60
02115,25,025,020200,0.25
78701,48,453,001100,1.0
`

func writeCrosswalk(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "crosswalk.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadCrosswalk(t *testing.T) {
	t.Run("should load and index entries by ZIP", func(t *testing.T) {
		crosswalk, err := LoadCrosswalk(writeCrosswalk(t, testCrosswalkCSV))

		require.NoError(t, err)
		assert.Equal(t, 3, crosswalk.ZipCount())
		assert.Equal(t, 5, crosswalk.EntryCount())
		assert.True(t, crosswalk.HasZip("02115"))
		assert.False(t, crosswalk.HasZip("99999"))
		assert.Len(t, crosswalk.Entries("02115"), 3)
	})

	t.Run("should zero-pad ZIP and FIPS codes", func(t *testing.T) {
		crosswalk, err := LoadCrosswalk(writeCrosswalk(t, "ZIP,STATE,COUNTY,TRACT,RES_RATIO\n211,9,17,101,0.5\n"))

		require.NoError(t, err)
		require.True(t, crosswalk.HasZip("00211"))
		entry := crosswalk.Entries("00211")[0]
		assert.Equal(t, "09", entry.StateFIPS)
		assert.Equal(t, "017", entry.CountyFIPS)
		assert.Equal(t, "000101", entry.Tract)
		assert.Equal(t, "09017000101", entry.GEOID())
	})

	t.Run("should fail when the file is missing", func(t *testing.T) {
		_, err := LoadCrosswalk(filepath.Join(t.TempDir(), "absent.csv"))
		assert.Error(t, err)
	})

	t.Run("should fail when a required column is missing", func(t *testing.T) {
		_, err := LoadCrosswalk(writeCrosswalk(t, "ZIP,STATE,COUNTY,TRACT\n00211,25,017,000100\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RES_RATIO")
	})

	t.Run("should fail on an unparseable ratio", func(t *testing.T) {
		_, err := LoadCrosswalk(writeCrosswalk(t, "ZIP,STATE,COUNTY,TRACT,RES_RATIO\n00211,25,017,000100,abc\n"))
		assert.Error(t, err)
	})

	t.Run("should fail on a header-only file", func(t *testing.T) {
		_, err := LoadCrosswalk(writeCrosswalk(t, "ZIP,STATE,COUNTY,TRACT,RES_RATIO\n"))
		assert.Error(t, err)
	})
}

func TestCrosswalk_BestAssignment(t *testing.T) {
	crosswalk, err := LoadCrosswalk(writeCrosswalk(t, testCrosswalkCSV))
	require.NoError(t, err)

	t.Run("should pick the entry with the maximum residential ratio", func(t *testing.T) {
		assignment, found := crosswalk.BestAssignment("00211")

		require.True(t, found)
		assert.Equal(t, "25", assignment.StateFIPS)
		assert.Equal(t, "017", assignment.CountyFIPS)
		assert.Equal(t, "25017000100", assignment.TractFIPS)
		assert.Equal(t, 0.95, assignment.ResRatio)
	})

	t.Run("should break an exact ratio tie with the smallest tract FIPS", func(t *testing.T) {
		assignment, found := crosswalk.BestAssignment("02115")

		require.True(t, found)
		assert.Equal(t, "25025010104", assignment.TractFIPS)
		assert.Equal(t, 0.60, assignment.ResRatio)
	})

	t.Run("should report a ZIP with no entries", func(t *testing.T) {
		_, found := crosswalk.BestAssignment("99999")
		assert.False(t, found)
	})
}

func TestMapper_MapTracts(t *testing.T) {
	crosswalk, err := LoadCrosswalk(writeCrosswalk(t, testCrosswalkCSV))
	require.NoError(t, err)

	recordWithZip := func(projectID, zip string) models.ProjectRecord {
		return models.ProjectRecord{
			ProjectID:       projectID,
			CarrierID:       "Alpha",
			SourceFile:      "Alpha_bordereaux.csv",
			SourceRowNumber: 2,
			ZipCode:         zip,
		}
	}

	t.Run("should assign tracts preserving input order", func(t *testing.T) {
		mapper := NewMapper(crosswalk, 4, discardLogger())

		kept, exceptions := mapper.MapTracts([]models.ProjectRecord{
			recordWithZip("Alpha_000001", "78701"),
			recordWithZip("Alpha_000002", "00211"),
			recordWithZip("Alpha_000003", "02115"),
		})

		require.Len(t, kept, 3)
		assert.Empty(t, exceptions)
		assert.Equal(t, "Alpha_000001", kept[0].ProjectID)
		assert.Equal(t, "48453001100", kept[0].TractFIPS)
		assert.Equal(t, "25017000100", kept[1].TractFIPS)
		assert.Equal(t, "25025010104", kept[2].TractFIPS)
		assert.Equal(t, 0.95, kept[1].TractResRatio)
	})

	t.Run("should surface a missing crosswalk entry as an integrity exception", func(t *testing.T) {
		mapper := NewMapper(crosswalk, 2, discardLogger())

		kept, exceptions := mapper.MapTracts([]models.ProjectRecord{
			recordWithZip("Alpha_000001", "99999"),
			recordWithZip("Alpha_000002", "00211"),
		})

		require.Len(t, kept, 1)
		assert.Equal(t, "Alpha_000002", kept[0].ProjectID)
		require.Len(t, exceptions, 1)
		assert.Equal(t, models.StageTractMapper, exceptions[0].Stage)
		assert.Equal(t, models.RuleNoCrosswalkEntry, exceptions[0].Rule)
		assert.Equal(t, "99999", exceptions[0].RawValue)
		assert.Equal(t, "Alpha_000001", exceptions[0].ProjectID)
	})

	t.Run("should produce identical output for any worker count", func(t *testing.T) {
		zips := []string{"00211", "02115", "78701", "99999"}
		var records []models.ProjectRecord
		for i := 0; i < 60; i++ {
			records = append(records, recordWithZip("Alpha_"+string(rune('A'+i%26)), zips[i%len(zips)]))
		}

		baseKept, baseExceptions := NewMapper(crosswalk, 1, discardLogger()).MapTracts(records)
		for _, workers := range []int{2, 7, 16} {
			kept, exceptions := NewMapper(crosswalk, workers, discardLogger()).MapTracts(records)
			assert.Equal(t, baseKept, kept, "workers=%d", workers)
			assert.Equal(t, baseExceptions, exceptions, "workers=%d", workers)
		}
	})
}
