package eligibility

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/config"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// Dataset is the CEJST communities table indexed by 11-digit tract FIPS,
// immutable once loaded.
type Dataset struct {
	byTract map[string]models.CejstEntry
}

// LoadDataset reads the CEJST CSV using the configured column candidates.
// The tract-id and disadvantaged columns must exist; indicator columns are
// matched opportunistically since they vary across dataset versions. Rows
// without a usable 11-digit tract id are skipped; a first occurrence wins
// when a tract appears twice.
func LoadDataset(path string, columns config.CejstColumns) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CEJST dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CEJST header from %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "﻿"))] = i
	}

	tractCol, ok := pickColumn(index, columns.TractIDColumns)
	if !ok {
		return nil, fmt.Errorf("CEJST dataset %s: no tract id column among %v", path, columns.TractIDColumns)
	}
	disadvantagedCol, ok := pickColumn(index, columns.DisadvantagedColumns)
	if !ok {
		return nil, fmt.Errorf("CEJST dataset %s: no disadvantaged column among %v", path, columns.DisadvantagedColumns)
	}

	type indicator struct {
		col   int
		label string
	}
	var indicators []indicator
	for _, candidate := range columns.Indicators {
		if col, found := index[candidate.Column]; found {
			indicators = append(indicators, indicator{col: col, label: candidate.Label})
		}
	}

	dataset := &Dataset{byTract: make(map[string]models.CejstEntry)}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CEJST row %d from %s: %w", line, path, err)
		}

		tractID := NormalizeTractID(cell(row, tractCol))
		if tractID == "" {
			continue
		}
		if _, exists := dataset.byTract[tractID]; exists {
			continue
		}

		entry := models.CejstEntry{
			TractFIPS:     tractID,
			Disadvantaged: toBool(cell(row, disadvantagedCol)),
		}
		for _, ind := range indicators {
			if toBool(cell(row, ind.col)) {
				entry.MatchedCriteria = append(entry.MatchedCriteria, ind.label)
			}
		}
		dataset.byTract[tractID] = entry
	}

	if len(dataset.byTract) == 0 {
		return nil, fmt.Errorf("CEJST dataset %s has no usable rows", path)
	}

	return dataset, nil
}

func (d *Dataset) Lookup(tractFIPS string) (models.CejstEntry, bool) {
	entry, ok := d.byTract[tractFIPS]
	return entry, ok
}

func (d *Dataset) TractCount() int {
	return len(d.byTract)
}

// NormalizeTractID reduces a raw CEJST tract cell to the bare 11-digit
// GEOID: the census "1400000US" prefix is dropped, non-digits removed, and
// a shorter id left-padded. Anything that does not end up at 11 digits is
// rejected as unusable (returned empty).
func NormalizeTractID(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "1400000US")

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	id := digits.String()
	if id == "" || len(id) > 11 {
		return ""
	}
	if len(id) < 11 {
		id = strings.Repeat("0", 11-len(id)) + id
	}
	return id
}

func toBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "disadvantaged":
		return true
	}
	return false
}

func pickColumn(index map[string]int, candidates []string) (int, bool) {
	for _, name := range candidates {
		if col, ok := index[name]; ok {
			return col, true
		}
	}
	return 0, false
}

func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
