package tract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// Crosswalk is the HUD ZIP to tract reference table, indexed by ZIP at load
// time and immutable for the rest of the run.
type Crosswalk struct {
	byZip      map[string][]models.CrosswalkEntry
	entryCount int
}

// LoadCrosswalk reads the crosswalk CSV. The file carries the columns
// ZIP, STATE, COUNTY, TRACT, RES_RATIO; codes are zero-padded to their FIPS
// widths. Any missing column or unparseable ratio makes the whole load fail:
// the tract mapper cannot run against a partial reference table.
func LoadCrosswalk(path string) (*Crosswalk, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crosswalk %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read crosswalk header from %s: %w", path, err)
	}

	columns, err := columnIndex(header, "ZIP", "STATE", "COUNTY", "TRACT", "RES_RATIO")
	if err != nil {
		return nil, fmt.Errorf("crosswalk %s: %w", path, err)
	}

	crosswalk := &Crosswalk{byZip: make(map[string][]models.CrosswalkEntry)}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read crosswalk row %d from %s: %w", line, path, err)
		}

		ratio, err := strconv.ParseFloat(strings.TrimSpace(row[columns["RES_RATIO"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("crosswalk %s row %d: bad RES_RATIO %q: %w", path, line, row[columns["RES_RATIO"]], err)
		}

		entry := models.CrosswalkEntry{
			Zip:        pad(row[columns["ZIP"]], 5),
			StateFIPS:  pad(row[columns["STATE"]], 2),
			CountyFIPS: pad(row[columns["COUNTY"]], 3),
			Tract:      pad(row[columns["TRACT"]], 6),
			ResRatio:   ratio,
		}
		crosswalk.byZip[entry.Zip] = append(crosswalk.byZip[entry.Zip], entry)
		crosswalk.entryCount++
	}

	if crosswalk.entryCount == 0 {
		return nil, fmt.Errorf("crosswalk %s has no data rows", path)
	}

	return crosswalk, nil
}

func (c *Crosswalk) HasZip(zip string) bool {
	return len(c.byZip[zip]) > 0
}

func (c *Crosswalk) Entries(zip string) []models.CrosswalkEntry {
	return c.byZip[zip]
}

func (c *Crosswalk) ZipCount() int {
	return len(c.byZip)
}

func (c *Crosswalk) EntryCount() int {
	return c.entryCount
}

// BestAssignment picks the single tract for a ZIP: the entry with the
// maximum residential ratio, ties broken by the lexicographically smallest
// full tract FIPS so repeated runs always agree.
func (c *Crosswalk) BestAssignment(zip string) (models.TractAssignment, bool) {
	entries := c.byZip[zip]
	if len(entries) == 0 {
		return models.TractAssignment{}, false
	}

	best := entries[0]
	for _, entry := range entries[1:] {
		if entry.ResRatio > best.ResRatio {
			best = entry
			continue
		}
		if entry.ResRatio == best.ResRatio && entry.GEOID() < best.GEOID() {
			best = entry
		}
	}

	return models.TractAssignment{
		ZipCode:    zip,
		StateFIPS:  best.StateFIPS,
		CountyFIPS: best.CountyFIPS,
		TractFIPS:  best.GEOID(),
		ResRatio:   best.ResRatio,
	}, true
}

func columnIndex(header []string, names ...string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "﻿"))] = i
	}

	columns := make(map[string]int, len(names))
	var missing []string
	for _, name := range names {
		i, ok := index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		columns[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func pad(value string, width int) string {
	value = strings.TrimSpace(value)
	if len(value) >= width {
		return value
	}
	return strings.Repeat("0", width-len(value)) + value
}
