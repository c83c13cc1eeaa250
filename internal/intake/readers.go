package intake

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// ReadRecords reads every data row of a bordereaux file into raw records
// keyed by the trimmed header row. The file format is picked by extension.
func ReadRecords(info models.SourceFileInfo) ([]models.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(info.Name)) {
	case ".csv":
		return readCSV(info)
	case ".xlsx":
		return readXLSX(info)
	}
	return nil, fmt.Errorf("unsupported file type for %s", info.Name)
}

func readCSV(info models.SourceFileInfo) ([]models.RawRecord, error) {
	file, err := os.Open(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", info.Path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Carrier exports are ragged; length mismatches are handled against the
	// header instead of rejected by the reader.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header from %s: %w", info.Path, err)
	}
	header = cleanHeader(header)

	var records []models.RawRecord
	for i := 0; ; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d from %s: %w", i+2, info.Path, err)
		}
		records = append(records, rawRecord(info, i, header, row))
	}

	return records, nil
}

func readXLSX(info models.SourceFileInfo) ([]models.RawRecord, error) {
	workbook, err := excelize.OpenFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", info.Path, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheets[0], info.Path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := cleanHeader(rows[0])
	records := make([]models.RawRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		records = append(records, rawRecord(info, i, header, row))
	}

	return records, nil
}

func rawRecord(info models.SourceFileInfo, index int, header, row []string) models.RawRecord {
	fields := make(map[string]string, len(header))
	for col, name := range header {
		if name == "" {
			continue
		}
		value := ""
		if col < len(row) {
			value = row[col]
		}
		fields[name] = value
	}
	return models.RawRecord{
		SourceFile: info.Name,
		CarrierID:  info.CarrierID,
		Index:      index,
		RowNumber:  index + 2,
		Fields:     fields,
	}
}

func cleanHeader(header []string) []string {
	cleaned := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "﻿")
		}
		cleaned[i] = strings.TrimSpace(name)
	}
	return cleaned
}
