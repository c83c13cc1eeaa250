package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// ScanForFiles lists the bordereaux files in rootPath, sorted by file name
// so the processing order is stable across runs. Only .csv and .xlsx entries
// are returned; subdirectories and other files are ignored.
func ScanForFiles(rootPath string) ([]models.SourceFileInfo, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, fmt.Errorf("error reading raw data directory %s: %w", rootPath, err)
	}

	var fileInfos []models.SourceFileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		fileInfos = append(fileInfos, models.SourceFileInfo{
			Path:      filepath.Join(rootPath, entry.Name()),
			Name:      entry.Name(),
			CarrierID: CarrierFromFilename(entry.Name()),
		})
	}

	return fileInfos, nil
}

// CarrierFromFilename infers the carrier id from the submission file name.
// Carriers drop files named "<carrier>_<anything>.<ext>"; a name without an
// underscore is treated as the carrier id itself.
func CarrierFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.Index(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}
