package zipcode

import (
	"strings"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

// ZipIndex answers whether a ZIP exists in the loaded crosswalk. Resolution
// never accepts a ZIP the tract mapper cannot place.
type ZipIndex interface {
	HasZip(zip string) bool
}

// Resolver extracts the canonical 5-digit ZIP for each record, preferring an
// explicitly tagged ZIP field over free-form address scanning.
type Resolver struct {
	index ZipIndex
}

func NewResolver(index ZipIndex) *Resolver {
	return &Resolver{index: index}
}

// Resolve fills ZipCode on every record it can and routes the rest to
// exceptions. Input order is preserved in the kept set.
func (r *Resolver) Resolve(records []models.ProjectRecord) ([]models.ProjectRecord, []models.ExceptionRecord) {
	kept := make([]models.ProjectRecord, 0, len(records))
	var exceptions []models.ExceptionRecord

	for _, record := range records {
		if exc := r.resolveRecord(&record); exc != nil {
			exceptions = append(exceptions, *exc)
			continue
		}
		kept = append(kept, record)
	}

	return kept, exceptions
}

func (r *Resolver) resolveRecord(record *models.ProjectRecord) *models.ExceptionRecord {
	source := record.PrincipalAddress
	field := "principal_address"
	if record.PrincipalZip != "" {
		source = record.PrincipalZip
		field = "principal_zip"
	}

	zip, rule := Extract(source)
	if rule != "" {
		exc := models.NewException(models.StageZipResolver, rule, record, field, source, "")
		return &exc
	}

	if !r.index.HasZip(zip) {
		exc := models.NewException(models.StageZipResolver, models.RuleZipNotInHudTable, record, field, zip,
			"resolved ZIP has no crosswalk coverage")
		return &exc
	}

	record.ZipCode = zip
	return nil
}

// Extract applies the strict ZIP pattern to free text: a run of exactly 5
// consecutive digits, optionally followed by a dash and a 4-digit extension
// which is discarded. A digits-only token of up to 5 characters (a tagged
// ZIP cell that lost its leading zeros) is left-padded instead of scanned.
// The returned rule is empty on success, otherwise ZIP_NOT_FOUND or
// ZIP_AMBIGUOUS.
func Extract(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", models.RuleZipNotFound
	}

	if len(trimmed) <= 5 && isDigits(trimmed) {
		return Canonicalize(trimmed), ""
	}

	var zip string
	for _, run := range digitRuns(trimmed) {
		candidate := trimmed[run[0]:run[1]]
		if len(candidate) != 5 {
			continue
		}
		if zip != "" && candidate != zip {
			return "", models.RuleZipAmbiguous
		}
		zip = candidate
	}

	if zip == "" {
		return "", models.RuleZipNotFound
	}
	return zip, ""
}

// Canonicalize left-pads a digit token with zeros to exactly 5 characters.
func Canonicalize(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 5 {
		return token
	}
	return strings.Repeat("0", 5-len(token)) + token
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// digitRuns returns the [start, end) byte offsets of every maximal run of
// consecutive ASCII digits in s.
func digitRuns(s string) [][2]int {
	var runs [][2]int
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(s)})
	}
	return runs
}
