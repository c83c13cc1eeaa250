package accumulation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/config"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

const (
	noteRed    = "High premium concentration or project density - review"
	noteYellow = "Moderate premium concentration or project density"
	noteGreen  = "Low premium concentration and project density"
)

// Aggregator rolls enriched records up into per-ZIP exposure summaries and
// classifies each against the two configured threshold axes.
type Aggregator struct {
	thresholds config.Thresholds
}

func NewAggregator(thresholds config.Thresholds) *Aggregator {
	return &Aggregator{thresholds: thresholds}
}

// Summarize recomputes the full accumulation picture from scratch, one
// summary per distinct ZIP, sorted by ZIP for stable output.
func (a *Aggregator) Summarize(records []models.ProjectRecord) []models.ZipAccumulationSummary {
	groups := make(map[string][]*models.ProjectRecord)
	for i := range records {
		record := &records[i]
		if record.ZipCode == "" {
			continue
		}
		groups[record.ZipCode] = append(groups[record.ZipCode], record)
	}

	zips := make([]string, 0, len(groups))
	for zip := range groups {
		zips = append(zips, zip)
	}
	sort.Strings(zips)

	summaries := make([]models.ZipAccumulationSummary, 0, len(zips))
	for _, zip := range zips {
		summaries = append(summaries, a.summarizeGroup(zip, groups[zip]))
	}
	return summaries
}

func (a *Aggregator) summarizeGroup(zip string, group []*models.ProjectRecord) models.ZipAccumulationSummary {
	carrierSet := make(map[string]bool)
	grossTotal := decimal.Zero
	penalTotal := decimal.Zero

	for _, record := range group {
		carrierSet[record.CarrierID] = true
		if record.GrossPremium.Valid {
			grossTotal = grossTotal.Add(record.GrossPremium.Decimal)
		}
		if record.PenalAmount.Valid {
			penalTotal = penalTotal.Add(record.PenalAmount.Decimal)
		}
	}

	carriers := make([]string, 0, len(carrierSet))
	for carrier := range carrierSet {
		carriers = append(carriers, carrier)
	}
	sort.Strings(carriers)

	flag := a.premiumFlag(grossTotal).MoreSevere(a.countFlag(len(group)))

	return models.ZipAccumulationSummary{
		ZipCode:           zip,
		ProjectCount:      len(group),
		DistinctCarriers:  len(carriers),
		Carriers:          carriers,
		TotalGrossPremium: grossTotal,
		TotalPenalAmount:  penalTotal,
		Flag:              flag,
		Note:              note(flag),
	}
}

func (a *Aggregator) premiumFlag(total decimal.Decimal) models.AccumulationFlag {
	if total.GreaterThanOrEqual(a.thresholds.PremiumRed) {
		return models.FlagRed
	}
	if total.GreaterThanOrEqual(a.thresholds.PremiumYellow) {
		return models.FlagYellow
	}
	return models.FlagGreen
}

func (a *Aggregator) countFlag(count int) models.AccumulationFlag {
	if count >= a.thresholds.CountRed {
		return models.FlagRed
	}
	if count >= a.thresholds.CountYellow {
		return models.FlagYellow
	}
	return models.FlagGreen
}

func note(flag models.AccumulationFlag) string {
	switch flag {
	case models.FlagRed:
		return noteRed
	case models.FlagYellow:
		return noteYellow
	}
	return noteGreen
}
