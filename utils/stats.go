package utils

import (
	"sort"
	"time"

	"github.com/gfribergo93/nexxt-scraper/models"
)

type IndustryCount struct {
	Industry string
	Count    int
}

type SummaryStats struct {
	TotalRecords    int
	FieldsNA        int
	FieldsError     int
	OldestDate      string
	NewestDate      string
	PerIndustry     []IndustryCount
	ErrorRecords    int // records where every extractable field is ERROR
	DatedRecords    int
	RecordsWithDate float32 // share of records with a parseable date
}

// BuildSummaryStats aggregates the run's records for the end-of-run report.
func BuildSummaryStats(records []models.ListingRecord) SummaryStats {
	stats := SummaryStats{TotalRecords: len(records)}
	if len(records) == 0 {
		return stats
	}

	industryCounts := make(map[string]int)
	var oldest, newest time.Time

	for _, rec := range records {
		allError := true
		for _, field := range rec.Row()[2:] { // id and url are never sentinels
			switch field {
			case models.NA:
				stats.FieldsNA++
				allError = false
			case models.Error:
				stats.FieldsError++
			default:
				allError = false
			}
		}
		if allError {
			stats.ErrorRecords++
		}

		industry := rec.Industry
		if industry == models.NA || industry == models.Error {
			industry = "unbekannt"
		}
		industryCounts[industry]++

		if date, ok := models.ParseListingDate(rec.Date); ok {
			stats.DatedRecords++
			if oldest.IsZero() || date.Before(oldest) {
				oldest = date
			}
			if newest.IsZero() || date.After(newest) {
				newest = date
			}
		}
	}

	if !oldest.IsZero() {
		stats.OldestDate = oldest.Format(models.DateLayout)
		stats.NewestDate = newest.Format(models.DateLayout)
	}
	stats.RecordsWithDate = float32(stats.DatedRecords) / float32(len(records))

	perIndustry := make([]IndustryCount, 0, len(industryCounts))
	for industry, count := range industryCounts {
		perIndustry = append(perIndustry, IndustryCount{Industry: industry, Count: count})
	}
	sort.Slice(perIndustry, func(i, j int) bool {
		if perIndustry[i].Count == perIndustry[j].Count {
			return perIndustry[i].Industry < perIndustry[j].Industry
		}
		return perIndustry[i].Count > perIndustry[j].Count
	})
	stats.PerIndustry = perIndustry

	return stats
}
