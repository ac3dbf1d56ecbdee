package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gfribergo93/nexxt-scraper/models"
)

func TestBuildSummaryStats(t *testing.T) {
	baker := models.NewRecord("https://example.org/detail.html?adId=1")
	baker.Industry = "Handwerk"
	baker.Date = "20.08.2026"

	shop := models.NewRecord("https://example.org/detail.html?adId=2")
	shop.Industry = "Handel"
	shop.Date = "25.08.2026"

	failed := models.ErrorRecord("https://example.org/detail.html?adId=3")

	stats := BuildSummaryStats([]models.ListingRecord{baker, shop, failed})

	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 1, stats.ErrorRecords)
	assert.Equal(t, 12, stats.FieldsError, "every extractable field of the failed record")
	assert.Equal(t, 2, stats.DatedRecords)
	assert.Equal(t, "20.08.2026", stats.OldestDate)
	assert.Equal(t, "25.08.2026", stats.NewestDate)

	assert.Equal(t, []IndustryCount{
		{Industry: "Handel", Count: 1},
		{Industry: "Handwerk", Count: 1},
		{Industry: "unbekannt", Count: 1},
	}, stats.PerIndustry)
}

func TestBuildSummaryStatsEmpty(t *testing.T) {
	stats := BuildSummaryStats(nil)
	assert.Zero(t, stats.TotalRecords)
	assert.Empty(t, stats.OldestDate)
}
