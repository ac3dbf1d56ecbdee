package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
	"github.com/gfribergo93/nexxt-scraper/models"
)

// FieldExtractor pulls the listing schema out of a loaded detail page. Every
// field runs its own strategy cascade; a field no strategy can locate stays
// at the NA sentinel. Extract never fails: when even the page-load wait or
// the document snapshot goes wrong the remaining fields simply stay NA.
type FieldExtractor struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewFieldExtractor(cfg config.Config, logger *slog.Logger) *FieldExtractor {
	return &FieldExtractor{cfg: cfg, logger: logger}
}

// Extract reads the current browsing context, which is expected to be on
// listingURL, and returns the best-effort record for it.
func (e *FieldExtractor) Extract(ctx context.Context, sess browser.Session, listingURL string) models.ListingRecord {
	rec := models.NewRecord(listingURL)

	if err := sess.WaitVisible(ctx, DetailReadySelector, e.cfg.ElementWaitTimeout); err != nil {
		e.logger.Warn("listing page never settled, fields stay NA",
			"url", listingURL, "error", err)
		return rec
	}

	html, err := sess.OuterHTML(ctx)
	if err != nil {
		e.logger.Warn("could not snapshot listing page, fields stay NA",
			"url", listingURL, "error", err)
		return rec
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("could not parse listing page, fields stay NA",
			"url", listingURL, "error", err)
		return rec
	}

	return BuildRecord(doc, listingURL)
}

// BuildRecord runs the full strategy cascade against a parsed page snapshot.
// Separate from Extract so the cascades are testable without a browser.
func BuildRecord(doc *goquery.Document, listingURL string) models.ListingRecord {
	rec := models.NewRecord(listingURL)

	setField(&rec.Title, doc, contentHeading(), anyHeading())
	setField(&rec.Description, doc,
		selectorText(DescriptionSelector),
		textSegment(descriptionStartMarker, descriptionEndMarker),
	)
	setField(&rec.Location, doc, labelCascade(locationLabels)...)
	setField(&rec.Industry, doc, labelCascade(industryLabels)...)
	setField(&rec.EmployeeCount, doc, labelCascade(employeeLabels)...)
	setField(&rec.LastYearRevenue, doc, labelCascade(revenueLabels)...)
	setField(&rec.AskingPrice, doc, labelCascade(priceLabels)...)
	setField(&rec.ListingType, doc, append(labelCascade(typeLabels),
		sectionPattern(factsStartMarker, factsEndMarker, listingTypeRe))...)
	setField(&rec.Date, doc, append(labelCascade(dateLabels),
		sectionPattern(factsStartMarker, factsEndMarker, listingDateRe))...)
	setField(&rec.Reference, doc, append(labelCascade(referenceLabels),
		sectionPattern(factsStartMarker, factsEndMarker, chiffreRe))...)
	setField(&rec.RegionalPartner, doc, labelCascade(partnerLabels)...)
	setField(&rec.Contact, doc, labelCascade(contactLabels)...)

	return rec
}

func setField(field *string, doc *goquery.Document, strategies ...Strategy) {
	if v := firstResult(doc, strategies...); v != "" {
		*field = v
	}
}
