package models

import (
	"net/url"
	"strings"
	"time"
)

// Sentinel field values. Every field of a ListingRecord is either extracted
// text, NA (field absent on the page) or Error (the whole extraction call
// for the listing was abandoned).
const (
	NA        = "NA"
	Error     = "ERROR"
	UnknownID = "unknown"
)

// DateLayout is the day-precision format used on listing pages (DD.MM.YYYY).
const DateLayout = "02.01.2006"

// ListingRecord holds all scraped data for a single business-sale listing.
type ListingRecord struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	Industry        string `json:"industry"`
	EmployeeCount   string `json:"employeeCount"`
	LastYearRevenue string `json:"lastYearRevenue"`
	AskingPrice     string `json:"askingPrice"`
	ListingType     string `json:"listingType"`
	Date            string `json:"date"`
	Reference       string `json:"reference"`
	RegionalPartner string `json:"regionalPartner"`
	Contact         string `json:"contact"`
}

// NewRecord returns a record for listingURL with every text field preset to
// NA, so a partially extracted record still satisfies the field invariant.
func NewRecord(listingURL string) ListingRecord {
	return ListingRecord{
		ID:              IDFromURL(listingURL),
		URL:             listingURL,
		Title:           NA,
		Description:     NA,
		Location:        NA,
		Industry:        NA,
		EmployeeCount:   NA,
		LastYearRevenue: NA,
		AskingPrice:     NA,
		ListingType:     NA,
		Date:            NA,
		Reference:       NA,
		RegionalPartner: NA,
		Contact:         NA,
	}
}

// ErrorRecord returns a record for listingURL with every extractable field
// set to Error. ID is still recovered from the URL when possible.
func ErrorRecord(listingURL string) ListingRecord {
	return ListingRecord{
		ID:              IDFromURL(listingURL),
		URL:             listingURL,
		Title:           Error,
		Description:     Error,
		Location:        Error,
		Industry:        Error,
		EmployeeCount:   Error,
		LastYearRevenue: Error,
		AskingPrice:     Error,
		ListingType:     Error,
		Date:            Error,
		Reference:       Error,
		RegionalPartner: Error,
		Contact:         Error,
	}
}

// IDFromURL parses the adId query parameter out of a listing URL.
func IDFromURL(listingURL string) string {
	u, err := url.Parse(listingURL)
	if err != nil {
		return UnknownID
	}
	if id := strings.TrimSpace(u.Query().Get("adId")); id != "" {
		return id
	}
	return UnknownID
}

// ParseListingDate parses a DD.MM.YYYY field value. Sentinel values and
// anything that does not match the layout report ok=false.
func ParseListingDate(field string) (time.Time, bool) {
	field = strings.TrimSpace(field)
	if field == "" || field == NA || field == Error {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, field)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Columns is the stable header of the tabular output artifact.
func Columns() []string {
	return []string{
		"id", "url", "title", "description", "location", "industry",
		"employeeCount", "lastYearRevenue", "askingPrice", "listingType",
		"date", "reference", "regionalPartner", "contact",
	}
}

// Row renders the record in Columns order.
func (r ListingRecord) Row() []string {
	return []string{
		r.ID, r.URL, r.Title, r.Description, r.Location, r.Industry,
		r.EmployeeCount, r.LastYearRevenue, r.AskingPrice, r.ListingType,
		r.Date, r.Reference, r.RegionalPartner, r.Contact,
	}
}
