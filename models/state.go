package models

// CrawlState is the process-wide run state. CrawlSession is its only writer;
// records are append-only in discovery order and foundOldListing only ever
// flips false → true.
type CrawlState struct {
	Page    int
	Records []ListingRecord

	foundOldListing bool
}

// NewCrawlState returns a state positioned on the first results page.
func NewCrawlState() *CrawlState {
	return &CrawlState{Page: 1}
}

// Append adds a record at the end of the accumulated list.
func (s *CrawlState) Append(r ListingRecord) {
	s.Records = append(s.Records, r)
}

// MarkOldFound latches the stop flag.
func (s *CrawlState) MarkOldFound() {
	s.foundOldListing = true
}

// OldFound reports whether a listing older than the recency threshold (or an
// unrecoverable fault forcing termination) has been seen.
func (s *CrawlState) OldFound() bool {
	return s.foundOldListing
}
