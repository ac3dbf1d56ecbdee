package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gfribergo93/nexxt-scraper/models"
)

// Sink receives the ordered record list: once per page as a checkpoint, once
// at run end, and on a fatal error. Rows keep the stable schema column order.
type Sink interface {
	WriteCheckpoint(records []models.ListingRecord) error
	WriteFinal(records []models.ListingRecord) error
	WriteAborted(records []models.ListingRecord) error
}

// CSVSink writes tabular artifacts under a directory. File names embed the
// run's start timestamp so successive runs never collide; the checkpoint file
// is superseded on every write.
type CSVSink struct {
	dir   string
	stamp string
}

func NewCSVSink(dir string, startedAt time.Time) *CSVSink {
	return &CSVSink{dir: dir, stamp: startedAt.Format("20060102_150405")}
}

func (s *CSVSink) WriteCheckpoint(records []models.ListingRecord) error {
	return s.write(fmt.Sprintf("listings_%s_partial.csv", s.stamp), records)
}

func (s *CSVSink) WriteFinal(records []models.ListingRecord) error {
	return s.write(fmt.Sprintf("listings_%s.csv", s.stamp), records)
}

func (s *CSVSink) WriteAborted(records []models.ListingRecord) error {
	return s.write(fmt.Sprintf("listings_%s_aborted.csv", s.stamp), records)
}

func (s *CSVSink) write(name string, records []models.ListingRecord) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
