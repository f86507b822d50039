// Package fs provides file-based storage for batch reports.
package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fwojciec/pricewatch"
)

// Ensure ReportWriter implements pricewatch.ReportWriter at compile time.
var _ pricewatch.ReportWriter = (*ReportWriter)(nil)

// reportTimeLayout sorts lexically and is safe in file names.
const reportTimeLayout = "20060102T150405.000000000Z"

// ReportWriter writes batch reports as JSON files to a directory.
type ReportWriter struct {
	dir string
}

// NewReportWriter creates a ReportWriter that writes to dir.
func NewReportWriter(dir string) *ReportWriter {
	return &ReportWriter{dir: dir}
}

// Path returns the file a report is written to, named after its start time.
func (w *ReportWriter) Path(report *pricewatch.Report) string {
	return filepath.Join(w.dir, report.StartedAt.UTC().Format(reportTimeLayout)+".json")
}

// WriteReport writes the report to Path(report). The file is written to a
// temporary name first and renamed into place, so readers never see a
// partial report. A nil report writes nothing.
func (w *ReportWriter) WriteReport(ctx context.Context, report *pricewatch.Report) error {
	if report == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(w.dir, ".report-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), w.Path(report))
}
