package mock

import (
	"context"

	"github.com/fwojciec/pricewatch"
)

var _ pricewatch.ReportWriter = (*ReportWriter)(nil)

// ReportWriter is a mock implementation of pricewatch.ReportWriter.
type ReportWriter struct {
	WriteReportFn func(ctx context.Context, report *pricewatch.Report) error
}

func (w *ReportWriter) WriteReport(ctx context.Context, report *pricewatch.Report) error {
	return w.WriteReportFn(ctx, report)
}
