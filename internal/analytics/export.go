package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/source"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
)

// ReportFetcher asks the storefront for a rendered dashboard report.
type ReportFetcher interface {
	Report(ctx context.Context, query storefront.AnalyticsQuery, format string) (*storefront.Report, error)
}

// Export is a rendered dashboard file.
type Export struct {
	Format      enums.ExportFormat
	ContentType string
	Filename    string
	Body        []byte
	// Placeholder marks the JSON stand-in served for pdf.
	Placeholder bool
	// Remote is set when the storefront rendered the file.
	Remote bool
}

func (s *service) Export(ctx context.Context, req types.DashboardRequest, format enums.ExportFormat) (*Export, error) {
	if !format.IsValid() {
		format = enums.ExportFormatJSON
	}
	if s.reports != nil {
		report, err := s.reports.Report(ctx, source.Query(req.RangeKey, req.Custom), format.String())
		if err == nil {
			return remoteExport(report, format, s.now()), nil
		}
		s.logg.Warn(s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "report endpoint failed; rendering export locally")
	}
	return RenderExport(s.Dashboard(ctx, req), format, s.now())
}

func remoteExport(report *storefront.Report, format enums.ExportFormat, now time.Time) *Export {
	contentType := report.ContentType
	if contentType == "" {
		contentType = format.ContentType()
	}
	return &Export{
		Format:      format,
		ContentType: contentType,
		Filename:    exportFilename(now, format.String()),
		Body:        report.Body,
		Remote:      true,
	}
}

func exportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("analytics-%s.%s", now.UTC().Format("2006-01-02"), ext)
}

// RenderExport serializes bundle in format. Unknown formats render as JSON.
func RenderExport(bundle *types.Bundle, format enums.ExportFormat, now time.Time) (*Export, error) {
	if bundle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bundle required")
	}
	if !format.IsValid() {
		format = enums.ExportFormatJSON
	}

	out := &Export{
		Format:      format,
		ContentType: format.ContentType(),
		Filename:    exportFilename(now, format.String()),
	}

	var err error
	switch format {
	case enums.ExportFormatCSV:
		out.Body, err = renderCSV(bundle)
	case enums.ExportFormatPDF:
		// Local pdf is the bundle wrapped in a typed JSON document.
		out.Body, err = json.MarshalIndent(map[string]any{"type": "pdf", "data": bundle}, "", "  ")
		out.ContentType = enums.ExportFormatJSON.ContentType()
		out.Filename = exportFilename(now, "pdf.json")
		out.Placeholder = true
	default:
		out.Body, err = json.MarshalIndent(bundle, "", "  ")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render export")
	}
	return out, nil
}

func renderCSV(b *types.Bundle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Metric", "Value", "Trend"},
		{"Users", strconv.FormatInt(b.Stats.TotalUsers, 10), percent(b.Stats.UsersTrend)},
		{"Orders", strconv.FormatInt(b.Stats.TotalOrders, 10), percent(b.Stats.OrdersTrend)},
		{"Products", strconv.FormatInt(b.Stats.TotalProducts, 10), percent(b.Stats.ProductsTrend)},
		{"Revenue", number(b.Stats.TotalRevenue), percent(b.Stats.RevenueTrend)},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	// csv.Writer quotes a lone empty field, so the separator line goes in raw.
	buf.WriteString("\n")

	rows = [][]string{{"Sales Trends"}, {"Date", "Revenue", "Orders"}}
	for _, p := range b.SalesTrend {
		rows = append(rows, []string{p.Date, number(p.Revenue), strconv.FormatInt(p.Orders, 10)})
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percent(v float64) string {
	return number(v) + "%"
}
