package analytics

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/angelmondragon/admin-analytics/internal/analytics/aggregate"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportBundle() *types.Bundle {
	return FallbackBundle([]types.SalesPoint{
		{Date: "2025-05-01", Revenue: 1200.5, Orders: 4},
		{Date: "2025-05-02", Revenue: 980, Orders: 3},
	})
}

func TestRenderExportCSV(t *testing.T) {
	out, err := RenderExport(exportBundle(), enums.ExportFormatCSV, testNow)
	require.NoError(t, err)

	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)
	assert.Equal(t, "analytics-2025-05-14.csv", out.Filename)
	assert.False(t, out.Placeholder)

	want := strings.Join([]string{
		"Metric,Value,Trend",
		"Users,8,5.2%",
		"Orders,50,8.7%",
		"Products,13,3.1%",
		"Revenue,25000,12.4%",
		"",
		"Sales Trends",
		"Date,Revenue,Orders",
		"2025-05-01,1200.5,4",
		"2025-05-02,980,3",
		"",
	}, "\n")
	assert.Equal(t, want, string(out.Body))
}

func TestRenderExportJSON(t *testing.T) {
	b := exportBundle()
	out, err := RenderExport(b, enums.ExportFormatJSON, testNow)
	require.NoError(t, err)

	assert.Equal(t, "application/json", out.ContentType)
	assert.Equal(t, "analytics-2025-05-14.json", out.Filename)

	var decoded types.Bundle
	require.NoError(t, json.Unmarshal(out.Body, &decoded))
	assert.Equal(t, b.Stats, decoded.Stats)
	assert.Equal(t, b.SalesTrend, decoded.SalesTrend)
}

func TestRenderExportPDFIsPlaceholder(t *testing.T) {
	out, err := RenderExport(exportBundle(), enums.ExportFormatPDF, testNow)
	require.NoError(t, err)

	assert.True(t, out.Placeholder)
	assert.Equal(t, "application/json", out.ContentType)

	var decoded struct {
		Type string       `json:"type"`
		Data types.Bundle `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &decoded))
	assert.Equal(t, "pdf", decoded.Type)
	assert.Equal(t, int64(8), decoded.Data.Stats.TotalUsers)
}

func TestRenderExportUnknownFormatFallsBackToJSON(t *testing.T) {
	out, err := RenderExport(exportBundle(), enums.ExportFormat("xlsx"), testNow)
	require.NoError(t, err)
	assert.Equal(t, enums.ExportFormatJSON, out.Format)
	assert.Equal(t, "application/json", out.ContentType)
}

func TestRenderExportRequiresBundle(t *testing.T) {
	_, err := RenderExport(nil, enums.ExportFormatCSV, testNow)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type fakeReports struct {
	report  *storefront.Report
	err     error
	formats []string
	queries []storefront.AnalyticsQuery
}

func (f *fakeReports) Report(_ context.Context, q storefront.AnalyticsQuery, format string) (*storefront.Report, error) {
	f.formats = append(f.formats, format)
	f.queries = append(f.queries, q)
	return f.report, f.err
}

func TestExportPrefersStorefrontReport(t *testing.T) {
	reports := &fakeReports{report: &storefront.Report{ContentType: "application/pdf", Body: []byte("%PDF-1.7")}}
	svc := newTestService(t, ServiceParams{Reports: reports})

	out, err := svc.Export(context.Background(), types.DashboardRequest{RangeKey: "monthly"}, enums.ExportFormatPDF)
	require.NoError(t, err)

	assert.True(t, out.Remote)
	assert.False(t, out.Placeholder)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.Equal(t, "analytics-2025-05-14.pdf", out.Filename)
	assert.Equal(t, "%PDF-1.7", string(out.Body))
	assert.Equal(t, []string{"pdf"}, reports.formats)
	assert.Equal(t, "monthly", reports.queries[0].Period)
}

func TestExportFallsBackToLocalRender(t *testing.T) {
	reports := &fakeReports{err: pkgerrors.New(pkgerrors.CodeDependency, "reports/generate request failed")}
	svc := newTestService(t, ServiceParams{Reports: reports})

	out, err := svc.Export(context.Background(), types.DashboardRequest{RangeKey: "weekly"}, enums.ExportFormatCSV)
	require.NoError(t, err)

	assert.False(t, out.Remote)
	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)
	assert.Equal(t, "analytics-2025-05-14.csv", out.Filename)
	assert.True(t, strings.HasPrefix(string(out.Body), "Metric,Value,Trend\n"))
	assert.Len(t, reports.formats, 1)
}

func TestExportWithoutReportsRendersLocally(t *testing.T) {
	svc := newTestService(t, ServiceParams{})
	out, err := svc.Export(context.Background(), types.DashboardRequest{}, enums.ExportFormat("xlsx"))
	require.NoError(t, err)
	assert.False(t, out.Remote)
	assert.Equal(t, enums.ExportFormatJSON, out.Format)
}

func TestExportEmptyReportContentTypeUsesFormat(t *testing.T) {
	reports := &fakeReports{report: &storefront.Report{Body: []byte("a,b\n")}}
	svc := newTestService(t, ServiceParams{Reports: reports})

	out, err := svc.Export(context.Background(), types.DashboardRequest{}, enums.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)
}

func TestRenderExportSmallNegativeTrendPrintsZero(t *testing.T) {
	b := exportBundle()
	b.Stats.UsersTrend = aggregate.Round1(-0.04)

	out, err := RenderExport(b, enums.ExportFormatCSV, testNow)
	require.NoError(t, err)
	assert.Contains(t, string(out.Body), "Users,8,0%\n")

	out, err = RenderExport(b, enums.ExportFormatJSON, testNow)
	require.NoError(t, err)
	assert.Contains(t, string(out.Body), `"usersTrend": 0,`)
	assert.NotContains(t, string(out.Body), `"usersTrend": -0`)
}
