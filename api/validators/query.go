package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/admin-analytics/internal/analytics/timerange"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
)

const maxForecastPeriods = 24

// DashboardQuery is the query string shared by the analytics endpoints.
type DashboardQuery struct {
	Range           string `query:"range" validate:"max=32"`
	From            string `query:"from"`
	To              string `query:"to"`
	ForecastPeriods int    `query:"forecastPeriods" validate:"gte=0,lte=24"`
	Format          string `query:"format"`
}

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseDashboardQuery reads and validates the analytics query string. Unknown
// range keys pass through and resolve to the default window downstream.
// Supplying both bounds without a range selects the custom range.
func ParseDashboardQuery(r *http.Request, defaultRange string) (DashboardQuery, error) {
	values := r.URL.Query()
	q := DashboardQuery{
		Range:  strings.TrimSpace(values.Get("range")),
		From:   strings.TrimSpace(values.Get("from")),
		To:     strings.TrimSpace(values.Get("to")),
		Format: strings.ToLower(strings.TrimSpace(values.Get("format"))),
	}

	periods, err := ParseQueryInt(r, "forecastPeriods", 0, 0, maxForecastPeriods)
	if err != nil {
		return DashboardQuery{}, err
	}
	q.ForecastPeriods = periods

	if err := validate.Struct(q); err != nil {
		return DashboardQuery{}, formatValidationErrors(err)
	}

	if q.Range == "" {
		if q.From != "" && q.To != "" {
			q.Range = "custom"
		} else {
			q.Range = defaultRange
		}
	}
	return q, nil
}

// Custom parses the custom bounds. It returns nil unless both are present.
func (q DashboardQuery) Custom() (*types.CustomRange, error) {
	if q.From == "" && q.To == "" {
		return nil, nil
	}
	start, ok := timerange.ParseBound(q.From)
	if q.From != "" && !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid from bound").WithDetails(map[string]string{"from": q.From})
	}
	end, ok := timerange.ParseBound(q.To)
	if q.To != "" && !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid to bound").WithDetails(map[string]string{"to": q.To})
	}
	if q.From == "" || q.To == "" {
		return nil, nil
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	return &types.CustomRange{Start: start, End: end}, nil
}

// ExportFormat is the requested export format. It defaults to csv and falls
// back to json for unrecognised values.
func (q DashboardQuery) ExportFormat() enums.ExportFormat {
	if q.Format == "" {
		return enums.ExportFormatCSV
	}
	f, err := enums.ParseExportFormat(q.Format)
	if err != nil {
		return enums.ExportFormatJSON
	}
	return f
}

// Request builds the orchestrator request.
func (q DashboardQuery) Request(session, requestID string) (types.DashboardRequest, error) {
	custom, err := q.Custom()
	if err != nil {
		return types.DashboardRequest{}, err
	}
	return types.DashboardRequest{
		RangeKey:        q.Range,
		Custom:          custom,
		ForecastPeriods: q.ForecastPeriods,
		Session:         session,
		RequestID:       requestID,
	}, nil
}
