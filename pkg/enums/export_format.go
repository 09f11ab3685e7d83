package enums

import (
	"fmt"
	"strings"
)

// ExportFormat is the file format of an analytics export.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
	ExportFormatPDF  ExportFormat = "pdf"
)

var validExportFormats = []ExportFormat{
	ExportFormatCSV,
	ExportFormatJSON,
	ExportFormatPDF,
}

// String implements fmt.Stringer.
func (f ExportFormat) String() string {
	return string(f)
}

// IsValid reports whether the value is a known ExportFormat.
func (f ExportFormat) IsValid() bool {
	for _, candidate := range validExportFormats {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseExportFormat converts raw input into an ExportFormat.
func ParseExportFormat(value string) (ExportFormat, error) {
	normalized := ExportFormat(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid export format %q", value)
}

// ContentType is the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv; charset=utf-8"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}
