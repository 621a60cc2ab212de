// Package api holds the wire shapes exchanged with the file metadata query
// service. The types are plain data; behavior lives in internal packages.
package api

import (
	"fmt"
	"time"
)

// ResponseTypeSuccess is the only envelope type the explorer accepts.
const ResponseTypeSuccess = "SUCCESS"

// AnnotationResponse describes one annotation as served by the query service.
type AnnotationResponse struct {
	// DisplayName is the human-readable label.
	DisplayName string `json:"annotation_display_name"`
	// Name is the unique identifier used to look values up in file records.
	Name        string `json:"annotation_name"`
	Description string `json:"description"`
	// Type is one of the AnnotationType wire strings ("Date", "Number", ...).
	Type  string `json:"type"`
	Units string `json:"units,omitempty"`
	// Values lists every value observed for this annotation, in source order.
	Values []any `json:"values"`
}

// FileRecord is an opaque file document keyed by absolute index in a FileSet.
// Beyond annotation lookup the explorer does not interpret it.
type FileRecord map[string]any

// SuccessResponse is the envelope around every paged query result.
type SuccessResponse[T any] struct {
	Data         []T    `json:"data"`
	HasMore      bool   `json:"hasMore"`
	Offset       int    `json:"offset"`
	ResponseType string `json:"responseType"`
	TotalCount   int    `json:"totalCount"`
}

// FilePage is one page of file records.
type FilePage = SuccessResponse[FileRecord]

// NewFilePage wraps records in a success envelope starting at offset.
func NewFilePage(records []FileRecord, offset, total int) *FilePage {
	if records == nil {
		records = []FileRecord{}
	}
	return &FilePage{
		Data:         records,
		HasMore:      offset+len(records) < total,
		Offset:       offset,
		ResponseType: ResponseTypeSuccess,
		TotalCount:   total,
	}
}

// FileDetail is a read-only view over the well-known fields of a FileRecord.
type FileDetail struct {
	record FileRecord
}

// NewFileDetail wraps rec.
func NewFileDetail(rec FileRecord) FileDetail {
	return FileDetail{record: rec}
}

// ID returns the record's file_id, or "" when absent.
func (d FileDetail) ID() string { return d.str("file_id") }

// Name returns the record's file_name, falling back to the id.
func (d FileDetail) Name() string {
	if n := d.str("file_name"); n != "" {
		return n
	}
	return d.ID()
}

func (d FileDetail) Thumbnail() string  { return d.str("thumbnail") }
func (d FileDetail) UploadedBy() string { return d.str("uploadedBy") }

// Uploaded parses the record's upload timestamp. ok is false when the field
// is missing or not a recognisable time.
func (d FileDetail) Uploaded() (time.Time, bool) {
	raw, ok := d.record["uploaded"]
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(raw)
}

func (d FileDetail) str(key string) string {
	v, ok := d.record[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime interprets v as a point in time. Strings are tried against common
// ISO layouts; numbers are epoch milliseconds.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
