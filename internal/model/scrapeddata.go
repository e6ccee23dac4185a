package model

import (
	"encoding/json"
	"time"
)

// ScrapedData is one extracted field for a page, upserted on
// (page_id, field_name). FieldValueMeta carries auxiliary structured data
// (e.g. a bulk price table) as an opaque JSON blob.
type ScrapedData struct {
	ID             string          `json:"id"`
	PageID         string          `json:"page_id"`
	FieldName      string          `json:"field_name"`
	FieldValue     string          `json:"field_value"`
	FieldValueMeta json.RawMessage `json:"field_value_meta,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
