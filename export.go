package harvest

import (
	"context"
	"encoding/json"
	"time"
)

// Export describes the artifacts written by one Exporter call.
type Export struct {
	// StructuredPath is the JSON document holding every entry.
	StructuredPath string

	// FlatPath is the CSV document with one row per sub-item.
	// Empty when the snapshot holds no sub-items and no CSV was written.
	FlatPath string

	Entries  int
	Rows     int
	Checksum string
}

// Exporter serializes the result collection in structured and flattened form.
type Exporter interface {
	// WriteLatest overwrites the continuously updated "latest" artifacts
	// with the given snapshot.
	WriteLatest(ctx context.Context, entries []*Entry) (*Export, error)

	// WriteFinal writes the snapshot under a name qualified by at. A final
	// snapshot is never overwritten.
	WriteFinal(ctx context.Context, entries []*Entry, at time.Time) (*Export, error)
}

// FlatHeader is the header row of the flattened form.
var FlatHeader = []string{"connector_name", "connector_url", "type", "name", "description", "attributes"}

// Row is one line of the flattened form.
type Row struct {
	EntryName   string
	EntryURL    string
	Kind        Kind
	Name        string
	Description string
	Attributes  string // JSON object
}

// Record returns the row's fields in FlatHeader order.
func (r Row) Record() []string {
	return []string{r.EntryName, r.EntryURL, string(r.Kind), r.Name, r.Description, r.Attributes}
}

// Flatten projects entries to rows: entry order, then triggers before
// actions, then encounter order. Entries without sub-items produce no rows.
func Flatten(entries []*Entry) []Row {
	var rows []Row
	for _, e := range entries {
		for _, kind := range Kinds {
			for _, item := range e.SubItems(kind) {
				rows = append(rows, Row{
					EntryName:   e.Name,
					EntryURL:    e.URL,
					Kind:        kind,
					Name:        item.Name,
					Description: item.Description,
					Attributes:  EncodeAttributes(item.Attributes),
				})
			}
		}
	}
	return rows
}

// EncodeAttributes encodes attrs as a JSON object with sorted keys.
// Nil and empty maps both encode as "{}".
func EncodeAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "{}"
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		// map[string]string always marshals
		return "{}"
	}
	return string(b)
}

// DecodeAttributes parses an attribute field written by EncodeAttributes.
func DecodeAttributes(s string) (map[string]string, error) {
	attrs := make(map[string]string)
	if s == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, WrapError(EMALFORMED, err, "invalid attributes %q", s)
	}
	return attrs, nil
}
