package fs

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/harvest"
)

// Ensure Exporter implements harvest.Exporter at compile time.
var _ harvest.Exporter = (*Exporter)(nil)

// FinalTimeFormat qualifies final snapshot names.
const FinalTimeFormat = "20060102_150405"

// Exporter writes <prefix>_latest.{json,csv} and
// <prefix>_<timestamp>.{json,csv} into a directory.
type Exporter struct {
	dir    string
	prefix string
	logger *slog.Logger

	mu           sync.Mutex
	lastChecksum string
	lastLatest   *harvest.Export
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(dir, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		prefix: prefix,
		logger: logger,
	}
}

// LatestPath returns the location of the latest structured snapshot. A
// file ResultStore loads from this path.
func LatestPath(dir, prefix string) string {
	return filepath.Join(dir, prefix+"_latest.json")
}

// WriteLatest overwrites the latest artifacts. The write is skipped when
// the structured document is identical to the one this exporter last wrote.
func (e *Exporter) WriteLatest(ctx context.Context, entries []*harvest.Entry) (*harvest.Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structured, err := encodeStructured(entries)
	if err != nil {
		return nil, err
	}
	checksum := Checksum(structured)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastLatest != nil && checksum == e.lastChecksum {
		out := *e.lastLatest
		return &out, nil
	}

	export, err := e.write(filepath.Join(e.dir, e.prefix+"_latest"), entries, structured, checksum)
	if err != nil {
		return nil, err
	}
	e.lastChecksum = checksum
	last := *export
	e.lastLatest = &last
	return export, nil
}

// WriteFinal writes a snapshot named after at. If that name is already
// taken, a numeric suffix is added.
func (e *Exporter) WriteFinal(ctx context.Context, entries []*harvest.Entry, at time.Time) (*harvest.Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structured, err := encodeStructured(entries)
	if err != nil {
		return nil, err
	}

	stem, err := e.finalStem(at)
	if err != nil {
		return nil, err
	}

	return e.write(stem, entries, structured, Checksum(structured))
}

func (e *Exporter) finalStem(at time.Time) (string, error) {
	base := filepath.Join(e.dir, e.prefix+"_"+at.Format(FinalTimeFormat))
	for n := 1; ; n++ {
		stem := base
		if n > 1 {
			stem = fmt.Sprintf("%s_%d", base, n)
		}
		taken, err := exists(stem + ".json")
		if err != nil {
			return "", err
		}
		if !taken {
			if taken, err = exists(stem + ".csv"); err != nil {
				return "", err
			}
		}
		if !taken {
			return stem, nil
		}
	}
}

func (e *Exporter) write(stem string, entries []*harvest.Entry, structured []byte, checksum string) (*harvest.Export, error) {
	export := &harvest.Export{
		StructuredPath: stem + ".json",
		Entries:        len(entries),
		Checksum:       checksum,
	}

	if err := WriteFileAtomic(export.StructuredPath, structured, 0o644); err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "writing %s", export.StructuredPath)
	}

	rows := harvest.Flatten(entries)
	if len(rows) == 0 {
		// A csv left over from an earlier snapshot would disagree with the json.
		if err := os.Remove(stem + ".csv"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, harvest.WrapError(harvest.EINTERNAL, err, "removing stale %s.csv", stem)
		}
		e.logger.Warn("no sub-items to flatten, csv not written", "path", stem+".csv", "entries", len(entries))
		return export, nil
	}

	flat, err := encodeFlat(rows)
	if err != nil {
		return nil, err
	}
	export.FlatPath = stem + ".csv"
	export.Rows = len(rows)
	if err := WriteFileAtomic(export.FlatPath, flat, 0o644); err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "writing %s", export.FlatPath)
	}

	return export, nil
}

// Checksum returns the hex xxhash of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// encodeStructured renders entries as an indented JSON array. Missing
// collections are written as empty arrays and objects, never null.
func encodeStructured(entries []*harvest.Entry) ([]byte, error) {
	out := make([]harvest.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, harvest.Entry{
			Name:     e.Name,
			URL:      e.URL,
			Triggers: normalizeItems(e.Triggers),
			Actions:  normalizeItems(e.Actions),
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "encoding results")
	}
	return data, nil
}

func normalizeItems(items []harvest.SubItem) []harvest.SubItem {
	out := make([]harvest.SubItem, 0, len(items))
	for _, item := range items {
		if item.Attributes == nil {
			item.Attributes = map[string]string{}
		}
		out = append(out, item)
	}
	return out
}

func encodeFlat(rows []harvest.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(harvest.FlatHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "encoding rows")
	}
	return buf.Bytes(), nil
}

// ReadFlat parses a flattened artifact back into rows.
func ReadFlat(path string) ([]harvest.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, harvest.WrapError(harvest.EMALFORMED, err, "reading %s", path)
	}
	if len(records) == 0 {
		return nil, harvest.Errorf(harvest.EMALFORMED, "%s has no header", path)
	}

	rows := make([]harvest.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(harvest.FlatHeader) {
			return nil, harvest.Errorf(harvest.EMALFORMED, "%s: expected %d fields, got %d", path, len(harvest.FlatHeader), len(rec))
		}
		rows = append(rows, harvest.Row{
			EntryName:   rec[0],
			EntryURL:    rec[1],
			Kind:        harvest.Kind(rec[2]),
			Name:        rec[3],
			Description: rec[4],
			Attributes:  rec[5],
		})
	}
	return rows, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	} else if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
