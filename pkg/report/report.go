// Package report turns per-image results into batch CSV rows and JSON
// summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/plate-reader/pkg/types"
)

// Row statuses
const (
	StatusValidated   = "VALIDATED"
	StatusUnconfirmed = "UNCONFIRMED"
	StatusNoPlate     = "NO_PLATE_DETECTED"
)

// Header is the first CSV line of a batch result file
var Header = []string{"Filename", "Detected_Text", "Status", "Confidence"}

// Row is one line of a batch result file
type Row struct {
	Filename   string
	Text       string
	Status     string
	Confidence float64
}

// Record renders the row as CSV fields.
func (r Row) Record() []string {
	return []string{r.Filename, r.Text, r.Status, fmt.Sprintf("%.2f", r.Confidence)}
}

// Rows lists validated plates first, then unconfirmed readings, each in
// detection order. An image with neither yields a single NO_PLATE_DETECTED
// row so every processed file appears in the output.
func Rows(filename string, rep types.Report) []Row {
	rows := make([]Row, 0, len(rep.Valid)+len(rep.Invalid)+1)
	for _, e := range rep.Valid {
		rows = append(rows, Row{Filename: filename, Text: e.Text, Status: StatusValidated, Confidence: e.Confidence})
	}
	for _, e := range rep.Invalid {
		rows = append(rows, Row{Filename: filename, Text: e.Text, Status: StatusUnconfirmed, Confidence: e.Confidence})
	}
	if len(rows) == 0 {
		rows = append(rows, Row{Filename: filename, Text: "N/A", Status: StatusNoPlate})
	}
	return rows
}

// Writer streams batch rows as CSV
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

// NewWriter creates a CSV writer; the header is written with the first image.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header line once.
func (w *Writer) WriteHeader() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	return w.csv.Write(Header)
}

// Write appends the rows for one image.
func (w *Writer) Write(filename string, rep types.Report) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for _, row := range Rows(filename, rep) {
		if err := w.csv.Write(row.Record()); err != nil {
			return fmt.Errorf("write row for %s: %w", filename, err)
		}
	}
	return nil
}

// Flush writes buffered rows and reports any earlier write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Summary is the JSON record of one processed image
type Summary struct {
	RunID      string            `json:"run_id"`
	Source     string            `json:"source"`
	Output     string            `json:"output,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	Valid      []types.Entry     `json:"valid"`
	Invalid    []types.Entry     `json:"invalid"`
	Detections []types.Detection `json:"detections"`
}

// NewSummary wraps a report with a fresh run ID.
func NewSummary(source string, rep types.Report, elapsed time.Duration) Summary {
	s := Summary{
		RunID:      uuid.NewString(),
		Source:     source,
		CreatedAt:  time.Now().UTC(),
		ElapsedMS:  elapsed.Milliseconds(),
		Valid:      rep.Valid,
		Invalid:    rep.Invalid,
		Detections: rep.Detections,
	}
	if s.Valid == nil {
		s.Valid = []types.Entry{}
	}
	if s.Invalid == nil {
		s.Invalid = []types.Entry{}
	}
	if s.Detections == nil {
		s.Detections = []types.Detection{}
	}
	return s
}

// Save writes the summary as indented JSON.
func (s Summary) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
