package permission

import (
	"encoding/csv"
	"io"
	"time"
)

// Format renders ts as DD/MM/YYYY HH:MM:SS on its own wall clock.
func Format(ts Timestamp) string {
	return ts.Time().Format(DisplayLayout)
}

// ExportColumns is the fixed header order of export rows.
var ExportColumns = []string{"Roll Number", "Email", "Branch", "Reason", "Submitted At"}

// ExportRow is one flat export line. Field order matches ExportColumns.
type ExportRow struct {
	RollNumber  string `json:"Roll Number"`
	Email       string `json:"Email"`
	Branch      string `json:"Branch"`
	Reason      string `json:"Reason"`
	SubmittedAt string `json:"Submitted At"`
}

// Values returns the row cells in ExportColumns order.
func (r ExportRow) Values() []string {
	return []string{r.RollNumber, r.Email, r.Branch, r.Reason, r.SubmittedAt}
}

// WriteCSV writes a header row followed by rows.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportRowFor flattens rec. Submitted At is empty when the timestamp is
// absent or unparsable.
func ExportRowFor(rec Record, loc *time.Location) ExportRow {
	row := ExportRow{
		RollNumber: rec.RollNumber,
		Email:      rec.Email,
		Branch:     rec.Branch,
		Reason:     rec.Reason,
	}
	if ts, err := Normalize(rec.SubmittedAt, loc); err == nil {
		row.SubmittedAt = Format(ts)
	}
	return row
}

// Row is a record prepared for display, with the identifier stringified and
// the timestamp rendered.
type Row struct {
	ID          string `json:"_id"`
	RollNumber  string `json:"rollno"`
	Branch      string `json:"branch"`
	Reason      string `json:"reason"`
	Email       string `json:"email"`
	SubmittedAt string `json:"submitted_at"`
}

// RowFor renders rec for display. Unparsable text timestamps are shown as
// stored so operators can see what is wrong with them.
func RowFor(rec Record, loc *time.Location) Row {
	row := Row{
		ID:         rec.ID,
		RollNumber: rec.RollNumber,
		Branch:     rec.Branch,
		Reason:     rec.Reason,
		Email:      rec.Email,
	}
	if ts, err := Normalize(rec.SubmittedAt, loc); err == nil {
		row.SubmittedAt = Format(ts)
	} else if s, ok := rec.SubmittedAt.Text(); ok {
		row.SubmittedAt = s
	}
	return row
}

// Rows renders records in order.
func Rows(records []Record, loc *time.Location) []Row {
	out := make([]Row, 0, len(records))
	for _, rec := range records {
		out = append(out, RowFor(rec, loc))
	}
	return out
}
