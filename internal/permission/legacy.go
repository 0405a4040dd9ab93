package permission

import (
	"encoding/json"
	"fmt"
	"io"
)

type legacyRecord struct {
	RollNumber  string `json:"rollno"`
	Branch      string `json:"branch"`
	Reason      string `json:"reason"`
	Email       string `json:"email"`
	SubmittedAt any    `json:"submitted_at"`
}

// ReadLegacy decodes a JSON array of exported documents. submitted_at is
// kept exactly as found: strings become text timestamps, null or a missing
// key is absent, and any other JSON value is kept as an unsupported value.
func ReadLegacy(r io.Reader) ([]NewRecord, error) {
	var in []legacyRecord
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode legacy records: %w", err)
	}
	out := make([]NewRecord, 0, len(in))
	for _, l := range in {
		out = append(out, NewRecord{
			RollNumber:  l.RollNumber,
			Branch:      l.Branch,
			Reason:      l.Reason,
			Email:       l.Email,
			SubmittedAt: RawFrom(l.SubmittedAt),
		})
	}
	return out, nil
}
