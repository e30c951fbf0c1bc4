package parametros

import (
	"encoding/json"
	"time"
)

// CreateRequest is the payload of POST /parametros/{kind}.
type CreateRequest struct {
	Kind            string  `json:"kind,omitempty"`
	Fields          Fields  `json:"fields" validate:"required,min=1"`
	EffectivePeriod *Period `json:"effective_period,omitempty"`
}

// UpdateRequest is the payload of PUT /parametros/{kind}/{id}. Fields are
// merged into the stored set; Version pins the expected current version.
type UpdateRequest struct {
	ID              string  `json:"id,omitempty"`
	Kind            string  `json:"kind,omitempty"`
	Fields          Fields  `json:"fields,omitempty" validate:"omitempty,min=1"`
	EffectivePeriod *Period `json:"effective_period,omitempty"`
	Version         *int64  `json:"version,omitempty" validate:"omitempty,min=1"`
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Deleted bool   `json:"deleted"`
}

// EffectiveSet holds the records in force on one date for every kind.
type EffectiveSet struct {
	Date    string            `json:"data"`
	Records map[Kind][]Record `json:"-"`
}

// MarshalJSON flattens Records into one key per kind.
func (s EffectiveSet) MarshalJSON() ([]byte, error) {
	body := map[string]any{"data": s.Date}
	for _, kind := range Kinds() {
		records := s.Records[kind]
		if records == nil {
			records = []Record{}
		}
		body[string(kind)] = records
	}
	return json.Marshal(body)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
