// Package parametros administers the IRRF and FGTS tax-parameter tables used
// by payroll audits.
package parametros

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies a tax-parameter table.
type Kind string

const (
	// KindIRRF holds withholding-tax brackets.
	KindIRRF Kind = "IRRF"
	// KindFGTS holds severance-fund contribution rates.
	KindFGTS Kind = "FGTS"
)

// Kinds lists every supported table in display order.
func Kinds() []Kind {
	return []Kind{KindIRRF, KindFGTS}
}

// KindNames returns Kinds as plain strings for metric labels.
func KindNames() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// ParseKind accepts a kind in any letter case.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(raw))) {
	case KindIRRF:
		return KindIRRF, nil
	case KindFGTS:
		return KindFGTS, nil
	default:
		return "", fmt.Errorf("%w: unknown parameter kind %q", ErrNotFound, raw)
	}
}

// DateLayout is the wire format of effective period dates.
const DateLayout = "2006-01-02"

// Record is one versioned row of tax-rule configuration.
type Record struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Fields          Fields    `json:"fields"`
	EffectivePeriod *Period   `json:"effective_period,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AppliesOn reports whether the record is in force on day. Records without an
// effective period always apply.
func (r Record) AppliesOn(day time.Time) bool {
	if r.EffectivePeriod == nil {
		return true
	}
	return r.EffectivePeriod.Contains(day)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Fields = r.Fields.Clone()
	if r.EffectivePeriod != nil {
		p := r.EffectivePeriod.Clone()
		out.EffectivePeriod = &p
	}
	return out
}

// Period is an inclusive date range. A nil End leaves the period open.
type Period struct {
	Start time.Time
	End   *time.Time
}

type periodJSON struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Contains reports whether day falls within the period, comparing dates only.
func (p Period) Contains(day time.Time) bool {
	d := truncateDay(day)
	if d.Before(truncateDay(p.Start)) {
		return false
	}
	return p.End == nil || !d.After(truncateDay(*p.End))
}

// Clone returns a copy that does not share End.
func (p Period) Clone() Period {
	out := Period{Start: p.Start}
	if p.End != nil {
		end := *p.End
		out.End = &end
	}
	return out
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (p Period) MarshalJSON() ([]byte, error) {
	out := periodJSON{}
	if !p.Start.IsZero() {
		out.Start = p.Start.Format(DateLayout)
	}
	if p.End != nil {
		out.End = p.End.Format(DateLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses YYYY-MM-DD dates. A missing start is left zero for the
// validator to report.
func (p *Period) UnmarshalJSON(data []byte) error {
	var in periodJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Period{}
	if in.Start != "" {
		start, err := ParseDate(in.Start)
		if err != nil {
			return fmt.Errorf("effective_period.start: %w", err)
		}
		p.Start = start
	}
	if in.End != "" {
		end, err := ParseDate(in.End)
		if err != nil {
			return fmt.Errorf("effective_period.end: %w", err)
		}
		p.End = &end
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Field is one named numeric tax-rule attribute.
type Field struct {
	Name  string
	Value float64
}

// Fields is an ordered attribute mapping. JSON object order is kept on both
// decode and encode.
type Fields []Field

// Get returns the value stored under name.
func (f Fields) Get(name string) (float64, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return 0, false
}

// Names lists attribute names in order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for _, field := range f {
		names = append(names, field.Name)
	}
	return names
}

// Clone returns a copy that does not share backing storage.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Merge overlays changes onto f. Existing names keep their position, new
// names are appended in the order given.
func (f Fields) Merge(changes Fields) Fields {
	out := f.Clone()
	for _, change := range changes {
		replaced := false
		for i := range out {
			if out[i].Name == change.Name {
				out[i].Value = change.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, change)
		}
	}
	return out
}

// Map flattens the fields; order is lost.
func (f Fields) Map() map[string]float64 {
	out := make(map[string]float64, len(f))
	for _, field := range f {
		out[field.Name] = field.Value
	}
	return out
}

// MarshalJSON writes the fields as a JSON object in order.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of numbers, keeping key order. Duplicate
// names and non-numeric values are rejected.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("fields must be a JSON object")
	}
	out := Fields{}
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return errors.New("fields must be a JSON object")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("field %q appears more than once", name)
		}
		seen[name] = struct{}{}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("field %q must be a number", name)
		}
		value, err := num.Float64()
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out = append(out, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}
