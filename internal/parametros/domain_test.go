package parametros

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsKeepJSONOrder(t *testing.T) {
	var fields Fields
	require.NoError(t, json.Unmarshal([]byte(`{"rate":0.075,"bracket_1_limit":2000,"deduction":169.44}`), &fields))
	assert.Equal(t, []string{"rate", "bracket_1_limit", "deduction"}, fields.Names())

	out, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.Equal(t, `{"rate":0.075,"bracket_1_limit":2000,"deduction":169.44}`, string(out))
}

func TestFieldsRejectMalformedObjects(t *testing.T) {
	cases := map[string]string{
		"duplicate":  `{"rate":0.1,"rate":0.2}`,
		"string":     `{"rate":"0.1"}`,
		"nested":     `{"rate":{"value":0.1}}`,
		"not object": `[0.1]`,
		"bool":       `{"rate":true}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var fields Fields
			assert.Error(t, json.Unmarshal([]byte(body), &fields))
		})
	}
}

func TestFieldsNullAndEmpty(t *testing.T) {
	var fields Fields
	require.NoError(t, json.Unmarshal([]byte(`null`), &fields))
	assert.Nil(t, fields)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &fields))
	assert.NotNil(t, fields)
	assert.Empty(t, fields)

	out, err := json.Marshal(Fields(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestFieldsMergeKeepsPositions(t *testing.T) {
	base := Fields{{Name: "bracket_1_limit", Value: 2000}, {Name: "rate", Value: 0.075}}
	merged := base.Merge(Fields{{Name: "rate", Value: 0.08}, {Name: "deduction", Value: 150}})

	assert.Equal(t, Fields{
		{Name: "bracket_1_limit", Value: 2000},
		{Name: "rate", Value: 0.08},
		{Name: "deduction", Value: 150},
	}, merged)
	rate, _ := base.Get("rate")
	assert.Equal(t, 0.075, rate, "merge must not mutate the receiver")
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" irrf ")
	require.NoError(t, err)
	assert.Equal(t, KindIRRF, kind)

	kind, err = ParseKind("FGTS")
	require.NoError(t, err)
	assert.Equal(t, KindFGTS, kind)

	_, err = ParseKind("INSS")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeriodContains(t *testing.T) {
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	closed := Period{Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), End: &end}
	open := Period{Start: closed.Start}

	assert.False(t, closed.Contains(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)))
	assert.True(t, closed.Contains(time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)))
	assert.True(t, closed.Contains(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, closed.Contains(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, open.Contains(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodJSON(t *testing.T) {
	var p Period
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-02-01","end":"2024-12-31"}`), &p))
	require.NotNil(t, p.End)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-02-01","end":"2024-12-31"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start":"01/02/2024"}`), &p))
}

func TestRecordCloneIsDeep(t *testing.T) {
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	rec := Record{
		Fields:          Fields{{Name: "rate", Value: 0.08}},
		EffectivePeriod: &Period{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: &end},
	}
	clone := rec.Clone()
	clone.Fields[0].Value = 0.5
	*clone.EffectivePeriod.End = time.Time{}

	assert.Equal(t, 0.08, rec.Fields[0].Value)
	assert.Equal(t, end, *rec.EffectivePeriod.End)
}

func TestRecordAppliesOnWithoutPeriod(t *testing.T) {
	assert.True(t, Record{}.AppliesOn(time.Now()))
}
