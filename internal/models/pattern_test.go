package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatternObject(t *testing.T) {
	raw := []byte(`{"type":"weekly","interval":2,"daysOfWeek":[2],"maxOccurrences":5}`)

	p, err := ParsePattern(raw)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, FrequencyWeekly, p.Type)
	assert.Equal(t, 2, p.Interval)
	assert.Equal(t, []int{2}, p.DaysOfWeek)
	require.NotNil(t, p.MaxOccurrences)
	assert.Equal(t, 5, *p.MaxOccurrences)
}

func TestParsePatternDoublyEncoded(t *testing.T) {
	raw := []byte(`"{\"type\":\"monthly\",\"interval\":1,\"dayOfMonth\":31}"`)

	p, err := ParsePattern(raw)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, FrequencyMonthly, p.Type)
	require.NotNil(t, p.DayOfMonth)
	assert.Equal(t, 31, *p.DayOfMonth)
}

func TestParsePatternEndDate(t *testing.T) {
	raw := []byte(`{"type":"daily","interval":1,"endDate":"2025-06-30T00:00:00Z"}`)

	p, err := ParsePattern(raw)
	require.NoError(t, err)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), p.EndDate.UTC())
}

func TestParsePatternAbsent(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("  "), []byte("null")} {
		p, err := ParsePattern(raw)
		assert.NoError(t, err)
		assert.Nil(t, p)
	}
}

func TestParsePatternCorrupt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated json", `{"type":"weekly","interval":`},
		{"unknown type", `{"type":"fortnightly","interval":1}`},
		{"missing type", `{"interval":3}`},
		{"bad inner encoding", `"{\"type\":`},
		{"wrong shape", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern([]byte(tt.raw))
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}
}

func TestParsePatternDefaultsInterval(t *testing.T) {
	p, err := ParsePattern([]byte(`{"type":"daily"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Interval)
}

func TestParsePatternIgnoresIrrelevantFields(t *testing.T) {
	// Fields for other frequencies are tolerated, not rejected.
	p, err := ParsePattern([]byte(`{"type":"daily","interval":1,"daysOfWeek":[0,6],"dayOfMonth":12}`))
	require.NoError(t, err)
	assert.Equal(t, FrequencyDaily, p.Type)
}

func TestRawPatternScan(t *testing.T) {
	var p RawPattern
	require.NoError(t, p.Scan(`{"type":"daily"}`))
	assert.Equal(t, RawPattern(`{"type":"daily"}`), p)

	require.NoError(t, p.Scan(nil))
	assert.Nil(t, p)

	v, err := RawPattern(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
