package reference

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	jan10 := civil.Date{Year: 2025, Month: time.January, Day: 10}

	tests := []struct {
		name string
		raw  any
		want *civil.Date
	}{
		{"nil", nil, nil},
		{"compact string", "20250110", &jan10},
		{"compact with spaces", "  20250110 ", &jan10},
		{"compact bytes", []byte("20250110"), &jan10},
		{"compact int", 20250110, &jan10},
		{"compact int64", int64(20250110), &jan10},
		{"hyphenated", "2025-01-10", &jan10},
		{"driver time", time.Date(2025, 1, 10, 13, 45, 0, 0, time.UTC), &jan10},
		{"invalid calendar day", "20250230", nil},
		{"invalid hyphenated day", "2025-02-30", nil},
		{"short hyphenated", "2025-1-10", nil},
		{"seven digits", "2025011", nil},
		{"nine digits", "202501101", nil},
		{"letters", "2025O110", nil},
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"unsupported type", struct{}{}, nil},
		{"fractional float", 20250110.5, nil},
		{"zero time", time.Time{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestParseDate_NeverPanics(t *testing.T) {
	inputs := []any{"-", "--", "9999-99-99", "00000000", []byte{0xff, 0xfe}, int32(-1), float64(-20250110), (*time.Time)(nil)}
	for _, in := range inputs {
		assert.NotPanics(t, func() { ParseDate(in) })
	}
	assert.Nil(t, ParseDate("00000000"))
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		raw  any
		want string
	}{
		{"143000", "14:30"},
		{" 143000 ", "14:30"},
		{"93000", "09:30"},
		{"0930", "00:09"},
		{[]byte("081500"), "08:15"},
		{int64(93000), "09:30"},
		{"930", "-"},
		{"", "-"},
		{"12:30", "-"},
		{nil, "-"},
		{3.5, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.raw), "input %v", tt.raw)
	}
}
