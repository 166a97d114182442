package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		loc  *time.Location
		want string
	}{
		{"date only", "2024-06-05", seoul, "2024-06-05"},
		{"date only with spaces", " 2024-06-05 ", time.UTC, "2024-06-05"},
		{"utc instant late evening moves to next day in seoul", "2024-06-04T20:00:00Z", seoul, "2024-06-05"},
		{"utc instant stays in utc", "2024-06-04T20:00:00Z", time.UTC, "2024-06-04"},
		{"explicit offset", "2024-06-05T00:30:00+09:00", time.UTC, "2024-06-04"},
		{"fractional seconds", "2024-06-05T10:00:00.123Z", time.UTC, "2024-06-05"},
		{"local datetime without offset", "2024-06-05T23:59:59", seoul, "2024-06-05"},
		{"local datetime minutes only", "2024-06-05T09:00", seoul, "2024-06-05"},
		{"space separated", "2024-06-05 09:00:00", seoul, "2024-06-05"},
		{"nil location means utc", "2024-06-05T23:00:00-02:00", nil, "2024-06-06"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.text, tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, text := range []string{"", "   ", "06/05/2024", "not a date", "2024-13-01"} {
		_, err := ParseDate(text, seoul)
		assert.Error(t, err, text)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := MustParseDate("2024-02-28")

	assert.Equal(t, MustParseDate("2024-02-29"), d.AddDays(1))
	assert.Equal(t, MustParseDate("2024-03-01"), d.AddDays(2))
	assert.Equal(t, MustParseDate("2023-12-31"), MustParseDate("2024-01-01").AddDays(-1))
	assert.Equal(t, time.Wednesday, MustParseDate("2024-06-05").Weekday())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, MustParseDate("2024-03-01"), NewDate(2024, time.February, 30))
}

func TestDateOf_UsesGivenLocation(t *testing.T) {
	instant := time.Date(2024, 6, 4, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, MustParseDate("2024-06-05"), DateOf(instant, seoul))
	assert.Equal(t, MustParseDate("2024-06-04"), DateOf(instant, time.UTC))
}

func TestDate_In(t *testing.T) {
	got := MustParseDate("2024-06-05").In(seoul)

	assert.Equal(t, seoul, got.Location())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 5, got.Day())
}
