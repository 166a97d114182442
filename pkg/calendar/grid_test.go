package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul, _ = time.LoadLocation("Asia/Seoul")

func assertGapless(t *testing.T, dates []Date) {
	t.Helper()
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, dates[i-1].AddDays(1), dates[i], "gap between %s and %s", dates[i-1], dates[i])
	}
}

func TestMonthGrid(t *testing.T) {
	refs := []Date{
		MustParseDate("2024-06-05"),
		MustParseDate("2024-02-29"),
		MustParseDate("2023-02-01"), // Wednesday start, 28 days
		MustParseDate("2026-02-15"), // Feb 1 2026 is a Sunday
		MustParseDate("2024-12-31"),
		MustParseDate("2025-03-31"),
	}
	for _, ws := range []WeekStart{WeekStart(time.Sunday), WeekStart(time.Monday), WeekStart(time.Saturday)} {
		for _, ref := range refs {
			t.Run(ref.String()+"/"+ws.Weekday().String(), func(t *testing.T) {
				grid := MonthGrid(ref, ws)

				require.Len(t, grid, MonthGridSize)
				assertGapless(t, grid)
				assert.Equal(t, ws.Weekday(), grid[0].Weekday())
				assert.Contains(t, grid, ref.FirstOfMonth())
				last := Date{Year: ref.Year, Month: ref.Month, Day: DaysIn(ref.Year, ref.Month)}
				assert.Contains(t, grid, last)
			})
		}
	}
}

func TestMonthGrid_StartsOnFirstWhenFirstIsWeekStart(t *testing.T) {
	grid := MonthGrid(MustParseDate("2026-02-15"), DefaultWeekStart)

	assert.Equal(t, MustParseDate("2026-02-01"), grid[0])
	assert.Equal(t, MustParseDate("2026-03-14"), grid[41])
}

func TestMonthGrid_June2024(t *testing.T) {
	grid := MonthGrid(MustParseDate("2024-06-05"), DefaultWeekStart)

	// June 1st 2024 is a Saturday.
	assert.Equal(t, MustParseDate("2024-05-26"), grid[0])
	assert.Equal(t, MustParseDate("2024-07-06"), grid[41])
}

func TestWeekDates(t *testing.T) {
	tests := []struct {
		name  string
		ref   Date
		ws    WeekStart
		first Date
	}{
		{"sunday start mid-week", MustParseDate("2024-06-05"), WeekStart(time.Sunday), MustParseDate("2024-06-02")},
		{"sunday start on sunday", MustParseDate("2024-06-02"), WeekStart(time.Sunday), MustParseDate("2024-06-02")},
		{"sunday start on saturday", MustParseDate("2024-06-08"), WeekStart(time.Sunday), MustParseDate("2024-06-02")},
		{"monday start crosses year", MustParseDate("2025-01-01"), WeekStart(time.Monday), MustParseDate("2024-12-30")},
		{"monday start on sunday", MustParseDate("2024-06-09"), WeekStart(time.Monday), MustParseDate("2024-06-03")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := WeekDates(tt.ref, tt.ws)

			require.Len(t, week, WeekSize)
			assertGapless(t, week)
			assert.Equal(t, tt.first, week[0])
			assert.Equal(t, tt.ws.Weekday(), week[0].Weekday())
			assert.Contains(t, week, tt.ref)
		})
	}
}

func TestDates(t *testing.T) {
	ref := MustParseDate("2024-06-05")

	assert.Len(t, Dates(ref, Monthly, DefaultWeekStart), 42)
	assert.Len(t, Dates(ref, Weekly, DefaultWeekStart), 7)
	assert.Equal(t, []Date{ref}, Dates(ref, Daily, DefaultWeekStart))
}

func TestNavigate(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		g         Granularity
		direction int
		want      string
	}{
		{"month forward clamps to leap day", "2024-01-31", Monthly, 1, "2024-02-29"},
		{"month forward clamps non leap", "2023-01-31", Monthly, 1, "2023-02-28"},
		{"month back keeps day", "2024-03-15", Monthly, -1, "2024-02-15"},
		{"month back clamps", "2024-03-31", Monthly, -1, "2024-02-29"},
		{"month forward across year", "2024-12-10", Monthly, 1, "2025-01-10"},
		{"month back across year", "2025-01-10", Monthly, -1, "2024-12-10"},
		{"week forward", "2024-06-05", Weekly, 1, "2024-06-12"},
		{"week back across month", "2024-06-05", Weekly, -1, "2024-05-29"},
		{"day forward across month", "2024-06-30", Daily, 1, "2024-07-01"},
		{"day back across year", "2025-01-01", Daily, -1, "2024-12-31"},
		{"large direction uses sign", "2024-06-05", Daily, 5, "2024-06-06"},
		{"zero direction is identity", "2024-06-05", Monthly, 0, "2024-06-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Navigate(MustParseDate(tt.ref), tt.g, tt.direction)
			assert.Equal(t, MustParseDate(tt.want), got)
		})
	}
}

func TestNavigate_MonthAlwaysAdvancesByOne(t *testing.T) {
	start := MustParseDate("2023-01-31")
	d := start
	for i := 1; i <= 24; i++ {
		d = Navigate(d, Monthly, 1)
		want := NewDate(start.Year, start.Month+time.Month(i), 1)
		assert.Equal(t, want.Year, d.Year)
		assert.Equal(t, want.Month, d.Month)
	}
}

func TestParseGranularity(t *testing.T) {
	assert.Equal(t, Weekly, ParseGranularity("weekly"))
	assert.Equal(t, Daily, ParseGranularity(" DAILY "))
	assert.Equal(t, Monthly, ParseGranularity("monthly"))
	assert.Equal(t, Monthly, ParseGranularity(""))
	assert.Equal(t, Monthly, ParseGranularity("yearly"))
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, WeekStart(time.Sunday), ParseWeekStart("sunday"))
	assert.Equal(t, WeekStart(time.Monday), ParseWeekStart("Monday"))
	assert.Equal(t, WeekStart(time.Saturday), ParseWeekStart("sat"))
	assert.Equal(t, DefaultWeekStart, ParseWeekStart("someday"))
	assert.Equal(t, DefaultWeekStart, ParseWeekStart(""))
}

func TestMonthsCovered(t *testing.T) {
	grid := MonthGrid(MustParseDate("2024-06-05"), DefaultWeekStart)

	assert.Equal(t, []YearMonth{{2024, time.May}, {2024, time.June}, {2024, time.July}}, MonthsCovered(grid))
	assert.Equal(t, []YearMonth{{2024, time.June}}, MonthsCovered([]Date{MustParseDate("2024-06-05")}))
}

func TestTitle(t *testing.T) {
	ref := MustParseDate("2024-06-05")

	assert.Equal(t, "June 2024", Title(ref, Monthly, DefaultWeekStart))
	assert.Equal(t, "Jun 2 - Jun 8", Title(ref, Weekly, DefaultWeekStart))
	assert.Equal(t, "Wednesday, June 5, 2024", Title(ref, Daily, DefaultWeekStart))
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, WeekdayLabels(WeekStart(time.Monday)))
}
