package entity

import "time"

// Period is a rollup granularity. Realtime lives only in the counter plane;
// the durable rollup table holds hourly and coarser buckets.
type Period string

const (
	PeriodRealtime Period = "realtime"
	PeriodHourly   Period = "hourly"
	PeriodDaily    Period = "daily"
	PeriodWeekly   Period = "weekly"
	PeriodMonthly  Period = "monthly"
	PeriodYearly   Period = "yearly"
)

// RollupPeriods are the granularities the aggregator maintains durably. An
// event contributes to its hourly bucket and transitively to every coarser
// bucket containing it.
var RollupPeriods = []Period{
	PeriodHourly,
	PeriodDaily,
	PeriodWeekly,
	PeriodMonthly,
	PeriodYearly,
}

// BucketStart truncates t (in UTC) to the start of the bucket owning it for
// the given period. Weeks start on Monday.
func BucketStart(p Period, t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case PeriodHourly:
		return t.Truncate(time.Hour)
	case PeriodDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodYearly:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Hour)
	}
}

// PrevBucketStart returns the start of the bucket immediately before the one
// owning t. Used for period-over-period comparisons.
func PrevBucketStart(p Period, t time.Time) time.Time {
	start := BucketStart(p, t)
	switch p {
	case PeriodHourly:
		return start.Add(-time.Hour)
	case PeriodDaily:
		return start.AddDate(0, 0, -1)
	case PeriodWeekly:
		return start.AddDate(0, 0, -7)
	case PeriodMonthly:
		return start.AddDate(0, -1, 0)
	case PeriodYearly:
		return start.AddDate(-1, 0, 0)
	default:
		return start.Add(-time.Hour)
	}
}

func (p Period) Valid() bool {
	switch p {
	case PeriodRealtime, PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}
