package entity

import (
	"testing"
	"time"
)

func TestBucketStart(t *testing.T) {
	// Wednesday, 2026-03-18 14:37:21 UTC
	ref := time.Date(2026, 3, 18, 14, 37, 21, 0, time.UTC)

	cases := []struct {
		period Period
		want   time.Time
	}{
		{PeriodHourly, time.Date(2026, 3, 18, 14, 0, 0, 0, time.UTC)},
		{PeriodDaily, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)},
		{PeriodWeekly, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)}, // Monday
		{PeriodMonthly, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodYearly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			got := BucketStart(tc.period, ref)
			if !got.Equal(tc.want) {
				t.Errorf("BucketStart(%s) = %v, want %v", tc.period, got, tc.want)
			}
		})
	}
}

func TestBucketStartWeekOnMonday(t *testing.T) {
	// A Sunday must fall into the week starting the previous Monday.
	sunday := time.Date(2026, 3, 22, 10, 0, 0, 0, time.UTC)
	got := BucketStart(PeriodWeekly, sunday)
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("sunday bucket = %v, want %v", got, want)
	}

	// A Monday is its own bucket start.
	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if got := BucketStart(PeriodWeekly, monday); !got.Equal(monday) {
		t.Errorf("monday bucket = %v, want %v", got, monday)
	}
}

func TestBucketStartNormalizesZone(t *testing.T) {
	zone := time.FixedZone("UTC+7", 7*3600)
	local := time.Date(2026, 3, 19, 2, 30, 0, 0, zone) // 2026-03-18 19:30 UTC

	got := BucketStart(PeriodDaily, local)
	want := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("daily bucket across zones = %v, want %v", got, want)
	}
}

func TestPrevBucketStart(t *testing.T) {
	ref := time.Date(2026, 3, 18, 14, 37, 0, 0, time.UTC)

	cases := []struct {
		period Period
		want   time.Time
	}{
		{PeriodHourly, time.Date(2026, 3, 18, 13, 0, 0, 0, time.UTC)},
		{PeriodDaily, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)},
		{PeriodWeekly, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{PeriodMonthly, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodYearly, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			got := PrevBucketStart(tc.period, ref)
			if !got.Equal(tc.want) {
				t.Errorf("PrevBucketStart(%s) = %v, want %v", tc.period, got, tc.want)
			}
		})
	}
}

func TestPeriodValid(t *testing.T) {
	for _, p := range []Period{PeriodRealtime, PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if Period("quarterly").Valid() {
		t.Error("quarterly should not be valid")
	}
}
