package fiscal

import (
	"testing"
	"time"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestYearOf(t *testing.T) {
	tests := []struct {
		date time.Time
		fy   int
	}{
		{d(2025, 2, 1), 2025},
		{d(2025, 6, 15), 2025},
		{d(2025, 12, 31), 2025},
		{d(2026, 1, 31), 2025}, // January belongs to the previous FY
		{d(2026, 2, 1), 2026},
		{d(2025, 1, 1), 2024},
	}

	for _, tt := range tests {
		if got := YearOf(tt.date); got != tt.fy {
			t.Errorf("YearOf(%s) = %d, want %d", tt.date.Format("2006-01-02"), got, tt.fy)
		}
	}
}

func TestQuarterOf(t *testing.T) {
	tests := []struct {
		date    time.Time
		fy      int
		quarter int
	}{
		{d(2025, 2, 1), 2025, 1},
		{d(2025, 4, 30), 2025, 1},
		{d(2025, 5, 1), 2025, 2},
		{d(2025, 7, 31), 2025, 2},
		{d(2025, 8, 1), 2025, 3},
		{d(2025, 10, 31), 2025, 3},
		{d(2025, 11, 1), 2025, 4},
		{d(2026, 1, 15), 2025, 4}, // Q4 spans the calendar-year boundary
	}

	for _, tt := range tests {
		fy, q := QuarterOf(tt.date)
		if fy != tt.fy || q != tt.quarter {
			t.Errorf("QuarterOf(%s) = FY%d Q%d, want FY%d Q%d",
				tt.date.Format("2006-01-02"), fy, q, tt.fy, tt.quarter)
		}
	}
}

func TestQuarterRange_CoversWholeYear(t *testing.T) {
	year := YearRange(2025)

	// Four quarters must tile the fiscal year exactly
	prev := year.Start
	for q := 1; q <= 4; q++ {
		r := QuarterRange(2025, q)
		if !r.Start.Equal(prev) {
			t.Errorf("Q%d starts %s, want %s", q, r.Start, prev)
		}
		prev = r.End
	}
	if !prev.Equal(year.End) {
		t.Errorf("Q4 ends %s, want fiscal year end %s", prev, year.End)
	}
}

func TestResolve_FYToDate(t *testing.T) {
	// Reference scenario: fy-to-date on 2025-06-15
	r, err := Resolve(TokenFYToDate, d(2025, 6, 15))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !r.Start.Equal(d(2025, 2, 1)) {
		t.Errorf("start = %s, want 2025-02-01", r.Start.Format("2006-01-02"))
	}
	if !r.End.Equal(d(2025, 6, 15)) {
		t.Errorf("end = %s, want 2025-06-15", r.End.Format("2006-01-02"))
	}

	// Half-open: the reference date itself is outside
	if r.Contains(d(2025, 6, 15)) {
		t.Error("range must not contain its exclusive end")
	}
	if !r.Contains(d(2025, 6, 14)) {
		t.Error("range should contain the day before the end")
	}
	if !r.Contains(d(2025, 2, 1)) {
		t.Error("range should contain its inclusive start")
	}
}

func TestResolve_Tokens(t *testing.T) {
	ref := d(2025, 6, 15)

	tests := []struct {
		token string
		start time.Time
		end   time.Time
	}{
		{TokenMonthToDate, d(2025, 6, 1), d(2025, 6, 15)},
		{TokenFQToDate, d(2025, 5, 1), d(2025, 6, 15)},
		{TokenFYToDate, d(2025, 2, 1), d(2025, 6, 15)},
		{TokenLastFQ, d(2025, 2, 1), d(2025, 5, 1)},
		{TokenLastFY, d(2024, 2, 1), d(2025, 2, 1)},
		{"last-3-months", d(2025, 3, 15), d(2025, 6, 15)},
		{"last-12-months", d(2024, 6, 15), d(2025, 6, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			r, err := Resolve(tt.token, ref)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if !r.Start.Equal(tt.start) || !r.End.Equal(tt.end) {
				t.Errorf("Resolve(%s) = %s, want [%s, %s)",
					tt.token, r,
					tt.start.Format("2006-01-02"), tt.end.Format("2006-01-02"))
			}
		})
	}
}

// Last-FQ resolved in January must be the quarter before the one
// spanning the year boundary, fully in the past
func TestResolve_LastFQAcrossYearBoundary(t *testing.T) {
	r, err := Resolve(TokenLastFQ, d(2026, 1, 15))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !r.Start.Equal(d(2025, 8, 1)) || !r.End.Equal(d(2025, 11, 1)) {
		t.Errorf("last-fq in January = %s, want [2025-08-01, 2025-11-01)", r)
	}
	if r.Contains(d(2026, 1, 15)) {
		t.Error("last-fq must not touch the current period")
	}
}

func TestResolve_NeverDependsOnClockTime(t *testing.T) {
	// Same calendar date at different instants resolves identically
	morning := time.Date(2025, 6, 15, 0, 30, 0, 0, time.UTC)
	night := time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC)

	a, _ := Resolve(TokenFYToDate, morning)
	b, _ := Resolve(TokenFYToDate, night)

	if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
		t.Errorf("resolution depends on time of day: %s vs %s", a, b)
	}
}

func TestResolve_Invalid(t *testing.T) {
	for _, token := range []string{"", "yesterday", "last-0-months", "last--months", "last-x-months"} {
		if _, err := Resolve(token, d(2025, 6, 15)); err == nil {
			t.Errorf("Resolve(%q) expected error, got nil", token)
		}
	}
}

func TestRangeOverlaps(t *testing.T) {
	a := Range{Start: d(2025, 2, 1), End: d(2025, 5, 1)}

	tests := []struct {
		name  string
		other Range
		want  bool
	}{
		{"identical", a, true},
		{"contained", Range{Start: d(2025, 3, 1), End: d(2025, 4, 1)}, true},
		{"partial", Range{Start: d(2025, 4, 1), End: d(2025, 8, 1)}, true},
		{"adjacent after", Range{Start: d(2025, 5, 1), End: d(2025, 8, 1)}, false},
		{"adjacent before", Range{Start: d(2024, 11, 1), End: d(2025, 2, 1)}, false},
		{"disjoint", Range{Start: d(2026, 2, 1), End: d(2026, 5, 1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// Symmetric
			if got := tt.other.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRange(t *testing.T) {
	r, err := NewRange(d(2025, 2, 1), d(2025, 5, 1))
	if err != nil {
		t.Fatalf("NewRange failed: %v", err)
	}
	if !r.Contains(d(2025, 2, 1)) || r.Contains(d(2025, 5, 1)) {
		t.Error("expected [start, end) semantics")
	}

	if _, err := NewRange(d(2025, 5, 1), d(2025, 2, 1)); err == nil {
		t.Error("expected error for inverted bounds")
	}
	if _, err := NewRange(d(2025, 2, 1), d(2025, 2, 1)); err == nil {
		t.Error("expected error for empty custom range")
	}
}

func TestDateOnly_NormalizesToUTC(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// 2025-06-15 08:00 KST is 2025-06-14 23:00 UTC
	local := time.Date(2025, 6, 15, 8, 0, 0, 0, seoul)
	if got := DateOnly(local); !got.Equal(d(2025, 6, 14)) {
		t.Errorf("DateOnly(%s) = %s, want 2025-06-14 (UTC calendar)", local, got.Format("2006-01-02"))
	}
}
