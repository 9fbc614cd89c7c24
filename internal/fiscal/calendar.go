package fiscal

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// 회계연도는 2월 1일 시작, 분기는 2/5/8/11월 시작
// FY2025 = 2025-02-01 ~ 2026-01-31

// Relative period tokens
const (
	TokenMonthToDate = "month-to-date"
	TokenFQToDate    = "fq-to-date"
	TokenFYToDate    = "fy-to-date"
	TokenLastFQ      = "last-fq"
	TokenLastFY      = "last-fy"
)

var lastMonthsRe = regexp.MustCompile(`^last-(\d+)-months$`)

// YearOf returns the fiscal year containing t, labeled by the calendar
// year of its February start
func YearOf(t time.Time) int {
	d := DateOnly(t)
	if d.Month() >= time.February {
		return d.Year()
	}
	return d.Year() - 1
}

// YearStart returns February 1 of fiscal year fy
func YearStart(fy int) time.Time {
	return time.Date(fy, time.February, 1, 0, 0, 0, 0, time.UTC)
}

// YearRange returns the full fiscal year as [Feb 1, next Feb 1)
func YearRange(fy int) Range {
	return Range{Start: YearStart(fy), End: YearStart(fy + 1)}
}

// QuarterOf returns the fiscal year and quarter (1-4) containing t
func QuarterOf(t time.Time) (fy int, quarter int) {
	d := DateOnly(t)
	fy = YearOf(d)
	monthsSince := (int(d.Month()) - int(time.February) + 12) % 12
	return fy, monthsSince/3 + 1
}

// QuarterStart returns the first day of quarter q in fiscal year fy
func QuarterStart(fy, quarter int) time.Time {
	return YearStart(fy).AddDate(0, (quarter-1)*3, 0)
}

// QuarterRange returns quarter q of fiscal year fy as a half-open range
func QuarterRange(fy, quarter int) Range {
	start := QuarterStart(fy, quarter)
	return Range{Start: start, End: start.AddDate(0, 3, 0)}
}

// YearLabel formats a fiscal year for reports
func YearLabel(fy int) string {
	return fmt.Sprintf("FY%d", fy)
}

// QuarterLabel formats a fiscal quarter for reports
func QuarterLabel(fy, quarter int) string {
	return fmt.Sprintf("FY%dQ%d", fy, quarter)
}

// Resolve turns a relative period token and a reference instant into a
// half-open [start, end) range. "To date" ranges end at the reference
// date itself (exclusive), so they are empty on the period's first day.
// "Last" ranges are fully bounded and never touch the current period.
// ⭐ SSOT: 상대 기간 해석은 이 함수만
func Resolve(token string, ref time.Time) (Range, error) {
	d := DateOnly(ref)

	switch token {
	case TokenMonthToDate:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: start, End: d}, nil

	case TokenFQToDate:
		fy, q := QuarterOf(d)
		return Range{Start: QuarterStart(fy, q), End: d}, nil

	case TokenFYToDate:
		return Range{Start: YearStart(YearOf(d)), End: d}, nil

	case TokenLastFQ:
		fy, q := QuarterOf(d)
		current := QuarterStart(fy, q)
		return Range{Start: current.AddDate(0, -3, 0), End: current}, nil

	case TokenLastFY:
		fy := YearOf(d)
		return Range{Start: YearStart(fy - 1), End: YearStart(fy)}, nil
	}

	if m := lastMonthsRe.FindStringSubmatch(token); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return Range{}, fmt.Errorf("invalid month count in period token %q", token)
		}
		return Range{Start: d.AddDate(0, -n, 0), End: d}, nil
	}

	return Range{}, fmt.Errorf("unknown period token %q", token)
}
