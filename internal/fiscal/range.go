package fiscal

import (
	"fmt"
	"time"
)

// Range is a half-open [Start, End) interval in calendar UTC.
// ⭐ SSOT: 기간 비교는 전부 이 타입의 메서드로만
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRange builds a validated custom range from explicit bounds
func NewRange(start, end time.Time) (Range, error) {
	start = DateOnly(start)
	end = DateOnly(end)
	if !start.Before(end) {
		return Range{}, fmt.Errorf("invalid range: start %s not before end %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return Range{Start: start, End: end}, nil
}

// Contains reports whether t falls inside [Start, End)
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ContainsPtr is Contains over an optional date; nil is never inside
func (r Range) ContainsPtr(t *time.Time) bool {
	if t == nil {
		return false
	}
	return r.Contains(*t)
}

// Overlaps reports whether two half-open ranges intersect
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// IsZero reports an unset range
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// DateOnly truncates an instant to its UTC calendar date.
// 실행 환경의 로컬 시간대에 절대 의존하지 않음
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
