package settings

import (
	"fmt"

	"github.com/wonny/revops/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(s *Settings) error {
	// === Meta ===
	if s.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	// === Pipeline ===
	if len(s.Pipeline.ExcludedStages) == 0 {
		return ValidationError{"pipeline.excluded_stages", "required"}
	}
	// 종결 스테이지는 반드시 파이프라인에서 제외
	for _, required := range []string{contracts.StageClosedWon, contracts.StageClosedLost} {
		if !s.Pipeline.Excludes(required) {
			return ValidationError{"pipeline.excluded_stages", fmt.Sprintf("must include %q", required)}
		}
	}

	// === Attribution ===
	if s.Attribution.StaleBaselineDays < 1 {
		return ValidationError{"attribution.stale_baseline_days", "must be >= 1"}
	}
	if s.Attribution.WalkIntervalDays < 1 {
		return ValidationError{"attribution.walk_interval_days", "must be >= 1"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(s *Settings) []Warning {
	var warnings []Warning

	if s.Attribution.StaleBaselineDays > 30 {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_BASELINE",
			Message: "stale_baseline_days > 30: baseline은 연결 시점과 동떨어진 스냅샷이 될 수 있음",
		})
	}

	if s.Attribution.WalkIntervalDays > 31 {
		warnings = append(warnings, Warning{
			Code:    "COARSE_WALK",
			Message: "walk_interval_days > 31: pipeline walk 해상도가 너무 낮음",
		})
	}

	if !s.Pipeline.Excludes(contracts.StageQualification) {
		warnings = append(warnings, Warning{
			Code:    "QUALIFICATION_IN_PIPELINE",
			Message: "Validation/Introduction이 파이프라인 집계에 포함됨: 리포트 비교 시 주의",
		})
	}

	return warnings
}
