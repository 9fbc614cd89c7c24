package settings

import (
	"github.com/wonny/revops/internal/contracts"
)

// Settings는 분석 정책의 전체 설정
// ⭐ SSOT: 집계에 영향을 주는 정책 값은 전부 여기서만
type Settings struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Pipeline    Pipeline    `yaml:"pipeline" json:"pipeline"`
	Attribution Attribution `yaml:"attribution" json:"attribution"`
	Duplicates  Duplicates  `yaml:"duplicates" json:"duplicates"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Pipeline controls which stages count as open pipeline
type Pipeline struct {
	// Stages excluded from pipeline value / active count / avg deal size
	ExcludedStages []string `yaml:"excluded_stages" json:"excluded_stages"`

	// The qualification stage stays out of pipeline aggregates but may
	// still appear in closing-probability funnels. Kept as an explicit
	// choice instead of guessing the source system's intent.
	FunnelIncludesQualification bool `yaml:"funnel_includes_qualification" json:"funnel_includes_qualification"`
}

// Excludes reports whether a stage is excluded from pipeline aggregates
func (p Pipeline) Excludes(stage string) bool {
	for _, s := range p.ExcludedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// Attribution controls campaign baseline and pipeline-walk policy
type Attribution struct {
	// Baseline snapshot farther than this from the requested date is
	// stale and forces the Closed-Lost bucket
	StaleBaselineDays int `yaml:"stale_baseline_days" json:"stale_baseline_days"`

	// Pipeline walk interval width
	WalkIntervalDays int `yaml:"walk_interval_days" json:"walk_interval_days"`
}

// Duplicates controls duplicate-opportunity detection
type Duplicates struct {
	NormalizeNames bool `yaml:"normalize_names" json:"normalize_names"`
}

// Default returns the settings used when no policy file exists
func Default() *Settings {
	return &Settings{
		Meta: Meta{
			ProfileID: "default",
			Version:   "1",
		},
		Pipeline: Pipeline{
			ExcludedStages: []string{
				contracts.StageClosedWon,
				contracts.StageClosedLost,
				contracts.StageQualification,
			},
			FunnelIncludesQualification: true,
		},
		Attribution: Attribution{
			StaleBaselineDays: 7,
			WalkIntervalDays:  7,
		},
		Duplicates: Duplicates{
			NormalizeNames: true,
		},
	}
}
