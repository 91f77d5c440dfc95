package model

import "time"

type FlagKind string

const (
	FlagLowCompletion       FlagKind = "low_completion"
	FlagOverdue             FlagKind = "overdue"
	FlagDecliningTrend      FlagKind = "declining_trend"
	FlagInconsistentResults FlagKind = "inconsistent_results"
	FlagIrregularPattern    FlagKind = "irregular_pattern"
	FlagOverload            FlagKind = "overload"
	FlagUnderengagement     FlagKind = "underengagement"
	FlagLowFocus            FlagKind = "low_focus"
)

// SubjectGeneral 非科目维度的标记（学习习惯类）统一挂在该科目键下
const SubjectGeneral = "general"

const (
	SeverityMin = 1
	SeverityMax = 5
)

// AnalysisWindow 分析窗口，按计划周下标（含两端）
type AnalysisWindow struct {
	StartWeek int `json:"startWeek"`
	EndWeek   int `json:"endWeek"`
}

// IrregularityFlag 监控代理产出的异常标记
type IrregularityFlag struct {
	Subject  string   `json:"subject"`
	Kind     FlagKind `json:"kind"`
	Severity int      `json:"severity"` // 1-5
	Evidence string   `json:"evidence"`
}

// AgentReport 单个代理对一个窗口的分析结果，建议仅供参考，不自动执行
type AgentReport struct {
	Agent           string             `json:"agent"`
	Window          AnalysisWindow     `json:"window"`
	Flags           []IrregularityFlag `json:"flags"`
	Recommendations []string           `json:"recommendations"`
}

// SummaryFlag 按 (subject, kind) 去重后的聚合标记
type SummaryFlag struct {
	Subject      string   `json:"subject"`
	Kind         FlagKind `json:"kind"`
	Severity     int      `json:"severity"`     // 各代理最大值
	SupportCount int      `json:"supportCount"` // 提出该标记的代理数
	Evidence     string   `json:"evidence"`
}

// MonitoringSummary 三个代理报告合并后的监控摘要
type MonitoringSummary struct {
	ID              string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID       string        `gorm:"index;type:varchar(36);not null" json:"studentId"`
	PlanVersion     int           `gorm:"not null" json:"planVersion"`
	StartWeek       int           `gorm:"not null" json:"startWeek"`
	EndWeek         int           `gorm:"not null" json:"endWeek"`
	Flags           []SummaryFlag `gorm:"serializer:json;type:text" json:"flags"`
	Recommendations []string      `gorm:"serializer:json;type:text" json:"recommendations"`
	GeneratedAt     time.Time     `json:"generatedAt"`
}

func (MonitoringSummary) TableName() string {
	return "monitoring_summaries"
}
