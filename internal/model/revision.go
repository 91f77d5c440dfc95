package model

import "time"

type OpKind string

const (
	OpAddTask          OpKind = "add_task"
	OpRemoveTask       OpKind = "remove_task"
	OpReallocateHours  OpKind = "reallocate_hours"
	OpChangeDueWeek    OpKind = "change_due_week"
	OpChangeDifficulty OpKind = "change_difficulty"
)

// OpCategory 操作类别，冲突裁决的维度之一：
// 教学类由教师最终拍板，日程类家长高于代理建议
type OpCategory string

const (
	CategoryPedagogical OpCategory = "pedagogical"
	CategoryScheduling  OpCategory = "scheduling"
)

func CategoryOf(kind OpKind) OpCategory {
	switch kind {
	case OpChangeDifficulty, OpAddTask, OpRemoveTask:
		return CategoryPedagogical
	default:
		return CategoryScheduling
	}
}

// ConflictOutcome 冲突裁决结果，败方保留在修订里供审计，不静默丢弃
type ConflictOutcome struct {
	WinnerSource FeedbackRole `json:"winnerSource"`
	LoserSource  FeedbackRole `json:"loserSource"`
	LoserRef     string       `json:"loserRef"` // 败方反馈/报告 ID
	Reason       string       `json:"reason"`
}

// Operation 对计划的单个修订操作，带来源标记以便追溯
type Operation struct {
	Kind            OpKind           `json:"kind"`
	Subject         string           `json:"subject,omitempty"`
	TaskID          string           `json:"taskId,omitempty"`
	HoursDelta      float64          `json:"hoursDelta,omitempty"`
	DifficultyDelta int              `json:"difficultyDelta,omitempty"`
	DueWeek         int              `json:"dueWeek,omitempty"`
	ResourceID      string           `json:"resourceId,omitempty"`
	Source          FeedbackRole     `json:"source"`
	SourceRef       string           `json:"sourceRef"` // 反馈 ID 或 "flag:{subject}:{kind}"
	Confidence      float64          `json:"confidence"`
	Conflict        *ConflictOutcome `json:"conflict,omitempty"`
}

// SkippedOperation 被丢弃的操作连同原因一起保留
type SkippedOperation struct {
	Operation Operation `json:"operation"`
	Reason    string    `json:"reason"`
}

type RevisionStatus string

const (
	RevisionPending RevisionStatus = "pending"
	RevisionApplied RevisionStatus = "applied"
)

// RoadmapRevision 针对计划某个版本的修订（差量），应用后产生下一个版本
type RoadmapRevision struct {
	ID          string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID   string             `gorm:"index;type:varchar(36);not null" json:"studentId"`
	BaseVersion int                `gorm:"not null" json:"baseVersion"`
	Operations  []Operation        `gorm:"serializer:json;type:text" json:"operations"`
	Skipped     []SkippedOperation `gorm:"serializer:json;type:text" json:"skipped"`
	Status      RevisionStatus     `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (RoadmapRevision) TableName() string {
	return "roadmap_revisions"
}
