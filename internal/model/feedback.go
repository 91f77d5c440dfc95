package model

import "time"

type FeedbackRole string

const (
	RoleTeacher FeedbackRole = "teacher"
	RoleParent  FeedbackRole = "parent"
	RoleAgent   FeedbackRole = "agent"
)

type FeedbackKind string

const (
	FeedbackPriorityChange   FeedbackKind = "priority_change"
	FeedbackDifficultyChange FeedbackKind = "difficulty_change"
	FeedbackScheduleChange   FeedbackKind = "schedule_change"
	FeedbackNote             FeedbackKind = "note"
)

// FeedbackPayload 结构化反馈内容，按 kind 取用对应字段
type FeedbackPayload struct {
	HoursDelta      float64 `json:"hoursDelta,omitempty"`      // priority_change: 周时长增减
	DifficultyDelta int     `json:"difficultyDelta,omitempty"` // difficulty_change: 难度档位增减
	DueWeek         int     `json:"dueWeek,omitempty"`         // schedule_change: 目标周
	ResourceID      string  `json:"resourceId,omitempty"`      // 可选：指定加练资源
	Note            string  `json:"note,omitempty"`
}

// Feedback 教师/家长反馈。提交后不可变，同一提交者的更正以新条目表达（审计链）
type Feedback struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID   string          `gorm:"index;type:varchar(36);not null" json:"studentId"`
	Role        FeedbackRole    `gorm:"size:20;not null" json:"role"`
	SubmitterID string          `gorm:"type:varchar(36);not null" json:"submitterId"`
	Subject     string          `gorm:"size:100" json:"subject"`
	TaskID      string          `gorm:"type:varchar(64)" json:"taskId"`
	Kind        FeedbackKind    `gorm:"size:30;not null" json:"kind"`
	Payload     FeedbackPayload `gorm:"serializer:json;type:text" json:"payload"`
	SubmittedAt time.Time       `gorm:"index;not null" json:"submittedAt"`
	Reconciled  bool            `gorm:"not null;default:false" json:"reconciled"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (Feedback) TableName() string {
	return "feedback_items"
}
