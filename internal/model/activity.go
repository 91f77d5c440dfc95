package model

import (
	"sort"
	"time"
)

// ActivityRecord 学习行为事件流，只追加；允许乱序到达，分析前排序
type ActivityRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StudentID       string    `gorm:"index;type:varchar(36);not null" json:"studentId"`
	TaskID          string    `gorm:"index;type:varchar(64)" json:"taskId"`
	OccurredAt      time.Time `gorm:"index;not null" json:"occurredAt"`
	Minutes         float64   `gorm:"not null" json:"minutes"`
	CompletionDelta float64   `gorm:"not null;default:0" json:"completionDelta"`
	FocusQuality    *float64  `json:"focusQuality,omitempty"` // 1-10 自评专注度，可缺省
	CreatedAt       time.Time `json:"createdAt"`
}

func (ActivityRecord) TableName() string {
	return "activity_records"
}

// SortActivitiesByTime 按发生时间升序，相同时间按 ID 升序
func SortActivitiesByTime(records []ActivityRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].OccurredAt.Equal(records[j].OccurredAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].OccurredAt.Before(records[j].OccurredAt)
	})
}
