package model

import (
	"sort"
	"time"
)

// PerformanceRecord 考核成绩记录，只追加不修改
type PerformanceRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  string    `gorm:"index;type:varchar(36);not null" json:"studentId"`
	Subject    string    `gorm:"size:100;not null" json:"subject"`
	Score      float64   `gorm:"not null" json:"score"`
	MaxScore   float64   `gorm:"not null" json:"maxScore"`
	AssessedAt time.Time `gorm:"index;not null" json:"assessedAt"`
	Kind       string    `gorm:"size:50;default:exam" json:"kind"` // quiz, assignment, exam, practice
	CreatedAt  time.Time `json:"createdAt"`
}

func (PerformanceRecord) TableName() string {
	return "performance_records"
}

// Percentage 百分制得分
func (r *PerformanceRecord) Percentage() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return r.Score / r.MaxScore * 100
}

// SortRecordsByDateDesc 按考核时间倒序，最近的在前；相同时间按 ID 倒序保证稳定
func SortRecordsByDateDesc(records []PerformanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].AssessedAt.Equal(records[j].AssessedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].AssessedAt.After(records[j].AssessedAt)
	})
}
