package model

import (
	"sort"
	"time"
)

// StudentProfile 学生画像：目标科目、每周可用学习时长、学习风格。
// 生成周期内视为不可变，更新时整体替换。
type StudentProfile struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Grade         string          `gorm:"size:50" json:"grade"`
	WeeklyHours   float64         `gorm:"not null" json:"weeklyHours"`
	LearningStyle string          `gorm:"size:50;default:visual" json:"learningStyle"` // visual, auditory, kinesthetic, reading
	Targets       []SubjectTarget `gorm:"foreignKey:StudentID" json:"targets"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (StudentProfile) TableName() string {
	return "student_profiles"
}

// SubjectTarget 单科目标分（百分制）
type SubjectTarget struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	StudentID   string  `gorm:"index;type:varchar(36)" json:"studentId"`
	Subject     string  `gorm:"size:100;not null" json:"subject"`
	TargetScore float64 `gorm:"not null" json:"targetScore"`
}

func (SubjectTarget) TableName() string {
	return "subject_targets"
}

// Subjects 返回按名称排序的目标科目列表，保证下游处理顺序稳定
func (p *StudentProfile) Subjects() []string {
	subjects := make([]string, 0, len(p.Targets))
	for _, t := range p.Targets {
		subjects = append(subjects, t.Subject)
	}
	sort.Strings(subjects)
	return subjects
}

func (p *StudentProfile) TargetFor(subject string) (float64, bool) {
	for _, t := range p.Targets {
		if t.Subject == subject {
			return t.TargetScore, true
		}
	}
	return 0, false
}
