package model

import "time"

const (
	DifficultyBasic        = 1 // 基础
	DifficultyElementary   = 2 // 初级
	DifficultyIntermediate = 3 // 中级
	DifficultyAdvanced     = 4 // 高级
)

// LearningResource 学习资源目录条目，只读输入
type LearningResource struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Kind             string    `gorm:"size:50;default:video" json:"kind"` // video, pdf, practice_test, textbook
	Subject          string    `gorm:"index;size:100;not null" json:"subject"`
	Topic            string    `gorm:"size:100;not null" json:"topic"`
	Difficulty       int       `gorm:"not null;default:1" json:"difficulty"` // 1: 基础, 2: 初级, 3: 中级, 4: 高级
	EstimatedMinutes int       `gorm:"not null" json:"estimatedMinutes"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (LearningResource) TableName() string {
	return "learning_resources"
}
