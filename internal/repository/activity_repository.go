package repository

import (
	"time"

	"study_roadmap_backend/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Append(records []model.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.DB.Create(&records).Error
}

// FindByStudentBetween 取窗口内的行为事件。到达顺序不保证，调用方分析前自行排序
func (r *ActivityRepository) FindByStudentBetween(studentID string, from, to time.Time) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	err := r.DB.Where("student_id = ? AND occurred_at >= ? AND occurred_at < ?", studentID, from, to).
		Find(&records).Error
	return records, err
}
