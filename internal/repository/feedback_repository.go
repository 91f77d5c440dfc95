package repository

import (
	"time"

	"study_roadmap_backend/internal/model"

	"gorm.io/gorm"
)

type FeedbackRepository struct {
	DB *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{DB: db}
}

func (r *FeedbackRepository) Create(item *model.Feedback) error {
	return r.DB.Create(item).Error
}

// PendingBefore 调和快照：只取快照时刻之前提交且未调和的反馈，保证结果可复现
func (r *FeedbackRepository) PendingBefore(studentID string, snapshot time.Time) ([]model.Feedback, error) {
	var items []model.Feedback
	err := r.DB.Where("student_id = ? AND reconciled = ? AND submitted_at <= ?",
		studentID, false, snapshot).
		Order("submitted_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *FeedbackRepository) MarkReconciled(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.Model(&model.Feedback{}).
		Where("id IN ?", ids).
		Update("reconciled", true).
		Error
}

func (r *FeedbackRepository) ListByStudent(studentID string, limit int) ([]model.Feedback, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var items []model.Feedback
	err := r.DB.Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
