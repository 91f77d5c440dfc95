package repository

import (
	"errors"

	"study_roadmap_backend/internal/model"

	"gorm.io/gorm"
)

type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) Create(summary *model.MonitoringSummary) error {
	return r.DB.Create(summary).Error
}

func (r *ReportRepository) FindLatest(studentID string) (*model.MonitoringSummary, error) {
	var summary model.MonitoringSummary
	err := r.DB.Where("student_id = ?", studentID).
		Order("generated_at DESC").
		First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *ReportRepository) ListRecent(studentID string, limit int) ([]model.MonitoringSummary, error) {
	if limit < 1 || limit > 50 {
		limit = 5
	}
	var summaries []model.MonitoringSummary
	err := r.DB.Where("student_id = ?", studentID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&summaries).Error
	return summaries, err
}
