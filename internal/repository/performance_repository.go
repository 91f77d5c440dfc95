package repository

import (
	"time"

	"study_roadmap_backend/internal/model"

	"gorm.io/gorm"
)

type PerformanceRepository struct {
	DB *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{DB: db}
}

func (r *PerformanceRepository) Append(records []model.PerformanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.DB.Create(&records).Error
}

func (r *PerformanceRepository) FindByStudent(studentID string) ([]model.PerformanceRecord, error) {
	var records []model.PerformanceRecord
	err := r.DB.Where("student_id = ?", studentID).
		Order("assessed_at ASC, id ASC").
		Find(&records).Error
	return records, err
}

func (r *PerformanceRepository) FindByStudentBetween(studentID string, from, to time.Time) ([]model.PerformanceRecord, error) {
	var records []model.PerformanceRecord
	err := r.DB.Where("student_id = ? AND assessed_at >= ? AND assessed_at < ?", studentID, from, to).
		Order("assessed_at ASC, id ASC").
		Find(&records).Error
	return records, err
}
