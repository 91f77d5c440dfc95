package repository

import (
	"errors"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/util"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(profile *model.StudentProfile) error {
	return r.DB.Create(profile).Error
}

func (r *StudentRepository) FindByID(id string) (*model.StudentProfile, error) {
	var profile model.StudentProfile
	err := r.DB.Preload("Targets").First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrStudentNotFound
	}
	return &profile, err
}

// Replace 画像整体替换：周期内不可变，更新即换新
func (r *StudentRepository) Replace(profile *model.StudentProfile) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", profile.ID).Delete(&model.SubjectTarget{}).Error; err != nil {
			return err
		}
		return tx.Save(profile).Error
	})
}

// ListIDsWithActivePlan 有 active 计划的学生，周期性巡检用
func (r *StudentRepository) ListIDsWithActivePlan() ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.RoadmapPlan{}).
		Where("status = ?", model.PlanActive).
		Distinct().
		Pluck("student_id", &ids).Error
	return ids, err
}
