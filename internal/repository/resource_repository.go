package repository

import (
	"study_roadmap_backend/internal/model"

	"gorm.io/gorm"
)

type ResourceRepository struct {
	DB *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{DB: db}
}

func (r *ResourceRepository) Create(resource *model.LearningResource) error {
	return r.DB.Create(resource).Error
}

func (r *ResourceRepository) FindByID(id string) (*model.LearningResource, error) {
	var resource model.LearningResource
	err := r.DB.First(&resource, "id = ?", id).Error
	return &resource, err
}

func (r *ResourceRepository) ListBySubjects(subjects []string) ([]model.LearningResource, error) {
	var resources []model.LearningResource
	err := r.DB.Where("subject IN ?", subjects).
		Order("subject ASC, topic ASC, id ASC").
		Find(&resources).Error
	return resources, err
}

func (r *ResourceRepository) ListAll(page, limit int) ([]model.LearningResource, int64, error) {
	var resources []model.LearningResource
	var total int64

	if err := r.DB.Model(&model.LearningResource{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	err := r.DB.Order("subject ASC, topic ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&resources).Error
	return resources, total, err
}
