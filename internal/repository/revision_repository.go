package repository

import (
	"study_roadmap_backend/internal/model"

	"gorm.io/gorm"
)

type RevisionRepository struct {
	DB *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) *RevisionRepository {
	return &RevisionRepository{DB: db}
}

func (r *RevisionRepository) Create(revision *model.RoadmapRevision) error {
	return r.DB.Create(revision).Error
}

func (r *RevisionRepository) FindByID(id string) (*model.RoadmapRevision, error) {
	var revision model.RoadmapRevision
	err := r.DB.First(&revision, "id = ?", id).Error
	return &revision, err
}

func (r *RevisionRepository) Update(revision *model.RoadmapRevision) error {
	return r.DB.Save(revision).Error
}

func (r *RevisionRepository) ListByStudent(studentID string, limit int) ([]model.RoadmapRevision, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	var revisions []model.RoadmapRevision
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&revisions).Error
	return revisions, err
}
