package repository

import (
	"errors"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/util"

	"gorm.io/gorm"
)

type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

func (r *RoadmapRepository) Create(plan *model.RoadmapPlan) error {
	return r.DB.Create(plan).Error
}

func (r *RoadmapRepository) FindByID(id string) (*model.RoadmapPlan, error) {
	var plan model.RoadmapPlan
	err := r.DB.Preload("WeeklyPlans", func(db *gorm.DB) *gorm.DB {
		return db.Order("weekly_plans.week_index ASC")
	}).Preload("WeeklyPlans.Allocations").Preload("WeeklyPlans.Tasks").
		First(&plan, "id = ?", id).Error
	return &plan, err
}

// FindLatest 学生最新版本的计划
func (r *RoadmapRepository) FindLatest(studentID string) (*model.RoadmapPlan, error) {
	var head model.RoadmapPlan
	err := r.DB.Where("student_id = ?", studentID).
		Order("version DESC").
		First(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(head.ID)
}

// FindActive 当前生效的计划；没有 active 时退回最新版本
func (r *RoadmapRepository) FindActive(studentID string) (*model.RoadmapPlan, error) {
	var head model.RoadmapPlan
	err := r.DB.Where("student_id = ? AND status = ?", studentID, model.PlanActive).
		First(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.FindLatest(studentID)
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(head.ID)
}

func (r *RoadmapRepository) MaxVersion(studentID string) (int, error) {
	var version int
	err := r.DB.Model(&model.RoadmapPlan{}).
		Where("student_id = ?", studentID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}

// Supersede 原子版本切换：旧版本置 superseded 且新版本落库在同一事务内完成。
// WHERE 带版本号做乐观校验，并发写入同一基线版本时后到者失败。
func (r *RoadmapRepository) Supersede(old *model.RoadmapPlan, next *model.RoadmapPlan) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RoadmapPlan{}).
			Where("id = ? AND version = ? AND status <> ?", old.ID, old.Version, model.PlanSuperseded).
			Update("status", model.PlanSuperseded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrPlanVersionConflict
		}
		return tx.Create(next).Error
	})
}

// Activate 把指定计划置为 active，同一学生其他未废弃版本一并置为 superseded
func (r *RoadmapRepository) Activate(studentID, planID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.RoadmapPlan{}).
			Where("student_id = ? AND id <> ? AND status <> ?", studentID, planID, model.PlanSuperseded).
			Update("status", model.PlanSuperseded).Error; err != nil {
			return err
		}
		res := tx.Model(&model.RoadmapPlan{}).
			Where("id = ? AND student_id = ?", planID, studentID).
			Update("status", model.PlanActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrPlanNotFound
		}
		return nil
	})
}

func (r *RoadmapRepository) UpdateStatus(id string, status model.PlanStatus) error {
	return r.DB.Model(&model.RoadmapPlan{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

// UpdateTaskStatus 任务 ID 跨版本复用，更新时必须限定在某个计划版本内
func (r *RoadmapRepository) UpdateTaskStatus(planID, taskID string, status model.TaskStatus) error {
	return r.DB.Model(&model.Task{}).
		Where("weekly_plan_id IN (?)",
			r.DB.Model(&model.WeeklyPlan{}).Select("id").Where("plan_id = ?", planID)).
		Where("id = ?", taskID).
		Update("status", status).
		Error
}
