package service

import (
	"errors"
	"fmt"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"
	"study_roadmap_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoadmapService 计划生命周期：draft → teacher_approved → active → superseded。
// 生成和修订由各自的服务负责，这里只管查询和状态流转。
type RoadmapService struct {
	RoadmapRepo *repository.RoadmapRepository
}

func NewRoadmapService(roadmapRepo *repository.RoadmapRepository) *RoadmapService {
	return &RoadmapService{RoadmapRepo: roadmapRepo}
}

func (s *RoadmapService) GetActive(studentID string) (*model.RoadmapPlan, error) {
	return s.RoadmapRepo.FindActive(studentID)
}

func (s *RoadmapService) GetByID(planID string) (*model.RoadmapPlan, error) {
	plan, err := s.RoadmapRepo.FindByID(planID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrPlanNotFound
	}
	return plan, err
}

// Approve 教师确认草稿。只有 draft 状态允许确认。
func (s *RoadmapService) Approve(planID string) (*model.RoadmapPlan, error) {
	plan, err := s.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != model.PlanDraft {
		return nil, fmt.Errorf("plan %s is %s, only draft can be approved", planID, plan.Status)
	}
	if err := s.RoadmapRepo.UpdateStatus(planID, model.PlanTeacherApproved); err != nil {
		return nil, err
	}
	plan.Status = model.PlanTeacherApproved
	logger.Log.Info("roadmap approved", zap.String("planId", planID))
	return plan, nil
}

// Activate 启用计划，学生其他版本自动废弃。已废弃的版本不允许复活。
func (s *RoadmapService) Activate(planID string) (*model.RoadmapPlan, error) {
	plan, err := s.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanSuperseded {
		return nil, fmt.Errorf("plan %s is superseded and cannot be activated", planID)
	}
	if err := s.RoadmapRepo.Activate(plan.StudentID, planID); err != nil {
		return nil, err
	}
	plan.Status = model.PlanActive
	logger.Log.Info("roadmap activated",
		zap.String("studentId", plan.StudentID),
		zap.String("planId", planID),
		zap.Int("version", plan.Version))
	return plan, nil
}

// UpdateTaskStatus 学生侧任务状态流转。done 为终态，不允许回退。
func (s *RoadmapService) UpdateTaskStatus(planID, taskID string, status model.TaskStatus) error {
	plan, err := s.GetByID(planID)
	if err != nil {
		return err
	}
	task := plan.FindTask(taskID)
	if task == nil {
		return fmt.Errorf("task %s not found in plan %s", taskID, planID)
	}
	if task.Status == model.TaskDone && status != model.TaskDone {
		return fmt.Errorf("task %s is done, status cannot be reverted", taskID)
	}
	return s.RoadmapRepo.UpdateTaskStatus(planID, taskID, status)
}
