package service

import (
	"context"
	"errors"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"
	"study_roadmap_backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CycleService 每周例行周期：对每个持有 active 计划的学生跑一轮
// 监控分析，然后把新报告和积压反馈调和成修订。
// 应用修订保留为显式动作（页面上教师确认，或 AutoActivate 下由调和接口触发）。
type CycleService struct {
	StudentRepo    *repository.StudentRepository
	Monitoring     *MonitoringService
	Reconciliation *ReconciliationService

	cfg  config.CycleConfig
	cron *cron.Cron
}

func NewCycleService(
	studentRepo *repository.StudentRepository,
	monitoring *MonitoringService,
	reconciliation *ReconciliationService,
	cfg config.CycleConfig,
) *CycleService {
	return &CycleService{
		StudentRepo:    studentRepo,
		Monitoring:     monitoring,
		Reconciliation: reconciliation,
		cfg:            cfg,
	}
}

// Start 按 cron 表达式注册周期任务。默认每周一早上六点。
func (s *CycleService) Start() error {
	if !s.cfg.Enabled {
		logger.Log.Info("weekly cycle disabled by config")
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.runOnce); err != nil {
		s.cron = nil
		return err
	}
	s.cron.Start()
	logger.Log.Info("weekly cycle scheduled", zap.String("spec", s.cfg.Spec))
	return nil
}

// Running 调度器是否在运行（cycle.enabled 为假时不启动）
func (s *CycleService) Running() bool {
	return s.cron != nil
}

func (s *CycleService) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

func (s *CycleService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	s.RunAll(ctx)
}

// RunAll 遍历全部持有 active 计划的学生。单个学生失败只记日志，
// 不影响其他学生的周期。
func (s *CycleService) RunAll(ctx context.Context) {
	studentIDs, err := s.StudentRepo.ListIDsWithActivePlan()
	if err != nil {
		logger.Log.Error("weekly cycle: list students failed", zap.Error(err))
		return
	}
	logger.Log.Info("weekly cycle started", zap.Int("students", len(studentIDs)))

	for _, studentID := range studentIDs {
		if ctx.Err() != nil {
			logger.Log.Warn("weekly cycle aborted", zap.Error(ctx.Err()))
			return
		}
		s.runStudent(ctx, studentID)
	}
	logger.Log.Info("weekly cycle finished")
}

func (s *CycleService) runStudent(ctx context.Context, studentID string) {
	plan, err := s.Monitoring.RoadmapRepo.FindActive(studentID)
	if err != nil {
		logger.Log.Error("weekly cycle: load plan failed",
			zap.String("studentId", studentID), zap.Error(err))
		return
	}

	window := s.Monitoring.CurrentWindow(plan)
	if _, err := s.Monitoring.RunWindow(ctx, studentID, window); err != nil {
		logger.Log.Error("weekly cycle: monitoring failed",
			zap.String("studentId", studentID), zap.Error(err))
		return
	}

	revision, err := s.Reconciliation.Reconcile(ctx, studentID)
	if err != nil {
		// 手工触发的调和还在途时跳过本轮，下周再来
		if errors.Is(err, util.ErrReconcileInFlight) {
			logger.Log.Warn("weekly cycle: reconciliation already in flight",
				zap.String("studentId", studentID))
			return
		}
		logger.Log.Error("weekly cycle: reconciliation failed",
			zap.String("studentId", studentID), zap.Error(err))
		return
	}
	logger.Log.Info("weekly cycle: revision ready",
		zap.String("studentId", studentID),
		zap.String("revisionId", revision.ID),
		zap.Int("operations", len(revision.Operations)))
}
