package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"
	"study_roadmap_backend/pkg/logger"
	"study_roadmap_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const slopeKeyPrefix = "roadmap:slopes:"

// MonitoringService 并行跑三个监控代理并聚合成摘要。
// 聚合是同步点：任何一个代理失败，本轮监控整体失败，原计划不受影响
type MonitoringService struct {
	StudentRepo     *repository.StudentRepository
	RoadmapRepo     *repository.RoadmapRepository
	ActivityRepo    *repository.ActivityRepository
	PerformanceRepo *repository.PerformanceRepository
	ReportRepo      *repository.ReportRepository
	Redis           *redis.Client

	agents []MonitoringAgent
}

func NewMonitoringService(
	studentRepo *repository.StudentRepository,
	roadmapRepo *repository.RoadmapRepository,
	activityRepo *repository.ActivityRepository,
	performanceRepo *repository.PerformanceRepository,
	reportRepo *repository.ReportRepository,
	rdb *redis.Client,
	cfg config.AgentsConfig,
) *MonitoringService {
	return &MonitoringService{
		StudentRepo:     studentRepo,
		RoadmapRepo:     roadmapRepo,
		ActivityRepo:    activityRepo,
		PerformanceRepo: performanceRepo,
		ReportRepo:      reportRepo,
		Redis:           rdb,
		agents: []MonitoringAgent{
			NewProgressAgent(cfg),
			NewPerformanceAgent(cfg),
			NewHabitAgent(cfg),
		},
	}
}

// SetConfig 配置热更新回调
func (s *MonitoringService) SetConfig(cfg config.AgentsConfig) {
	for _, agent := range s.agents {
		if c, ok := agent.(interface{ SetConfig(config.AgentsConfig) }); ok {
			c.SetConfig(cfg)
		}
	}
}

// RunWindow 对指定窗口运行一轮监控，产出并持久化监控摘要
func (s *MonitoringService) RunWindow(ctx context.Context, studentID string, window model.AnalysisWindow) (*model.MonitoringSummary, error) {
	profile, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, err
	}

	plan, err := s.RoadmapRepo.FindActive(studentID)
	if err != nil {
		return nil, err
	}
	if window.StartWeek < 1 || window.EndWeek > plan.Weeks || window.StartWeek > window.EndWeek {
		return nil, fmt.Errorf("%w: window %s outside plan range 1..%d",
			util.ErrWindowMismatch, windowKey(window), plan.Weeks)
	}

	from := plan.WeekStart(window.StartWeek)
	to := plan.WeekStart(window.EndWeek + 1)

	activities, err := s.ActivityRepo.FindByStudentBetween(studentID, from, to)
	if err != nil {
		return nil, err
	}
	model.SortActivitiesByTime(activities)

	history, err := s.PerformanceRepo.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}

	input := AnalysisInput{
		Profile:     profile,
		Plan:        plan,
		Window:      window,
		Activities:  activities,
		History:     history,
		PriorSlopes: s.loadPriorSlopes(ctx, studentID),
	}

	// 三个代理无共享状态、无先后依赖，并行执行后在聚合处汇合
	reports := make([]model.AgentReport, len(s.agents))
	g, _ := errgroup.WithContext(ctx)
	for i, agent := range s.agents {
		g.Go(func() error {
			report, err := agent.Analyze(input)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", util.ErrAgentFailed, agent.Name(), err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flags, recommendations, err := AggregateReports(reports)
	if err != nil {
		return nil, err
	}

	summary := &model.MonitoringSummary{
		ID:              uuid.New().String(),
		StudentID:       studentID,
		PlanVersion:     plan.Version,
		StartWeek:       window.StartWeek,
		EndWeek:         window.EndWeek,
		Flags:           flags,
		Recommendations: recommendations,
		GeneratedAt:     time.Now(),
	}
	if err := s.ReportRepo.Create(summary); err != nil {
		return nil, err
	}

	s.storeSlopes(ctx, studentID, SubjectSlopes(plan, window, history))

	monitoring.MonitoringCycles.Inc()
	monitoring.FlagsRaised.Add(float64(len(flags)))
	logger.Log.Info("monitoring window completed",
		zap.String("studentId", studentID),
		zap.String("window", windowKey(window)),
		zap.Int("flags", len(flags)))
	return summary, nil
}

// CurrentWindow 以计划开始时间推算当前所在周，窗口取该周单周
func (s *MonitoringService) CurrentWindow(plan *model.RoadmapPlan) model.AnalysisWindow {
	week := plan.WeekOf(time.Now())
	if week < 1 {
		week = 1
	}
	if week > plan.Weeks {
		week = plan.Weeks
	}
	return model.AnalysisWindow{StartWeek: week, EndWeek: week}
}

// loadPriorSlopes 上一窗口的成绩斜率，连续下滑判定用；redis 里没有就算首个窗口
func (s *MonitoringService) loadPriorSlopes(ctx context.Context, studentID string) map[string]float64 {
	if s.Redis == nil {
		return nil
	}
	raw, err := s.Redis.Get(ctx, slopeKeyPrefix+studentID).Result()
	if err != nil {
		return nil
	}
	var slopes map[string]float64
	if err := json.Unmarshal([]byte(raw), &slopes); err != nil {
		return nil
	}
	return slopes
}

func (s *MonitoringService) storeSlopes(ctx context.Context, studentID string, slopes map[string]float64) {
	if s.Redis == nil || len(slopes) == 0 {
		return
	}
	raw, err := json.Marshal(slopes)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, slopeKeyPrefix+studentID, raw, 30*24*time.Hour).Err(); err != nil {
		logger.Log.Warn("failed to store trend slopes", zap.Error(err))
	}
}
