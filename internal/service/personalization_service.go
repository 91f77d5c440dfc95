package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"
	"study_roadmap_backend/pkg/logger"
	"study_roadmap_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PersonalizationService 把学生画像 + 成绩历史 + 资源目录转成版本化的多周计划
type PersonalizationService struct {
	StudentRepo     *repository.StudentRepository
	PerformanceRepo *repository.PerformanceRepository
	ResourceRepo    *repository.ResourceRepository
	RoadmapRepo     *repository.RoadmapRepository

	cfg config.EngineConfig
}

func NewPersonalizationService(
	studentRepo *repository.StudentRepository,
	performanceRepo *repository.PerformanceRepository,
	resourceRepo *repository.ResourceRepository,
	roadmapRepo *repository.RoadmapRepository,
	cfg config.EngineConfig,
) *PersonalizationService {
	return &PersonalizationService{
		StudentRepo:     studentRepo,
		PerformanceRepo: performanceRepo,
		ResourceRepo:    resourceRepo,
		RoadmapRepo:     roadmapRepo,
		cfg:             cfg,
	}
}

// SetConfig 配置热更新回调
func (s *PersonalizationService) SetConfig(cfg config.EngineConfig) {
	s.cfg = cfg
}

// GeneratePlan 生成新计划并落库。已有计划时生成下一版本并原子替换
func (s *PersonalizationService) GeneratePlan(studentID string) (*model.RoadmapPlan, error) {
	profile, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, err
	}

	history, err := s.PerformanceRepo.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.ResourceRepo.ListBySubjects(profile.Subjects())
	if err != nil {
		return nil, err
	}

	version, err := s.RoadmapRepo.MaxVersion(studentID)
	if err != nil {
		return nil, err
	}

	plan, err := s.BuildPlan(profile, history, catalog, version+1, time.Now())
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.New().String()

	if version == 0 {
		err = s.RoadmapRepo.Create(plan)
	} else {
		var old *model.RoadmapPlan
		old, err = s.RoadmapRepo.FindLatest(studentID)
		if err != nil {
			return nil, err
		}
		err = s.RoadmapRepo.Supersede(old, plan)
	}
	if err != nil {
		return nil, err
	}

	monitoring.PlansGenerated.Inc()
	logger.Log.Info("roadmap plan generated",
		zap.String("studentId", studentID),
		zap.Int("version", plan.Version),
		zap.Int("weeks", plan.Weeks))
	return plan, nil
}

// BuildPlan 纯计算：同样的输入必然产出同样的计划（测试可复现）。
// 任务 ID 由周序/科目/序号拼出，不掺随机量；计划 ID 由调用方补
func (s *PersonalizationService) BuildPlan(
	profile *model.StudentProfile,
	history []model.PerformanceRecord,
	catalog []model.LearningResource,
	version int,
	startedAt time.Time,
) (*model.RoadmapPlan, error) {
	if profile.WeeklyHours <= 0 {
		return nil, util.ErrNoWeeklyHours
	}
	if len(profile.Targets) == 0 {
		return nil, util.ErrNoTargetSubjects
	}
	if len(catalog) == 0 {
		return nil, util.ErrEmptyCatalog
	}

	weakness := s.WeaknessScores(profile, history)
	allocations := s.AllocateHours(profile.WeeklyHours, weakness)

	plan := &model.RoadmapPlan{
		StudentID: profile.ID,
		Version:   version,
		Weeks:     s.cfg.PlanWeeks,
		Status:    model.PlanDraft,
		StartedAt: startedAt,
		Goals:     buildGoals(profile, weakness),
	}

	// 每科一个游标，按难度档位起步、逐周上行消费候选资源
	cursors := make(map[string]*resourceCursor)
	for _, subject := range profile.Subjects() {
		cursors[subject] = newResourceCursor(subject, startTier(weakness[subject]), catalog)
	}

	for week := 1; week <= s.cfg.PlanWeeks; week++ {
		wp := model.WeeklyPlan{WeekIndex: week}
		for _, subject := range profile.Subjects() {
			hours := allocations[subject]
			wp.Allocations = append(wp.Allocations, model.HourAllocation{
				Subject: subject,
				Hours:   hours,
			})

			budget := hours * 60
			remaining := budget
			seq := 0
			cursor := cursors[subject]
			for {
				res, ok := cursor.peek()
				if !ok {
					break
				}
				// 超出剩余预算且溢出超过容差的资源顺延到下一周
				if float64(res.EstimatedMinutes) > remaining+s.cfg.PackingSlack*budget {
					break
				}
				cursor.advance()
				seq++
				wp.Tasks = append(wp.Tasks, model.Task{
					ID:               taskID(week, subject, seq),
					Subject:          subject,
					Topic:            res.Topic,
					ResourceID:       res.ID,
					EstimatedMinutes: res.EstimatedMinutes,
					Status:           model.TaskPending,
					DueWeek:          week,
				})
				remaining -= float64(res.EstimatedMinutes)
				if remaining <= 0 {
					break
				}
			}
		}
		plan.WeeklyPlans = append(plan.WeeklyPlans, wp)
	}

	if err := plan.Validate(profile.WeeklyHours); err != nil {
		return nil, fmt.Errorf("generated plan failed validation: %w", err)
	}
	return plan, nil
}

// WeaknessScores 按科目算薄弱度：目标分减近期成绩的加权平均（负差记 0），
// 越近的考核权重越高（指数衰减，半衰期按次数计）。无历史的科目给中性默认值
func (s *PersonalizationService) WeaknessScores(profile *model.StudentProfile, history []model.PerformanceRecord) map[string]float64 {
	bySubject := make(map[string][]model.PerformanceRecord)
	for _, rec := range history {
		bySubject[rec.Subject] = append(bySubject[rec.Subject], rec)
	}

	scores := make(map[string]float64)
	for _, target := range profile.Targets {
		records := bySubject[target.Subject]
		if len(records) == 0 {
			scores[target.Subject] = s.cfg.DefaultWeakness
			continue
		}
		model.SortRecordsByDateDesc(records)

		var weighted, weightSum float64
		for i, rec := range records {
			gap := target.TargetScore - rec.Percentage()
			if gap < 0 {
				gap = 0
			}
			w := math.Pow(0.5, float64(i)/s.cfg.DecayHalfLife)
			weighted += w * gap
			weightSum += w
		}
		scores[target.Subject] = weighted / weightSum
	}
	return scores
}

// AllocateHours 按薄弱度比例分周时长：每科保底 floor 比例、封顶 ceiling 比例。
// 封顶挤出的时长在未达上限的科目间按比例再分，直到稳定
func (s *PersonalizationService) AllocateHours(weeklyHours float64, weakness map[string]float64) map[string]float64 {
	subjects := make([]string, 0, len(weakness))
	for subject := range weakness {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	floor := s.cfg.FloorFraction * weeklyHours
	ceiling := s.cfg.CeilingFraction * weeklyHours

	alloc := make(map[string]float64, len(subjects))

	// 科目太多导致保底总和超出容量时退化为平均分
	if floor*float64(len(subjects)) > weeklyHours {
		for _, subject := range subjects {
			alloc[subject] = weeklyHours / float64(len(subjects))
		}
		return alloc
	}

	for _, subject := range subjects {
		alloc[subject] = floor
	}
	pool := weeklyHours - floor*float64(len(subjects))

	capped := make(map[string]bool)
	for pool > 1e-9 {
		var weightSum float64
		for _, subject := range subjects {
			if !capped[subject] {
				weightSum += weakness[subject]
			}
		}
		if weightSum <= 0 {
			break
		}

		distributed := 0.0
		newlyCapped := false
		for _, subject := range subjects {
			if capped[subject] {
				continue
			}
			share := pool * weakness[subject] / weightSum
			if alloc[subject]+share >= ceiling {
				distributed += ceiling - alloc[subject]
				alloc[subject] = ceiling
				capped[subject] = true
				newlyCapped = true
			} else {
				alloc[subject] += share
				distributed += share
			}
		}
		pool -= distributed
		if !newlyCapped {
			break
		}
	}
	return alloc
}

// startTier 薄弱度映射到起步难度：差距越大从越基础的档位开始
func startTier(weakness float64) int {
	tier := model.DifficultyAdvanced - int(weakness/15)
	if tier < model.DifficultyBasic {
		return model.DifficultyBasic
	}
	if tier > model.DifficultyAdvanced {
		return model.DifficultyAdvanced
	}
	return tier
}

// resourceCursor 某一科目的候选资源序列：起步档位之上按（难度, 主题, ID）
// 稳定排序，打包时顺序消费，天然实现难度逐周上行
type resourceCursor struct {
	resources []model.LearningResource
	pos       int
}

func newResourceCursor(subject string, tier int, catalog []model.LearningResource) *resourceCursor {
	var candidates []model.LearningResource
	for _, res := range catalog {
		if res.Subject == subject && res.Difficulty >= tier {
			candidates = append(candidates, res)
		}
	}
	if len(candidates) == 0 {
		// 起步档位之上没有资源时放宽到全科目
		for _, res := range catalog {
			if res.Subject == subject {
				candidates = append(candidates, res)
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Difficulty != candidates[j].Difficulty {
			return candidates[i].Difficulty < candidates[j].Difficulty
		}
		if candidates[i].Topic != candidates[j].Topic {
			return candidates[i].Topic < candidates[j].Topic
		}
		return candidates[i].ID < candidates[j].ID
	})
	return &resourceCursor{resources: candidates}
}

func (c *resourceCursor) peek() (model.LearningResource, bool) {
	if c.pos >= len(c.resources) {
		return model.LearningResource{}, false
	}
	return c.resources[c.pos], true
}

func (c *resourceCursor) advance() {
	c.pos++
}

func taskID(week int, subject string, seq int) string {
	slug := strings.ToLower(strings.ReplaceAll(subject, " ", "-"))
	return fmt.Sprintf("w%02d-%s-%02d", week, slug, seq)
}

func buildGoals(profile *model.StudentProfile, weakness map[string]float64) []string {
	var goals []string
	for _, subject := range profile.Subjects() {
		target, _ := profile.TargetFor(subject)
		if weakness[subject] > 0 {
			goals = append(goals, fmt.Sprintf("%s：缩小与目标分 %.0f 的差距（当前薄弱度 %.1f）",
				subject, target, weakness[subject]))
		}
	}
	if profile.WeeklyHours < 20 {
		goals = append(goals, "建立稳定的每日学习节奏")
	}
	return goals
}
