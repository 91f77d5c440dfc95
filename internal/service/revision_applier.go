package service

import (
	"errors"
	"fmt"
	"sort"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"
	"study_roadmap_backend/pkg/logger"
	"study_roadmap_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RevisionApplierService 把修订应用到计划，产出下一个版本。
// 整个修订是逐操作事务：单个操作违反不变式只丢弃该操作，不中止修订。
type RevisionApplierService struct {
	StudentRepo  *repository.StudentRepository
	RoadmapRepo  *repository.RoadmapRepository
	ResourceRepo *repository.ResourceRepository
	RevisionRepo *repository.RevisionRepository

	cfg config.EngineConfig
}

func NewRevisionApplierService(
	studentRepo *repository.StudentRepository,
	roadmapRepo *repository.RoadmapRepository,
	resourceRepo *repository.ResourceRepository,
	revisionRepo *repository.RevisionRepository,
	cfg config.EngineConfig,
) *RevisionApplierService {
	return &RevisionApplierService{
		StudentRepo:  studentRepo,
		RoadmapRepo:  roadmapRepo,
		ResourceRepo: resourceRepo,
		RevisionRepo: revisionRepo,
		cfg:          cfg,
	}
}

func (s *RevisionApplierService) SetConfig(cfg config.EngineConfig) {
	s.cfg = cfg
}

// Apply 应用修订：克隆基线计划、逐操作试应用并校验、原子换版。
// 修订构建后计划又变过版本时返回 ErrPlanVersionConflict，调用方需重新调和。
func (s *RevisionApplierService) Apply(revisionID string) (*model.RoadmapPlan, error) {
	revision, err := s.RevisionRepo.FindByID(revisionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRevisionNotFound
	}
	if err != nil {
		return nil, err
	}
	if revision.Status == model.RevisionApplied {
		return nil, util.ErrRevisionApplied
	}

	plan, err := s.RoadmapRepo.FindLatest(revision.StudentID)
	if err != nil {
		return nil, err
	}
	if plan.Version != revision.BaseVersion {
		return nil, util.ErrPlanVersionConflict
	}

	profile, err := s.StudentRepo.FindByID(revision.StudentID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.loadCatalog(profile.Subjects())
	if err != nil {
		return nil, err
	}

	if len(revision.Operations) == 0 {
		return nil, util.ErrNothingToApply
	}
	next, skipped := ApplyOperations(plan, revision.Operations, profile.WeeklyHours, catalog)
	if len(skipped) == len(revision.Operations) {
		return nil, util.ErrNothingToApply
	}

	next.ID = uuid.New().String()
	next.Version = plan.Version + 1
	next.StartedAt = plan.StartedAt
	if s.cfg.AutoActivate {
		next.Status = model.PlanActive
	} else {
		next.Status = model.PlanDraft
	}

	if err := s.RoadmapRepo.Supersede(plan, next); err != nil {
		return nil, err
	}

	revision.Status = model.RevisionApplied
	revision.Skipped = append(revision.Skipped, skipped...)
	if err := s.RevisionRepo.Update(revision); err != nil {
		return nil, err
	}

	monitoring.RevisionsApplied.Inc()
	logger.Log.Info("roadmap revision applied",
		zap.String("studentId", revision.StudentID),
		zap.String("revisionId", revision.ID),
		zap.Int("fromVersion", plan.Version),
		zap.Int("toVersion", next.Version),
		zap.Int("applied", len(revision.Operations)-len(skipped)),
		zap.Int("skipped", len(skipped)))
	return next, nil
}

// ApplyOperations 纯计算：在基线计划的克隆上逐个试应用操作。
// 每个操作先在临时副本上执行并跑全量不变式校验，通过才提交到工作副本。
func ApplyOperations(
	base *model.RoadmapPlan,
	ops []model.Operation,
	weeklyCapacity float64,
	catalog map[string]model.LearningResource,
) (*model.RoadmapPlan, []model.SkippedOperation) {
	working := base.Clone()
	var skipped []model.SkippedOperation

	for _, op := range ops {
		trial := working.Clone()
		if err := applyOperation(trial, op, catalog); err != nil {
			skipped = append(skipped, model.SkippedOperation{Operation: op, Reason: err.Error()})
			monitoring.OperationsSkipped.Inc()
			continue
		}
		if err := trial.Validate(weeklyCapacity); err != nil {
			skipped = append(skipped, model.SkippedOperation{Operation: op, Reason: err.Error()})
			monitoring.OperationsSkipped.Inc()
			continue
		}
		if err := model.DoneBindingsPreserved(base, trial); err != nil {
			skipped = append(skipped, model.SkippedOperation{Operation: op, Reason: err.Error()})
			monitoring.OperationsSkipped.Inc()
			continue
		}
		working = trial
	}
	return working, skipped
}

// applyOperation 在计划上原地执行单个操作。catalog 为 nil 时跳过资源换绑
// （调和阶段的预检走这条路径，真正换绑在应用阶段完成）。
func applyOperation(plan *model.RoadmapPlan, op model.Operation, catalog map[string]model.LearningResource) error {
	switch op.Kind {
	case model.OpAddTask:
		return applyAddTask(plan, op, catalog)
	case model.OpRemoveTask:
		return applyRemoveTask(plan, op)
	case model.OpReallocateHours:
		return applyReallocateHours(plan, op)
	case model.OpChangeDueWeek:
		return applyChangeDueWeek(plan, op)
	case model.OpChangeDifficulty:
		return applyChangeDifficulty(plan, op, catalog)
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func applyAddTask(plan *model.RoadmapPlan, op model.Operation, catalog map[string]model.LearningResource) error {
	week := op.DueWeek
	if week < 1 || week > plan.Weeks {
		return fmt.Errorf("add_task: due week %d outside plan range 1..%d", week, plan.Weeks)
	}
	if op.ResourceID == "" {
		return errors.New("add_task: resource id required")
	}

	topic := op.Subject
	minutes := 60
	if catalog != nil {
		res, ok := catalog[op.ResourceID]
		if !ok {
			return fmt.Errorf("add_task: resource %s not in catalog", op.ResourceID)
		}
		topic = res.Topic
		minutes = res.EstimatedMinutes
	}

	for i := range plan.WeeklyPlans {
		wp := &plan.WeeklyPlans[i]
		if wp.WeekIndex != week {
			continue
		}
		// 顺延序号直到找到未占用的任务 ID（移除操作可能留下空洞）
		seq := 1
		for _, t := range wp.Tasks {
			if t.Subject == op.Subject {
				seq++
			}
		}
		id := taskID(week, op.Subject, seq)
		for plan.FindTask(id) != nil {
			seq++
			id = taskID(week, op.Subject, seq)
		}
		wp.Tasks = append(wp.Tasks, model.Task{
			ID:               id,
			Subject:          op.Subject,
			Topic:            topic,
			ResourceID:       op.ResourceID,
			EstimatedMinutes: minutes,
			Status:           model.TaskPending,
			DueWeek:          week,
		})
		return nil
	}
	return fmt.Errorf("add_task: week %d not present in plan", week)
}

func applyRemoveTask(plan *model.RoadmapPlan, op model.Operation) error {
	for i := range plan.WeeklyPlans {
		wp := &plan.WeeklyPlans[i]
		for j := range wp.Tasks {
			if wp.Tasks[j].ID != op.TaskID {
				continue
			}
			// 已完成的任务是学习记录的一部分，不可移除
			if wp.Tasks[j].Status == model.TaskDone {
				return fmt.Errorf("remove_task: task %s already done", op.TaskID)
			}
			wp.Tasks = append(wp.Tasks[:j], wp.Tasks[j+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove_task: task %s not found", op.TaskID)
}

func applyReallocateHours(plan *model.RoadmapPlan, op model.Operation) error {
	if op.Subject == "" {
		return errors.New("reallocate_hours: subject required")
	}
	touched := false
	for i := range plan.WeeklyPlans {
		wp := &plan.WeeklyPlans[i]
		for j := range wp.Allocations {
			if wp.Allocations[j].Subject != op.Subject {
				continue
			}
			next := wp.Allocations[j].Hours + op.HoursDelta
			if next < 0 {
				return fmt.Errorf("reallocate_hours: week %d %s would go negative (%.2fh)",
					wp.WeekIndex, op.Subject, next)
			}
			wp.Allocations[j].Hours = next
			touched = true
		}
	}
	if !touched {
		return fmt.Errorf("reallocate_hours: subject %s not allocated in plan", op.Subject)
	}
	return nil
}

func applyChangeDueWeek(plan *model.RoadmapPlan, op model.Operation) error {
	if op.DueWeek < 1 || op.DueWeek > plan.Weeks {
		return fmt.Errorf("change_due_week: week %d outside plan range 1..%d", op.DueWeek, plan.Weeks)
	}
	task := plan.FindTask(op.TaskID)
	if task == nil {
		return fmt.Errorf("change_due_week: task %s not found", op.TaskID)
	}
	if task.Status == model.TaskDone {
		return fmt.Errorf("change_due_week: task %s already done", op.TaskID)
	}
	task.DueWeek = op.DueWeek
	return nil
}

// applyChangeDifficulty 把科目未完成任务换绑到目标难度档位的资源。
// 已完成任务的绑定原样保留。
func applyChangeDifficulty(plan *model.RoadmapPlan, op model.Operation, catalog map[string]model.LearningResource) error {
	if op.Subject == "" {
		return errors.New("change_difficulty: subject required")
	}
	if op.DifficultyDelta == 0 {
		return errors.New("change_difficulty: zero delta")
	}
	if catalog == nil {
		return nil
	}

	// 同科目资源按难度分桶，桶内按 topic、id 排序保证换绑结果确定
	byTier := make(map[int][]model.LearningResource)
	for _, res := range catalog {
		if res.Subject == op.Subject {
			byTier[res.Difficulty] = append(byTier[res.Difficulty], res)
		}
	}
	for tier := range byTier {
		bucket := byTier[tier]
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].Topic != bucket[j].Topic {
				return bucket[i].Topic < bucket[j].Topic
			}
			return bucket[i].ID < bucket[j].ID
		})
		byTier[tier] = bucket
	}

	cursor := make(map[int]int)
	rebound := 0
	for _, task := range plan.AllTasks() {
		if task.Subject != op.Subject || task.Status == model.TaskDone {
			continue
		}
		current := model.DifficultyIntermediate
		if res, ok := catalog[task.ResourceID]; ok {
			current = res.Difficulty
		}
		target := clampTier(current + op.DifficultyDelta)
		bucket := byTier[target]
		if len(bucket) == 0 {
			continue // 该档位没有资源，保持原绑定
		}
		res := bucket[cursor[target]%len(bucket)]
		cursor[target]++
		task.ResourceID = res.ID
		task.Topic = res.Topic
		task.EstimatedMinutes = res.EstimatedMinutes
		rebound++
	}
	if rebound == 0 {
		return fmt.Errorf("change_difficulty: no rebindable tasks for subject %s", op.Subject)
	}
	return nil
}

func clampTier(tier int) int {
	if tier < model.DifficultyBasic {
		return model.DifficultyBasic
	}
	if tier > model.DifficultyAdvanced {
		return model.DifficultyAdvanced
	}
	return tier
}

func (s *RevisionApplierService) loadCatalog(subjects []string) (map[string]model.LearningResource, error) {
	resources, err := s.ResourceRepo.ListBySubjects(subjects)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]model.LearningResource, len(resources))
	for _, res := range resources {
		catalog[res.ID] = res
	}
	return catalog, nil
}
