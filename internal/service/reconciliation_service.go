package service

import (
	"context"
	"fmt"
	"sort"
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
)

const reconcileLockPrefix = "roadmap:reconcile:"

// PrecedenceTable 角色 × 操作类别 → 决策权级，数值大者胜。
// 策略是数据不是代码：
//   - 教学类（难度、加减任务）教师说了算
//   - 日程类（改期、时长重分）家长高于代理建议，但不越过教师
//   - 代理建议只在没有人工反馈覆盖同一目标时生效
type PrecedenceTable map[model.FeedbackRole]map[model.OpCategory]int

func DefaultPrecedence() PrecedenceTable {
	return PrecedenceTable{
		model.RoleTeacher: {model.CategoryPedagogical: 3, model.CategoryScheduling: 3},
		model.RoleParent:  {model.CategoryPedagogical: 1, model.CategoryScheduling: 2},
		model.RoleAgent:   {model.CategoryPedagogical: 0, model.CategoryScheduling: 0},
	}
}

func (t PrecedenceTable) Rank(role model.FeedbackRole, category model.OpCategory) int {
	if byCategory, ok := t[role]; ok {
		return byCategory[category]
	}
	return 0
}

// ReconciliationService 把监控摘要和待处理的教师/家长反馈合成一份计划修订
type ReconciliationService struct {
	StudentRepo  *repository.StudentRepository
	RoadmapRepo  *repository.RoadmapRepository
	FeedbackRepo *repository.FeedbackRepository
	ReportRepo   *repository.ReportRepository
	RevisionRepo *repository.RevisionRepository
	Redis        *redis.Client

	cfg        config.EngineConfig
	precedence PrecedenceTable
}

func NewReconciliationService(
	studentRepo *repository.StudentRepository,
	roadmapRepo *repository.RoadmapRepository,
	feedbackRepo *repository.FeedbackRepository,
	reportRepo *repository.ReportRepository,
	revisionRepo *repository.RevisionRepository,
	rdb *redis.Client,
	cfg config.EngineConfig,
) *ReconciliationService {
	return &ReconciliationService{
		StudentRepo:  studentRepo,
		RoadmapRepo:  roadmapRepo,
		FeedbackRepo: feedbackRepo,
		ReportRepo:   reportRepo,
		RevisionRepo: revisionRepo,
		Redis:        rdb,
		cfg:          cfg,
		precedence:   DefaultPrecedence(),
	}
}

func (s *ReconciliationService) SetConfig(cfg config.EngineConfig) {
	s.cfg = cfg
}

// SetPrecedence 策略覆盖入口，表为空时保持默认
func (s *ReconciliationService) SetPrecedence(table PrecedenceTable) {
	if len(table) > 0 {
		s.precedence = table
	}
}

// Reconcile 同一学生同一时间只允许一次调和在途，靠 redis 锁串行化，
// 避免对同一计划版本并发产出两份背离的修订
func (s *ReconciliationService) Reconcile(ctx context.Context, studentID string) (*model.RoadmapRevision, error) {
	if s.Redis != nil {
		key := reconcileLockPrefix + studentID
		ttl := time.Duration(s.cfg.LockTTLSeconds) * time.Second
		ok, err := s.Redis.SetNX(ctx, key, 1, ttl).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrReconcileInFlight
		}
		defer s.Redis.Del(ctx, key)
	}

	profile, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, err
	}
	plan, err := s.RoadmapRepo.FindActive(studentID)
	if err != nil {
		return nil, err
	}

	// 一致性快照：只看快照时刻之前提交的反馈
	snapshot := time.Now()
	feedback, err := s.FeedbackRepo.PendingBefore(studentID, snapshot)
	if err != nil {
		return nil, err
	}

	summary, err := s.ReportRepo.FindLatest(studentID)
	if err != nil {
		return nil, err
	}

	revision := s.BuildRevision(plan, profile.WeeklyHours, summary, feedback)
	revision.ID = uuid.New().String()

	if err := s.RevisionRepo.Create(revision); err != nil {
		return nil, err
	}

	reconciled := make([]string, 0, len(feedback))
	for _, item := range feedback {
		reconciled = append(reconciled, item.ID)
	}
	if err := s.FeedbackRepo.MarkReconciled(reconciled); err != nil {
		return nil, err
	}

	monitoring.RevisionsBuilt.Inc()
	logger.Log.Info("roadmap revision built",
		zap.String("studentId", studentID),
		zap.Int("baseVersion", revision.BaseVersion),
		zap.Int("operations", len(revision.Operations)),
		zap.Int("skipped", len(revision.Skipped)))
	return revision, nil
}

// opCandidate 同一目标上的竞争操作
type opCandidate struct {
	op          model.Operation
	role        model.FeedbackRole
	submittedAt time.Time
}

// BuildRevision 纯计算：反馈逐条转操作，按权级表裁决同目标冲突
// （同类别先去重，不同角色跨类别的矛盾反馈再按权级裁决），
// 高严重度且无人工覆盖的标记补进代理建议操作，最后预检计划不变式
func (s *ReconciliationService) BuildRevision(
	plan *model.RoadmapPlan,
	weeklyCapacity float64,
	summary *model.MonitoringSummary,
	feedback []model.Feedback,
) *model.RoadmapRevision {
	revision := &model.RoadmapRevision{
		StudentID:   plan.StudentID,
		BaseVersion: plan.Version,
		Status:      model.RevisionPending,
	}

	type targetKey struct {
		category model.OpCategory
		subject  string
		taskID   string
	}
	winners := make(map[targetKey]*opCandidate)
	order := make([]targetKey, 0, len(feedback))
	humanTargets := make(map[string]bool) // subject 或 taskID 级别的人工覆盖

	// 反馈已按提交时间升序，同角色同目标后提交者胜，前者进审计
	for _, item := range feedback {
		op, ok := operationFromFeedback(item)
		if !ok {
			continue
		}
		humanTargets[item.Subject] = true
		if item.TaskID != "" {
			humanTargets[item.TaskID] = true
		}

		k := targetKey{model.CategoryOf(op.Kind), item.Subject, item.TaskID}
		current, exists := winners[k]
		if !exists {
			winners[k] = &opCandidate{op: op, role: item.Role, submittedAt: item.SubmittedAt}
			order = append(order, k)
			continue
		}

		newRank := s.precedence.Rank(item.Role, k.category)
		oldRank := s.precedence.Rank(current.role, k.category)
		switch {
		case newRank > oldRank,
			newRank == oldRank && !item.SubmittedAt.Before(current.submittedAt):
			op.Conflict = &model.ConflictOutcome{
				WinnerSource: item.Role,
				LoserSource:  current.role,
				LoserRef:     current.op.SourceRef,
				Reason:       conflictReason(item.Role, current.role, newRank, oldRank),
			}
			winners[k] = &opCandidate{op: op, role: item.Role, submittedAt: item.SubmittedAt}
		default:
			current.op.Conflict = &model.ConflictOutcome{
				WinnerSource: current.role,
				LoserSource:  item.Role,
				LoserRef:     op.SourceRef,
				Reason:       conflictReason(current.role, item.Role, oldRank, newRank),
			}
		}
	}

	// 跨类别裁决：不同角色在同一科目/任务上的矛盾反馈，即使落在不同
	// 操作类别（如教师调难度、家长改日程），也只保留权级高者，
	// 败方记入胜者的冲突审计。同一角色跨类别的多条反馈互不冲突。
	dropped := make(map[targetKey]bool)
	for i, ki := range order {
		if dropped[ki] {
			continue
		}
		for _, kj := range order[i+1:] {
			if dropped[kj] || kj.category == ki.category {
				continue
			}
			if !sameTarget(ki.subject, ki.taskID, kj.subject, kj.taskID) {
				continue
			}
			a, b := winners[ki], winners[kj]
			if a.role == b.role {
				continue
			}
			rankA := s.precedence.Rank(a.role, ki.category)
			rankB := s.precedence.Rank(b.role, kj.category)
			if rankB > rankA || (rankB == rankA && !b.submittedAt.Before(a.submittedAt)) {
				b.op.Conflict = &model.ConflictOutcome{
					WinnerSource: b.role,
					LoserSource:  a.role,
					LoserRef:     a.op.SourceRef,
					Reason:       conflictReason(b.role, a.role, rankB, rankA),
				}
				dropped[ki] = true
				break
			}
			a.op.Conflict = &model.ConflictOutcome{
				WinnerSource: a.role,
				LoserSource:  b.role,
				LoserRef:     b.op.SourceRef,
				Reason:       conflictReason(a.role, b.role, rankA, rankB),
			}
			dropped[kj] = true
		}
	}

	var ops []model.Operation
	for _, k := range order {
		if dropped[k] {
			continue
		}
		ops = append(ops, winners[k].op)
	}

	// 代理操作：严重度达标、且同一科目/任务没有任何人工反馈时才补位
	if summary != nil {
		for _, flag := range summary.Flags {
			if flag.Severity < s.cfg.SeverityFloor {
				continue
			}
			if humanTargets[flag.Subject] {
				continue
			}
			if op, ok := s.operationFromFlag(flag); ok {
				ops = append(ops, op)
			}
		}
	}

	// 按来源权级降序排列，教师的操作先应用
	sort.SliceStable(ops, func(i, j int) bool {
		ri := s.precedence.Rank(ops[i].Source, model.CategoryOf(ops[i].Kind))
		rj := s.precedence.Rank(ops[j].Source, model.CategoryOf(ops[j].Kind))
		return ri > rj
	})

	// 不变式预检：违例操作丢弃并记录原因，整个修订继续
	trial := plan.Clone()
	for _, op := range ops {
		next := trial.Clone()
		if err := applyOperation(next, op, nil); err != nil {
			revision.Skipped = append(revision.Skipped, model.SkippedOperation{
				Operation: op,
				Reason:    err.Error(),
			})
			monitoring.OperationsSkipped.Inc()
			continue
		}
		if err := next.Validate(weeklyCapacity); err != nil {
			revision.Skipped = append(revision.Skipped, model.SkippedOperation{
				Operation: op,
				Reason:    err.Error(),
			})
			monitoring.OperationsSkipped.Inc()
			continue
		}
		trial = next
		revision.Operations = append(revision.Operations, op)
	}

	return revision
}

func operationFromFeedback(item model.Feedback) (model.Operation, bool) {
	op := model.Operation{
		Subject:    item.Subject,
		TaskID:     item.TaskID,
		Source:     item.Role,
		SourceRef:  item.ID,
		Confidence: 1.0,
	}
	switch item.Kind {
	case model.FeedbackPriorityChange:
		if item.Payload.ResourceID != "" {
			op.Kind = model.OpAddTask
			op.ResourceID = item.Payload.ResourceID
			op.DueWeek = item.Payload.DueWeek
		} else {
			op.Kind = model.OpReallocateHours
			op.HoursDelta = item.Payload.HoursDelta
		}
	case model.FeedbackDifficultyChange:
		op.Kind = model.OpChangeDifficulty
		op.DifficultyDelta = item.Payload.DifficultyDelta
	case model.FeedbackScheduleChange:
		op.Kind = model.OpChangeDueWeek
		op.DueWeek = item.Payload.DueWeek
	default:
		// note 类反馈只进审计，不产生操作
		return model.Operation{}, false
	}
	return op, true
}

// operationFromFlag 高严重度标记转低置信度的建议操作，人工可事后推翻
func (s *ReconciliationService) operationFromFlag(flag model.SummaryFlag) (model.Operation, bool) {
	op := model.Operation{
		Subject:    flag.Subject,
		Source:     model.RoleAgent,
		SourceRef:  fmt.Sprintf("flag:%s:%s", flag.Subject, flag.Kind),
		Confidence: 0.5,
	}
	switch flag.Kind {
	case model.FlagLowCompletion, model.FlagUnderengagement:
		// 完成率低：减负，把该科每周时长下调一个步长
		op.Kind = model.OpReallocateHours
		op.HoursDelta = -s.cfg.HoursStepDefault
	case model.FlagDecliningTrend:
		op.Kind = model.OpChangeDifficulty
		op.DifficultyDelta = -1
	case model.FlagOverdue:
		op.Kind = model.OpReallocateHours
		op.HoursDelta = s.cfg.HoursStepDefault
	default:
		return model.Operation{}, false
	}
	if op.Subject == model.SubjectGeneral && op.Kind == model.OpReallocateHours {
		// 习惯类标记不落在具体科目上，无法换算成分配操作
		return model.Operation{}, false
	}
	return op, true
}

// sameTarget 科目级反馈和该科目下任务级反馈视作同一目标
func sameTarget(subjectA, taskA, subjectB, taskB string) bool {
	if subjectA != "" && subjectA == subjectB {
		return true
	}
	return taskA != "" && taskA == taskB
}

func conflictReason(winner, loser model.FeedbackRole, winnerRank, loserRank int) string {
	if winnerRank == loserRank {
		return fmt.Sprintf("same-role conflict: most recent %s feedback supersedes earlier item", winner)
	}
	return fmt.Sprintf("%s (rank %d) outranks %s (rank %d) on this target", winner, winnerRank, loser, loserRank)
}
