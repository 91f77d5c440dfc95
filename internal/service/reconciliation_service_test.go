package service

import (
	"fmt"
	"testing"
	"time"

	"study_roadmap_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciliation() *ReconciliationService {
	return NewReconciliationService(nil, nil, nil, nil, nil, nil, testEngineConfig())
}

// 两周计划，每周 math 4h + chemistry 6h，每周各一个任务
func testRevisionPlan() *model.RoadmapPlan {
	plan := &model.RoadmapPlan{
		ID:        "plan-1",
		StudentID: "stu-1",
		Version:   3,
		Weeks:     2,
		Status:    model.PlanActive,
		StartedAt: testStart,
	}
	for week := 1; week <= 2; week++ {
		plan.WeeklyPlans = append(plan.WeeklyPlans, model.WeeklyPlan{
			WeekIndex: week,
			Allocations: []model.HourAllocation{
				{Subject: "chemistry", Hours: 6},
				{Subject: "math", Hours: 4},
			},
			Tasks: []model.Task{
				{ID: taskID(week, "math", 1), Subject: "math", ResourceID: "math-1",
					EstimatedMinutes: 60, Status: model.TaskPending, DueWeek: week},
				{ID: taskID(week, "chemistry", 1), Subject: "chemistry", ResourceID: "chem-1",
					EstimatedMinutes: 60, Status: model.TaskPending, DueWeek: week},
			},
		})
	}
	return plan
}

func feedbackAt(offsetMinutes int, role model.FeedbackRole, kind model.FeedbackKind, subject, taskID string, payload model.FeedbackPayload) model.Feedback {
	return model.Feedback{
		ID:          fmt.Sprintf("%s-%s-%d", role, kind, offsetMinutes),
		StudentID:   "stu-1",
		Role:        role,
		SubmitterID: "submitter-" + string(role),
		Subject:     subject,
		TaskID:      taskID,
		Kind:        kind,
		Payload:     payload,
		SubmittedAt: testStart.Add(time.Duration(offsetMinutes) * time.Minute),
	}
}

func TestBuildRevisionTeacherOutranksParent(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()

	feedback := []model.Feedback{
		feedbackAt(1, model.RoleParent, model.FeedbackDifficultyChange, "math", "",
			model.FeedbackPayload{DifficultyDelta: -1}),
		feedbackAt(2, model.RoleTeacher, model.FeedbackDifficultyChange, "math", "",
			model.FeedbackPayload{DifficultyDelta: 1}),
	}

	revision := s.BuildRevision(plan, 10, nil, feedback)
	require.Equal(t, 3, revision.BaseVersion)
	require.Len(t, revision.Operations, 1)

	op := revision.Operations[0]
	assert.Equal(t, model.OpChangeDifficulty, op.Kind)
	assert.Equal(t, 1, op.DifficultyDelta)
	assert.Equal(t, model.RoleTeacher, op.Source)
	require.NotNil(t, op.Conflict)
	assert.Equal(t, model.RoleTeacher, op.Conflict.WinnerSource)
	assert.Equal(t, model.RoleParent, op.Conflict.LoserSource)
}

func TestBuildRevisionTeacherWinsEvenWhenParentIsLater(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()

	feedback := []model.Feedback{
		feedbackAt(1, model.RoleTeacher, model.FeedbackDifficultyChange, "math", "",
			model.FeedbackPayload{DifficultyDelta: 1}),
		feedbackAt(2, model.RoleParent, model.FeedbackDifficultyChange, "math", "",
			model.FeedbackPayload{DifficultyDelta: -1}),
	}

	revision := s.BuildRevision(plan, 10, nil, feedback)
	require.Len(t, revision.Operations, 1)
	assert.Equal(t, model.RoleTeacher, revision.Operations[0].Source)
	assert.Equal(t, 1, revision.Operations[0].DifficultyDelta)
}

func TestBuildRevisionSameRoleLatestWins(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()
	task := taskID(1, "math", 1)

	feedback := []model.Feedback{
		feedbackAt(1, model.RoleTeacher, model.FeedbackScheduleChange, "math", task,
			model.FeedbackPayload{DueWeek: 2}),
		feedbackAt(5, model.RoleTeacher, model.FeedbackScheduleChange, "math", task,
			model.FeedbackPayload{DueWeek: 1}),
	}

	revision := s.BuildRevision(plan, 10, nil, feedback)
	require.Len(t, revision.Operations, 1)

	op := revision.Operations[0]
	assert.Equal(t, model.OpChangeDueWeek, op.Kind)
	assert.Equal(t, 1, op.DueWeek)
	require.NotNil(t, op.Conflict)
	assert.Contains(t, op.Conflict.Reason, "most recent")
}

func TestBuildRevisionCrossCategoryConflictResolvedByRank(t *testing.T) {
	s := newTestReconciliation()
	task := taskID(1, "math", 1)

	// 家长改日程、教师调难度，目标都是数学：类别不同也是同一目标上的
	// 矛盾，教师胜出，家长条目进审计而不是与教师操作并行生效
	cases := []struct {
		name     string
		feedback []model.Feedback
	}{
		{"parent first", []model.Feedback{
			feedbackAt(1, model.RoleParent, model.FeedbackScheduleChange, "math", task,
				model.FeedbackPayload{DueWeek: 2}),
			feedbackAt(2, model.RoleTeacher, model.FeedbackDifficultyChange, "math", "",
				model.FeedbackPayload{DifficultyDelta: 1}),
		}},
		{"teacher first", []model.Feedback{
			feedbackAt(1, model.RoleTeacher, model.FeedbackDifficultyChange, "math", "",
				model.FeedbackPayload{DifficultyDelta: 1}),
			feedbackAt(2, model.RoleParent, model.FeedbackScheduleChange, "math", task,
				model.FeedbackPayload{DueWeek: 2}),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			revision := s.BuildRevision(testRevisionPlan(), 10, nil, tc.feedback)
			require.Len(t, revision.Operations, 1)

			op := revision.Operations[0]
			assert.Equal(t, model.OpChangeDifficulty, op.Kind)
			assert.Equal(t, model.RoleTeacher, op.Source)
			require.NotNil(t, op.Conflict)
			assert.Equal(t, model.RoleParent, op.Conflict.LoserSource)
			assert.Contains(t, op.Conflict.Reason, "outranks")
			assert.Empty(t, revision.Skipped)
		})
	}
}

func TestBuildRevisionSameRoleCrossCategoryBothSurvive(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()

	// 同一角色对同一科目既调难度又改日程不算矛盾，两个操作都保留
	feedback := []model.Feedback{
		feedbackAt(1, model.RoleTeacher, model.FeedbackDifficultyChange, "math", "",
			model.FeedbackPayload{DifficultyDelta: 1}),
		feedbackAt(2, model.RoleTeacher, model.FeedbackScheduleChange, "math", taskID(1, "math", 1),
			model.FeedbackPayload{DueWeek: 2}),
	}

	revision := s.BuildRevision(plan, 10, nil, feedback)
	require.Len(t, revision.Operations, 2)
	for _, op := range revision.Operations {
		assert.Nil(t, op.Conflict)
	}
}

func TestBuildRevisionAgentOpNeedsSeverityAndNoHumanCoverage(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()
	summary := &model.MonitoringSummary{
		StudentID:   "stu-1",
		PlanVersion: 3,
		Flags: []model.SummaryFlag{
			{Subject: "math", Kind: model.FlagDecliningTrend, Severity: 4, SupportCount: 1},
			{Subject: "chemistry", Kind: model.FlagOverdue, Severity: 3, SupportCount: 1}, // 低于门槛
		},
	}

	t.Run("no human feedback: agent op emitted", func(t *testing.T) {
		revision := s.BuildRevision(plan, 10, summary, nil)
		require.Len(t, revision.Operations, 1)
		op := revision.Operations[0]
		assert.Equal(t, model.RoleAgent, op.Source)
		assert.Equal(t, model.OpChangeDifficulty, op.Kind)
		assert.Equal(t, -1, op.DifficultyDelta)
		assert.InDelta(t, 0.5, op.Confidence, 1e-9)
	})

	t.Run("human feedback on same subject shadows agent", func(t *testing.T) {
		feedback := []model.Feedback{
			feedbackAt(1, model.RoleTeacher, model.FeedbackScheduleChange, "math", taskID(1, "math", 1),
				model.FeedbackPayload{DueWeek: 2}),
		}
		revision := s.BuildRevision(plan, 10, summary, feedback)
		for _, op := range revision.Operations {
			assert.NotEqual(t, model.RoleAgent, op.Source)
		}
	})
}

func TestBuildRevisionPrecheckDropsViolators(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()

	feedback := []model.Feedback{
		// 周下标越界
		feedbackAt(1, model.RoleTeacher, model.FeedbackScheduleChange, "math", taskID(1, "math", 1),
			model.FeedbackPayload{DueWeek: 99}),
		// 周容量溢出：chemistry 6h + 5h，合计 15h > 10h
		feedbackAt(2, model.RoleParent, model.FeedbackPriorityChange, "chemistry", "",
			model.FeedbackPayload{HoursDelta: 5}),
		// 合法操作
		feedbackAt(3, model.RoleParent, model.FeedbackPriorityChange, "math", "",
			model.FeedbackPayload{HoursDelta: -1}),
	}

	revision := s.BuildRevision(plan, 10, nil, feedback)
	require.Len(t, revision.Operations, 1)
	assert.Equal(t, model.OpReallocateHours, revision.Operations[0].Kind)
	assert.Equal(t, "math", revision.Operations[0].Subject)

	require.Len(t, revision.Skipped, 2)
	for _, skipped := range revision.Skipped {
		assert.NotEmpty(t, skipped.Reason)
	}
}

func TestBuildRevisionNoteProducesNoOperation(t *testing.T) {
	s := newTestReconciliation()
	plan := testRevisionPlan()

	feedback := []model.Feedback{
		feedbackAt(1, model.RoleParent, model.FeedbackNote, "math", "",
			model.FeedbackPayload{Note: "最近状态不错"}),
	}

	revision := s.BuildRevision(plan, 10, nil, feedback)
	assert.Empty(t, revision.Operations)
	assert.Empty(t, revision.Skipped)
}

func TestDefaultPrecedence(t *testing.T) {
	table := DefaultPrecedence()
	assert.Greater(t, table.Rank(model.RoleTeacher, model.CategoryPedagogical),
		table.Rank(model.RoleParent, model.CategoryPedagogical))
	assert.Greater(t, table.Rank(model.RoleParent, model.CategoryScheduling),
		table.Rank(model.RoleAgent, model.CategoryScheduling))
	// 未知角色不加权
	assert.Equal(t, 0, table.Rank(model.FeedbackRole("stranger"), model.CategoryScheduling))
}
