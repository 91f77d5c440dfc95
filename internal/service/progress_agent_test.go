package service

import (
	"testing"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAgentsConfig() config.AgentsConfig {
	return config.AgentsConfig{
		CompletionThreshold: 0.60,
		DeclineSlope:        1.5,
		ScoreVarianceBound:  150.0,
		DailyVarianceBound:  3600.0,
		DailyCeilingMinutes: 480.0,
		IdleDaysThreshold:   3,
		FocusFloor:          6.0,
	}
}

// 两周计划：week1 五个 math 任务，week2 两个 chemistry 任务
func testMonitoringPlan(start time.Time) *model.RoadmapPlan {
	plan := &model.RoadmapPlan{
		ID:        "plan-1",
		StudentID: "stu-1",
		Version:   1,
		Weeks:     2,
		Status:    model.PlanActive,
		StartedAt: start,
	}
	week1 := model.WeeklyPlan{WeekIndex: 1}
	for i := 1; i <= 5; i++ {
		week1.Tasks = append(week1.Tasks, model.Task{
			ID:      taskID(1, "math", i),
			Subject: "math", ResourceID: "math-1",
			EstimatedMinutes: 60, Status: model.TaskPending, DueWeek: 1,
		})
	}
	week2 := model.WeeklyPlan{WeekIndex: 2}
	for i := 1; i <= 2; i++ {
		week2.Tasks = append(week2.Tasks, model.Task{
			ID:      taskID(2, "chemistry", i),
			Subject: "chemistry", ResourceID: "chem-1",
			EstimatedMinutes: 60, Status: model.TaskPending, DueWeek: 2,
		})
	}
	plan.WeeklyPlans = []model.WeeklyPlan{week1, week2}
	return plan
}

func TestProgressAgentLowCompletion(t *testing.T) {
	agent := NewProgressAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)

	report, err := agent.Analyze(AnalysisInput{
		Profile: testProfile(),
		Plan:    plan,
		Window:  model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
	})
	require.NoError(t, err)

	require.Len(t, report.Flags, 1)
	flag := report.Flags[0]
	assert.Equal(t, "math", flag.Subject)
	assert.Equal(t, model.FlagLowCompletion, flag.Kind)
	// 0/5 完成，缺口拉满
	assert.Equal(t, model.SeverityMax, flag.Severity)
}

func TestProgressAgentOverdue(t *testing.T) {
	agent := NewProgressAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)
	// 三个完成，两个逾期未动
	for i := 0; i < 3; i++ {
		plan.WeeklyPlans[0].Tasks[i].Status = model.TaskDone
	}

	report, err := agent.Analyze(AnalysisInput{
		Profile: testProfile(),
		Plan:    plan,
		Window:  model.AnalysisWindow{StartWeek: 1, EndWeek: 2},
	})
	require.NoError(t, err)

	var overdue *model.IrregularityFlag
	for i := range report.Flags {
		if report.Flags[i].Kind == model.FlagOverdue {
			overdue = &report.Flags[i]
		}
	}
	require.NotNil(t, overdue)
	assert.Equal(t, "math", overdue.Subject)
	assert.Equal(t, 3, overdue.Severity)
}

func TestProgressAgentCleanWindow(t *testing.T) {
	agent := NewProgressAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)
	for i := range plan.WeeklyPlans[0].Tasks {
		plan.WeeklyPlans[0].Tasks[i].Status = model.TaskDone
	}

	report, err := agent.Analyze(AnalysisInput{
		Profile: testProfile(),
		Plan:    plan,
		Window:  model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Flags)
	assert.Empty(t, report.Recommendations)
}

func TestProgressAgentOnTimeViaActivities(t *testing.T) {
	agent := NewProgressAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)
	for i := range plan.WeeklyPlans[0].Tasks {
		plan.WeeklyPlans[0].Tasks[i].Status = model.TaskDone
	}
	// 最后一次活动落在截止周之后，按时率跌破阈值触发建议
	var activities []model.ActivityRecord
	for _, task := range plan.WeeklyPlans[0].Tasks {
		activities = append(activities, model.ActivityRecord{
			TaskID:     task.ID,
			OccurredAt: testStart.AddDate(0, 0, 8),
			Minutes:    30,
		})
	}

	report, err := agent.Analyze(AnalysisInput{
		Profile:    testProfile(),
		Plan:       plan,
		Window:     model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
		Activities: activities,
	})
	require.NoError(t, err)
	assert.Empty(t, report.Flags)
	require.Len(t, report.Recommendations, 1)
}
