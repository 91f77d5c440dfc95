package service

import (
	"testing"
	"time"

	"study_roadmap_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func focusPtr(v float64) *float64 { return &v }

func flagKinds(flags []model.IrregularityFlag) []model.FlagKind {
	kinds := make([]model.FlagKind, 0, len(flags))
	for _, f := range flags {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

func TestHabitAgentIrregularPatternAndOverload(t *testing.T) {
	agent := NewHabitAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)

	// 一天突击 600 分钟，其余六天空白
	activities := []model.ActivityRecord{
		{ID: 1, OccurredAt: testStart.Add(10 * time.Hour), Minutes: 600},
	}

	report, err := agent.Analyze(AnalysisInput{
		Plan:       plan,
		Window:     model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
		Activities: activities,
	})
	require.NoError(t, err)

	kinds := flagKinds(report.Flags)
	assert.Contains(t, kinds, model.FlagIrregularPattern)
	assert.Contains(t, kinds, model.FlagOverload)
	// 六天连续空白且还有待办任务
	assert.Contains(t, kinds, model.FlagUnderengagement)
	for _, f := range report.Flags {
		assert.Equal(t, model.SubjectGeneral, f.Subject)
	}
}

func TestHabitAgentSteadyRhythmIsClean(t *testing.T) {
	agent := NewHabitAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)

	// 每天 60 分钟，专注度 8
	var activities []model.ActivityRecord
	for day := 0; day < 7; day++ {
		activities = append(activities, model.ActivityRecord{
			ID:           uint(day + 1),
			OccurredAt:   testStart.AddDate(0, 0, day).Add(19 * time.Hour),
			Minutes:      60,
			FocusQuality: focusPtr(8),
		})
	}

	report, err := agent.Analyze(AnalysisInput{
		Plan:       plan,
		Window:     model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
		Activities: activities,
	})
	require.NoError(t, err)
	assert.Empty(t, report.Flags)
}

func TestHabitAgentLowFocus(t *testing.T) {
	agent := NewHabitAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)

	var activities []model.ActivityRecord
	for day := 0; day < 7; day++ {
		activities = append(activities, model.ActivityRecord{
			ID:           uint(day + 1),
			OccurredAt:   testStart.AddDate(0, 0, day).Add(19 * time.Hour),
			Minutes:      60,
			FocusQuality: focusPtr(3),
		})
	}

	report, err := agent.Analyze(AnalysisInput{
		Plan:       plan,
		Window:     model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
		Activities: activities,
	})
	require.NoError(t, err)

	require.Len(t, report.Flags, 1)
	assert.Equal(t, model.FlagLowFocus, report.Flags[0].Kind)
}

func TestHabitAgentNoUnderengagementWithoutPendingTasks(t *testing.T) {
	agent := NewHabitAgent(testAgentsConfig())
	plan := testMonitoringPlan(testStart)
	for i := range plan.WeeklyPlans[0].Tasks {
		plan.WeeklyPlans[0].Tasks[i].Status = model.TaskDone
	}

	report, err := agent.Analyze(AnalysisInput{
		Plan:   plan,
		Window: model.AnalysisWindow{StartWeek: 1, EndWeek: 1},
	})
	require.NoError(t, err)
	assert.NotContains(t, flagKinds(report.Flags), model.FlagUnderengagement)
}
