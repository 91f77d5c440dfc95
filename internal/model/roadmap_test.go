package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *RoadmapPlan {
	return &RoadmapPlan{
		ID:        "plan-1",
		StudentID: "stu-1",
		Version:   1,
		Weeks:     2,
		Status:    PlanActive,
		StartedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Goals:     []string{"稳住数学基础"},
		WeeklyPlans: []WeeklyPlan{
			{
				ID:        10,
				WeekIndex: 1,
				Allocations: []HourAllocation{
					{ID: 1, Subject: "math", Hours: 6},
					{ID: 2, Subject: "chemistry", Hours: 4},
				},
				Tasks: []Task{
					{RowID: 1, ID: "w01-math-01", Subject: "math", ResourceID: "math-1",
						EstimatedMinutes: 60, Status: TaskDone, DueWeek: 1},
					{RowID: 2, ID: "w01-chemistry-01", Subject: "chemistry", ResourceID: "chem-1",
						EstimatedMinutes: 45, Status: TaskPending, DueWeek: 1},
				},
			},
			{
				ID:        11,
				WeekIndex: 2,
				Allocations: []HourAllocation{
					{ID: 3, Subject: "math", Hours: 5},
					{ID: 4, Subject: "chemistry", Hours: 5},
				},
				Tasks: []Task{
					{RowID: 3, ID: "w02-math-01", Subject: "math", ResourceID: "math-2",
						EstimatedMinutes: 60, Status: TaskPending, DueWeek: 2},
				},
			},
		},
	}
}

func TestPlanValidateOK(t *testing.T) {
	assert.NoError(t, samplePlan().Validate(10))
}

func TestPlanValidateDuplicateTaskID(t *testing.T) {
	plan := samplePlan()
	plan.WeeklyPlans[1].Tasks[0].ID = "w01-math-01"
	err := plan.Validate(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate task id")
}

func TestPlanValidateCapacityExceeded(t *testing.T) {
	plan := samplePlan()
	plan.WeeklyPlans[0].Allocations[0].Hours = 7
	err := plan.Validate(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds weekly capacity")
}

func TestPlanValidateNegativeAllocation(t *testing.T) {
	plan := samplePlan()
	plan.WeeklyPlans[0].Allocations[1].Hours = -1
	err := plan.Validate(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative allocation")
}

func TestPlanValidateDueWeekOutOfRange(t *testing.T) {
	plan := samplePlan()
	plan.WeeklyPlans[1].Tasks[0].DueWeek = 3
	err := plan.Validate(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside plan range")
}

func TestPlanValidateFloatTolerance(t *testing.T) {
	plan := samplePlan()
	// 0.1 的三次累加略大于 0.3，容差内不应报超额
	plan.WeeklyPlans[0].Allocations = []HourAllocation{
		{Subject: "math", Hours: 0.1},
		{Subject: "chemistry", Hours: 0.1},
		{Subject: "english", Hours: 0.1},
	}
	plan.WeeklyPlans[1].Allocations = nil
	assert.NoError(t, plan.Validate(0.3))
}

func TestPlanCloneIsDeep(t *testing.T) {
	plan := samplePlan()
	clone := plan.Clone()

	clone.WeeklyPlans[0].Tasks[1].Status = TaskDone
	clone.WeeklyPlans[0].Allocations[0].Hours = 99
	clone.Goals[0] = "changed"

	assert.Equal(t, TaskPending, plan.WeeklyPlans[0].Tasks[1].Status)
	assert.InDelta(t, 6, plan.WeeklyPlans[0].Allocations[0].Hours, 1e-9)
	assert.Equal(t, "稳住数学基础", plan.Goals[0])
}

func TestPlanCloneZeroesStorageKeys(t *testing.T) {
	clone := samplePlan().Clone()
	for _, wp := range clone.WeeklyPlans {
		assert.Zero(t, wp.ID)
		assert.Empty(t, wp.PlanID)
		for _, a := range wp.Allocations {
			assert.Zero(t, a.ID)
			assert.Zero(t, a.WeeklyPlanID)
		}
		for _, task := range wp.Tasks {
			assert.Zero(t, task.RowID)
			assert.Zero(t, task.WeeklyPlanID)
			assert.NotEmpty(t, task.ID)
		}
	}
}

func TestDoneBindingsPreserved(t *testing.T) {
	old := samplePlan()

	intact := old.Clone()
	assert.NoError(t, DoneBindingsPreserved(old, intact))

	rebound := old.Clone()
	rebound.FindTask("w01-math-01").ResourceID = "math-9"
	err := DoneBindingsPreserved(old, rebound)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebound")

	removed := old.Clone()
	removed.WeeklyPlans[0].Tasks = removed.WeeklyPlans[0].Tasks[1:]
	err = DoneBindingsPreserved(old, removed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "removed")

	// pending 任务换绑不受限制
	pendingRebound := old.Clone()
	pendingRebound.FindTask("w01-chemistry-01").ResourceID = "chem-9"
	assert.NoError(t, DoneBindingsPreserved(old, pendingRebound))
}

func TestWeekStartAndWeekOf(t *testing.T) {
	plan := samplePlan()

	assert.Equal(t, plan.StartedAt, plan.WeekStart(1))
	assert.Equal(t, plan.StartedAt.AddDate(0, 0, 7), plan.WeekStart(2))

	assert.Equal(t, 1, plan.WeekOf(plan.StartedAt))
	assert.Equal(t, 1, plan.WeekOf(plan.StartedAt.Add(6*24*time.Hour)))
	assert.Equal(t, 2, plan.WeekOf(plan.StartedAt.Add(7*24*time.Hour)))
	assert.Equal(t, 0, plan.WeekOf(plan.StartedAt.Add(-time.Minute)))
}

func TestFindTaskAndAllTasks(t *testing.T) {
	plan := samplePlan()

	require.NotNil(t, plan.FindTask("w02-math-01"))
	assert.Nil(t, plan.FindTask("w09-math-01"))

	tasks := plan.AllTasks()
	require.Len(t, tasks, 3)
	// 返回的是指针，改写要落回计划
	tasks[2].Status = TaskInProgress
	assert.Equal(t, TaskInProgress, plan.WeeklyPlans[1].Tasks[0].Status)
}
