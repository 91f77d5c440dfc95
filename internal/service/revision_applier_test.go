package service

import (
	"testing"

	"study_roadmap_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applierCatalog() map[string]model.LearningResource {
	catalog := make(map[string]model.LearningResource)
	for _, res := range testCatalog() {
		catalog[res.ID] = res
	}
	return catalog
}

func TestApplyOperationsAddTask(t *testing.T) {
	plan := testRevisionPlan()
	ops := []model.Operation{{
		Kind:       model.OpAddTask,
		Subject:    "math",
		ResourceID: "math-3",
		DueWeek:    2,
		Source:     model.RoleTeacher,
	}}

	next, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	assert.Empty(t, skipped)

	added := next.FindTask(taskID(2, "math", 2))
	require.NotNil(t, added)
	assert.Equal(t, "math-3", added.ResourceID)
	assert.Equal(t, "geometry", added.Topic)
	assert.Equal(t, 60, added.EstimatedMinutes)
	// 原计划不受影响
	assert.Nil(t, plan.FindTask(taskID(2, "math", 2)))
}

func TestApplyOperationsRemoveDoneTaskIsSkipped(t *testing.T) {
	plan := testRevisionPlan()
	plan.WeeklyPlans[0].Tasks[0].Status = model.TaskDone

	ops := []model.Operation{{
		Kind:   model.OpRemoveTask,
		TaskID: taskID(1, "math", 1),
		Source: model.RoleTeacher,
	}}

	next, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "already done")
	require.NotNil(t, next.FindTask(taskID(1, "math", 1)))
}

func TestApplyOperationsDoneBindingPreservedOnDifficultyChange(t *testing.T) {
	plan := testRevisionPlan()
	// week1 的 math 任务已完成，绑定必须保持
	plan.WeeklyPlans[0].Tasks[0].Status = model.TaskDone

	ops := []model.Operation{{
		Kind:            model.OpChangeDifficulty,
		Subject:         "math",
		DifficultyDelta: 1,
		Source:          model.RoleTeacher,
	}}

	next, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	assert.Empty(t, skipped)

	done := next.FindTask(taskID(1, "math", 1))
	require.NotNil(t, done)
	assert.Equal(t, "math-1", done.ResourceID)

	// 未完成的 math 任务换绑到更高档位
	pending := next.FindTask(taskID(2, "math", 1))
	require.NotNil(t, pending)
	assert.NotEqual(t, "math-1", pending.ResourceID)
	assert.Greater(t, applierCatalog()[pending.ResourceID].Difficulty,
		applierCatalog()["math-1"].Difficulty)
}

func TestApplyOperationsReallocateBeyondCapacityIsSkipped(t *testing.T) {
	plan := testRevisionPlan()
	ops := []model.Operation{
		{Kind: model.OpReallocateHours, Subject: "chemistry", HoursDelta: 5, Source: model.RoleParent},
		{Kind: model.OpReallocateHours, Subject: "math", HoursDelta: -2, Source: model.RoleParent},
	}

	next, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	require.Len(t, skipped, 1)
	assert.Equal(t, "chemistry", skipped[0].Operation.Subject)

	for _, wp := range next.WeeklyPlans {
		for _, a := range wp.Allocations {
			switch a.Subject {
			case "chemistry":
				assert.InDelta(t, 6, a.Hours, 1e-9)
			case "math":
				assert.InDelta(t, 2, a.Hours, 1e-9)
			}
		}
	}
}

func TestApplyOperationsNegativeAllocationIsSkipped(t *testing.T) {
	plan := testRevisionPlan()
	ops := []model.Operation{
		{Kind: model.OpReallocateHours, Subject: "math", HoursDelta: -6, Source: model.RoleParent},
	}

	_, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "negative")
}

func TestApplyOperationsChangeDueWeek(t *testing.T) {
	plan := testRevisionPlan()
	task := taskID(1, "chemistry", 1)
	ops := []model.Operation{
		{Kind: model.OpChangeDueWeek, TaskID: task, DueWeek: 2, Source: model.RoleParent},
	}

	next, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	assert.Empty(t, skipped)
	assert.Equal(t, 2, next.FindTask(task).DueWeek)
}

func TestApplyOperationsLaterOpBuildsOnEarlier(t *testing.T) {
	plan := testRevisionPlan()
	task := taskID(1, "math", 1)
	ops := []model.Operation{
		// 先删掉任务，再改它的截止周：第二个操作应失败但不中止整个修订
		{Kind: model.OpRemoveTask, TaskID: task, Source: model.RoleTeacher},
		{Kind: model.OpChangeDueWeek, TaskID: task, DueWeek: 2, Source: model.RoleParent},
	}

	next, skipped := ApplyOperations(plan, ops, 10, applierCatalog())
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "not found")
	assert.Nil(t, next.FindTask(task))
}
