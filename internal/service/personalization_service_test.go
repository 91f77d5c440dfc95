package service

import (
	"testing"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		PlanWeeks:        12,
		FloorFraction:    0.10,
		CeilingFraction:  0.50,
		DecayHalfLife:    2.0,
		DefaultWeakness:  25.0,
		PackingSlack:     0.10,
		SeverityFloor:    4,
		LockTTLSeconds:   60,
		HoursStepDefault: 1.0,
	}
}

func newTestPersonalization() *PersonalizationService {
	return &PersonalizationService{cfg: testEngineConfig()}
}

func testProfile() *model.StudentProfile {
	return &model.StudentProfile{
		ID:          "stu-1",
		Name:        "测试学生",
		WeeklyHours: 10,
		Targets: []model.SubjectTarget{
			{Subject: "chemistry", TargetScore: 90},
			{Subject: "math", TargetScore: 90},
		},
	}
}

func testCatalog() []model.LearningResource {
	return []model.LearningResource{
		{ID: "math-1", Subject: "math", Topic: "algebra", Difficulty: model.DifficultyBasic, EstimatedMinutes: 45},
		{ID: "math-2", Subject: "math", Topic: "algebra", Difficulty: model.DifficultyElementary, EstimatedMinutes: 60},
		{ID: "math-3", Subject: "math", Topic: "geometry", Difficulty: model.DifficultyIntermediate, EstimatedMinutes: 60},
		{ID: "math-4", Subject: "math", Topic: "geometry", Difficulty: model.DifficultyAdvanced, EstimatedMinutes: 90},
		{ID: "chem-1", Subject: "chemistry", Topic: "equations", Difficulty: model.DifficultyBasic, EstimatedMinutes: 35},
		{ID: "chem-2", Subject: "chemistry", Topic: "equations", Difficulty: model.DifficultyElementary, EstimatedMinutes: 50},
		{ID: "chem-3", Subject: "chemistry", Topic: "organic", Difficulty: model.DifficultyIntermediate, EstimatedMinutes: 80},
		{ID: "chem-4", Subject: "chemistry", Topic: "lab", Difficulty: model.DifficultyAdvanced, EstimatedMinutes: 70},
	}
}

func testHistory(start time.Time) []model.PerformanceRecord {
	return []model.PerformanceRecord{
		{ID: 1, StudentID: "stu-1", Subject: "math", Score: 85, MaxScore: 100, AssessedAt: start.AddDate(0, 0, -30)},
		{ID: 2, StudentID: "stu-1", Subject: "math", Score: 86, MaxScore: 100, AssessedAt: start.AddDate(0, 0, -10)},
		{ID: 3, StudentID: "stu-1", Subject: "chemistry", Score: 55, MaxScore: 100, AssessedAt: start.AddDate(0, 0, -30)},
		{ID: 4, StudentID: "stu-1", Subject: "chemistry", Score: 60, MaxScore: 100, AssessedAt: start.AddDate(0, 0, -10)},
	}
}

var testStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestBuildPlanValidation(t *testing.T) {
	s := newTestPersonalization()
	catalog := testCatalog()

	noHours := testProfile()
	noHours.WeeklyHours = 0
	_, err := s.BuildPlan(noHours, nil, catalog, 1, testStart)
	assert.ErrorIs(t, err, util.ErrNoWeeklyHours)

	noTargets := testProfile()
	noTargets.Targets = nil
	_, err = s.BuildPlan(noTargets, nil, catalog, 1, testStart)
	assert.ErrorIs(t, err, util.ErrNoTargetSubjects)

	_, err = s.BuildPlan(testProfile(), nil, nil, 1, testStart)
	assert.ErrorIs(t, err, util.ErrEmptyCatalog)
}

func TestBuildPlanDeterministic(t *testing.T) {
	s := newTestPersonalization()
	profile := testProfile()
	history := testHistory(testStart)
	catalog := testCatalog()

	first, err := s.BuildPlan(profile, history, catalog, 1, testStart)
	require.NoError(t, err)
	second, err := s.BuildPlan(profile, history, catalog, 1, testStart)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestBuildPlanWeakerSubjectGetsMoreHours(t *testing.T) {
	s := newTestPersonalization()
	plan, err := s.BuildPlan(testProfile(), testHistory(testStart), testCatalog(), 1, testStart)
	require.NoError(t, err)
	require.Len(t, plan.WeeklyPlans, 12)

	week1 := plan.WeeklyPlans[0]
	hours := make(map[string]float64)
	for _, a := range week1.Allocations {
		hours[a.Subject] = a.Hours
	}
	// chemistry 差距 ~32 分，math 差距 ~4.5 分
	assert.Greater(t, hours["chemistry"], hours["math"])
}

func TestBuildPlanRespectsWeeklyCapacity(t *testing.T) {
	s := newTestPersonalization()
	profile := testProfile()
	plan, err := s.BuildPlan(profile, testHistory(testStart), testCatalog(), 1, testStart)
	require.NoError(t, err)

	for _, wp := range plan.WeeklyPlans {
		var total float64
		for _, a := range wp.Allocations {
			total += a.Hours
		}
		assert.LessOrEqual(t, total, profile.WeeklyHours+1e-9, "week %d over capacity", wp.WeekIndex)
	}
}

func TestBuildPlanTaskIDsUniqueAndStable(t *testing.T) {
	s := newTestPersonalization()
	plan, err := s.BuildPlan(testProfile(), testHistory(testStart), testCatalog(), 1, testStart)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, task := range plan.AllTasks() {
		assert.False(t, seen[task.ID], "duplicate task id %s", task.ID)
		seen[task.ID] = true
	}
	assert.Regexp(t, `^w\d{2}-[a-z-]+-\d{2}$`, plan.AllTasks()[0].ID)
}

func TestWeaknessScores(t *testing.T) {
	s := newTestPersonalization()
	profile := testProfile()

	t.Run("no history falls back to default", func(t *testing.T) {
		scores := s.WeaknessScores(profile, nil)
		assert.Equal(t, 25.0, scores["math"])
		assert.Equal(t, 25.0, scores["chemistry"])
	})

	t.Run("recent assessments weigh more", func(t *testing.T) {
		history := []model.PerformanceRecord{
			{ID: 1, Subject: "math", Score: 50, MaxScore: 100, AssessedAt: testStart.AddDate(0, 0, -60)},
			{ID: 2, Subject: "math", Score: 88, MaxScore: 100, AssessedAt: testStart.AddDate(0, 0, -5)},
		}
		scores := s.WeaknessScores(profile, history)
		// 加权向最近的 88 分靠拢：薄弱度应远小于简单平均的 21
		assert.Less(t, scores["math"], 21.0)
		assert.Greater(t, scores["math"], 2.0)
	})

	t.Run("exceeding target is not negative weakness", func(t *testing.T) {
		history := []model.PerformanceRecord{
			{ID: 1, Subject: "math", Score: 98, MaxScore: 100, AssessedAt: testStart.AddDate(0, 0, -5)},
		}
		scores := s.WeaknessScores(profile, history)
		assert.Equal(t, 0.0, scores["math"])
	})
}

func TestAllocateHoursFloorAndCeiling(t *testing.T) {
	s := newTestPersonalization()
	weakness := map[string]float64{
		"math":      1,
		"chemistry": 100,
		"english":   5,
	}
	alloc := s.AllocateHours(10, weakness)

	var total float64
	for subject, hours := range alloc {
		total += hours
		assert.GreaterOrEqual(t, hours, 1.0-1e-9, "%s below floor", subject)
		assert.LessOrEqual(t, hours, 5.0+1e-9, "%s above ceiling", subject)
	}
	assert.InDelta(t, 10, total, 1e-6)
	// 极端薄弱的 chemistry 应顶到上限
	assert.InDelta(t, 5.0, alloc["chemistry"], 1e-6)
}

func TestAllocateHoursDegenerateEqualSplit(t *testing.T) {
	s := newTestPersonalization()
	// 11 个科目 × 10% 保底超出容量，退化为平均分
	weakness := make(map[string]float64)
	for _, subject := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
		weakness[subject] = 10
	}
	alloc := s.AllocateHours(10, weakness)
	for subject, hours := range alloc {
		assert.InDelta(t, 10.0/11.0, hours, 1e-9, subject)
	}
}

func TestStartTier(t *testing.T) {
	assert.Equal(t, model.DifficultyAdvanced, startTier(0))
	assert.Equal(t, model.DifficultyIntermediate, startTier(20))
	assert.Equal(t, model.DifficultyElementary, startTier(30))
	assert.Equal(t, model.DifficultyBasic, startTier(50))
	assert.Equal(t, model.DifficultyBasic, startTier(90))
}
