package service

import (
	"testing"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregatorReports() []model.AgentReport {
	window := model.AnalysisWindow{StartWeek: 1, EndWeek: 1}
	return []model.AgentReport{
		{
			Agent: "progress", Window: window,
			Flags: []model.IrregularityFlag{
				{Subject: "math", Kind: model.FlagLowCompletion, Severity: 3, Evidence: "completion 40%"},
				{Subject: "math", Kind: model.FlagOverdue, Severity: 2, Evidence: "2 overdue"},
			},
			Recommendations: []string{"拆小任务"},
		},
		{
			Agent: "performance", Window: window,
			Flags: []model.IrregularityFlag{
				{Subject: "math", Kind: model.FlagLowCompletion, Severity: 5, Evidence: "scores confirm"},
			},
			Recommendations: []string{"增加练习", "拆小任务"},
		},
		{
			Agent: "habit", Window: window,
			Flags: []model.IrregularityFlag{
				{Subject: model.SubjectGeneral, Kind: model.FlagOverload, Severity: 2, Evidence: "peak 600min"},
			},
		},
	}
}

func TestAggregateReportsMergesBySubjectAndKind(t *testing.T) {
	flags, recs, err := AggregateReports(aggregatorReports())
	require.NoError(t, err)

	require.Len(t, flags, 3)
	// 排序：严重度降序
	assert.Equal(t, model.FlagLowCompletion, flags[0].Kind)
	assert.Equal(t, 5, flags[0].Severity)
	assert.Equal(t, 2, flags[0].SupportCount)
	assert.Equal(t, "scores confirm", flags[0].Evidence)

	assert.Equal(t, 1, flags[1].SupportCount)
	assert.Equal(t, 1, flags[2].SupportCount)

	assert.Equal(t, []string{"增加练习", "拆小任务"}, recs)
}

func TestAggregateReportsOrderIndependent(t *testing.T) {
	base := aggregatorReports()
	permutations := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	flagsFirst, recsFirst, err := AggregateReports(base)
	require.NoError(t, err)

	for _, perm := range permutations {
		shuffled := []model.AgentReport{base[perm[0]], base[perm[1]], base[perm[2]]}
		flags, recs, err := AggregateReports(shuffled)
		require.NoError(t, err)
		assert.Equal(t, flagsFirst, flags)
		assert.Equal(t, recsFirst, recs)
	}
}

func TestAggregateReportsWindowMismatch(t *testing.T) {
	reports := aggregatorReports()
	reports[2].Window = model.AnalysisWindow{StartWeek: 2, EndWeek: 2}

	_, _, err := AggregateReports(reports)
	assert.ErrorIs(t, err, util.ErrWindowMismatch)
}

func TestAggregateReportsEmpty(t *testing.T) {
	_, _, err := AggregateReports(nil)
	assert.ErrorIs(t, err, util.ErrWindowMismatch)
}
