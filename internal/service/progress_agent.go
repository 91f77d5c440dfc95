package service

import (
	"fmt"
	"sort"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
)

// ProgressAgent 跟踪任务完成率与按时率
type ProgressAgent struct {
	cfg config.AgentsConfig
}

func NewProgressAgent(cfg config.AgentsConfig) *ProgressAgent {
	return &ProgressAgent{cfg: cfg}
}

func (a *ProgressAgent) SetConfig(cfg config.AgentsConfig) { a.cfg = cfg }

func (a *ProgressAgent) Name() string { return "progress" }

func (a *ProgressAgent) Analyze(input AnalysisInput) (model.AgentReport, error) {
	report := model.AgentReport{Agent: a.Name(), Window: input.Window}

	type subjectStats struct {
		due     int
		done    int
		onTime  int
		overdue int
	}
	stats := make(map[string]*subjectStats)

	// 任务最后一次活动时间，用于判断是否按时完成
	lastTouch := make(map[string]int) // taskID -> 计划周
	for _, act := range input.Activities {
		if act.TaskID != "" {
			lastTouch[act.TaskID] = input.Plan.WeekOf(act.OccurredAt)
		}
	}

	for _, task := range input.Plan.AllTasks() {
		if task.DueWeek > input.Window.EndWeek {
			continue
		}
		st := stats[task.Subject]
		if st == nil {
			st = &subjectStats{}
			stats[task.Subject] = st
		}
		st.due++
		switch task.Status {
		case model.TaskDone:
			st.done++
			if week, ok := lastTouch[task.ID]; !ok || week <= task.DueWeek {
				st.onTime++
			}
		case model.TaskPending:
			if task.DueWeek < input.Window.EndWeek {
				st.overdue++
			}
		}
	}

	subjects := make([]string, 0, len(stats))
	for subject := range stats {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	var totalDue, totalOnTime int
	for _, subject := range subjects {
		st := stats[subject]
		totalDue += st.due
		totalOnTime += st.onTime
		if st.due == 0 {
			continue
		}

		rate := float64(st.done) / float64(st.due)
		if rate < a.cfg.CompletionThreshold {
			shortfall := a.cfg.CompletionThreshold - rate
			report.Flags = append(report.Flags, model.IrregularityFlag{
				Subject:  subject,
				Kind:     model.FlagLowCompletion,
				Severity: severityFromShortfall(shortfall, a.cfg.CompletionThreshold),
				Evidence: fmt.Sprintf("completion rate %.0f%% below threshold %.0f%% (%d/%d due tasks done)",
					rate*100, a.cfg.CompletionThreshold*100, st.done, st.due),
			})
		}
		if st.overdue > 0 {
			report.Flags = append(report.Flags, model.IrregularityFlag{
				Subject:  subject,
				Kind:     model.FlagOverdue,
				Severity: clampSeverity(2 + st.overdue/2),
				Evidence: fmt.Sprintf("%d tasks past due week still pending", st.overdue),
			})
		}
	}

	if totalDue > 0 {
		adherence := float64(totalOnTime) / float64(totalDue)
		if adherence < a.cfg.CompletionThreshold {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("按时率 %.0f%%，建议把大任务拆成更小的块并设定明确截止时间", adherence*100))
		}
	}

	return report, nil
}
