package service

import (
	"fmt"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
)

// HabitAgent 按天聚合学习时长和自评专注度，找作息异常
type HabitAgent struct {
	cfg config.AgentsConfig
}

func NewHabitAgent(cfg config.AgentsConfig) *HabitAgent {
	return &HabitAgent{cfg: cfg}
}

func (a *HabitAgent) SetConfig(cfg config.AgentsConfig) { a.cfg = cfg }

func (a *HabitAgent) Name() string { return "habit" }

func (a *HabitAgent) Analyze(input AnalysisInput) (model.AgentReport, error) {
	report := model.AgentReport{Agent: a.Name(), Window: input.Window}

	from := input.Plan.WeekStart(input.Window.StartWeek)
	to := input.Plan.WeekStart(input.Window.EndWeek + 1)
	days := int(to.Sub(from).Hours() / 24)
	if days <= 0 {
		return report, nil
	}

	// 窗口跨度内逐日时长，没学的天记 0
	daily := make([]float64, days)
	var focusSum float64
	var focusCount int
	for _, act := range input.Activities {
		if act.OccurredAt.Before(from) || !act.OccurredAt.Before(to) {
			continue
		}
		day := int(act.OccurredAt.Sub(from) / (24 * time.Hour))
		if day >= 0 && day < days {
			daily[day] += act.Minutes
		}
		if act.FocusQuality != nil {
			focusSum += *act.FocusQuality
			focusCount++
		}
	}

	if v := variance(daily); v > a.cfg.DailyVarianceBound {
		report.Flags = append(report.Flags, model.IrregularityFlag{
			Subject:  model.SubjectGeneral,
			Kind:     model.FlagIrregularPattern,
			Severity: clampSeverity(2 + int(v/a.cfg.DailyVarianceBound)),
			Evidence: fmt.Sprintf("day-to-day study time variance %.0f min² exceeds bound %.0f", v, a.cfg.DailyVarianceBound),
		})
		report.Recommendations = append(report.Recommendations, "每日学习时长波动偏大，建议固定学习时段")
	}

	var peak float64
	for _, minutes := range daily {
		if minutes > peak {
			peak = minutes
		}
	}
	if peak > a.cfg.DailyCeilingMinutes {
		report.Flags = append(report.Flags, model.IrregularityFlag{
			Subject:  model.SubjectGeneral,
			Kind:     model.FlagOverload,
			Severity: clampSeverity(2 + int((peak-a.cfg.DailyCeilingMinutes)/60)),
			Evidence: fmt.Sprintf("peak daily study time %.0f min exceeds ceiling %.0f min", peak, a.cfg.DailyCeilingMinutes),
		})
		report.Recommendations = append(report.Recommendations, "单日学习时长过载，注意休息避免透支")
	}

	if hasPendingTasks(input.Plan, input.Window) {
		if idle := maxConsecutiveZero(daily); idle >= a.cfg.IdleDaysThreshold {
			report.Flags = append(report.Flags, model.IrregularityFlag{
				Subject:  model.SubjectGeneral,
				Kind:     model.FlagUnderengagement,
				Severity: clampSeverity(2 + idle - a.cfg.IdleDaysThreshold),
				Evidence: fmt.Sprintf("%d consecutive days with no activity while tasks are pending", idle),
			})
			report.Recommendations = append(report.Recommendations, "连续多天未学习，建议从短任务重新启动节奏")
		}
	}

	if focusCount > 0 {
		avg := focusSum / float64(focusCount)
		if avg < a.cfg.FocusFloor {
			report.Flags = append(report.Flags, model.IrregularityFlag{
				Subject:  model.SubjectGeneral,
				Kind:     model.FlagLowFocus,
				Severity: severityFromShortfall(a.cfg.FocusFloor-avg, a.cfg.FocusFloor),
				Evidence: fmt.Sprintf("average self-reported focus %.1f/10 below floor %.1f", avg, a.cfg.FocusFloor),
			})
			report.Recommendations = append(report.Recommendations, "自评专注度偏低，建议优化学习环境、减少干扰源")
		}
	}

	return report, nil
}

func hasPendingTasks(plan *model.RoadmapPlan, window model.AnalysisWindow) bool {
	for _, task := range plan.AllTasks() {
		if task.Status == model.TaskPending && task.DueWeek <= window.EndWeek {
			return true
		}
	}
	return false
}

func maxConsecutiveZero(daily []float64) int {
	var best, run int
	for _, minutes := range daily {
		if minutes == 0 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}
