package service

import (
	"fmt"
	"math"
	"sort"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"
)

// PerformanceAgent 只用窗口内的考核记录重算成绩趋势
type PerformanceAgent struct {
	cfg config.AgentsConfig
}

func NewPerformanceAgent(cfg config.AgentsConfig) *PerformanceAgent {
	return &PerformanceAgent{cfg: cfg}
}

func (a *PerformanceAgent) SetConfig(cfg config.AgentsConfig) { a.cfg = cfg }

func (a *PerformanceAgent) Name() string { return "performance" }

func (a *PerformanceAgent) Analyze(input AnalysisInput) (model.AgentReport, error) {
	report := model.AgentReport{Agent: a.Name(), Window: input.Window}

	slopes := SubjectSlopes(input.Plan, input.Window, input.History)

	subjects := make([]string, 0, len(slopes))
	for subject := range slopes {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		current := slopes[subject]

		// 连续两个窗口都超阈值下滑才标记，单窗口波动不惊动人
		prior, hasPrior := input.PriorSlopes[subject]
		if current < -a.cfg.DeclineSlope && hasPrior && prior < -a.cfg.DeclineSlope {
			report.Flags = append(report.Flags, model.IrregularityFlag{
				Subject:  subject,
				Kind:     model.FlagDecliningTrend,
				Severity: clampSeverity(2 + int(math.Abs(current)/a.cfg.DeclineSlope)),
				Evidence: fmt.Sprintf("score slope %.2f per assessment over two consecutive windows (threshold -%.2f)",
					current, a.cfg.DeclineSlope),
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("%s 成绩连续下滑，建议增加针对性练习和复盘", subject))
		}
	}

	// 方差：窗口内同科目成绩波动过大
	percentages := subjectPercentages(input.Plan, input.Window, input.History)
	for _, subject := range subjects {
		scores := percentages[subject]
		if len(scores) < 3 {
			continue
		}
		if v := variance(scores); v > a.cfg.ScoreVarianceBound {
			report.Flags = append(report.Flags, model.IrregularityFlag{
				Subject:  subject,
				Kind:     model.FlagInconsistentResults,
				Severity: clampSeverity(2 + int(v/a.cfg.ScoreVarianceBound)),
				Evidence: fmt.Sprintf("score variance %.1f exceeds bound %.1f over %d assessments",
					v, a.cfg.ScoreVarianceBound, len(scores)),
			})
		}
	}

	return report, nil
}

// SubjectSlopes 窗口内各科成绩百分比的回归斜率。
// 监控服务把上一窗口的结果喂给下一次运行，代理自身保持无状态
func SubjectSlopes(plan *model.RoadmapPlan, window model.AnalysisWindow, history []model.PerformanceRecord) map[string]float64 {
	percentages := subjectPercentages(plan, window, history)
	slopes := make(map[string]float64, len(percentages))
	for subject, scores := range percentages {
		if len(scores) >= 2 {
			slopes[subject] = slope(scores)
		}
	}
	return slopes
}

func subjectPercentages(plan *model.RoadmapPlan, window model.AnalysisWindow, history []model.PerformanceRecord) map[string][]float64 {
	from := plan.WeekStart(window.StartWeek)
	to := plan.WeekStart(window.EndWeek + 1)

	out := make(map[string][]float64)
	for _, rec := range history {
		if rec.AssessedAt.Before(from) || !rec.AssessedAt.Before(to) {
			continue
		}
		out[rec.Subject] = append(out[rec.Subject], rec.Percentage())
	}
	return out
}
