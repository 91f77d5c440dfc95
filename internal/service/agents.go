package service

import (
	"fmt"

	"study_roadmap_backend/internal/model"
)

// AnalysisInput 三个代理共享的输入契约。代理只读，不得改动计划或事件流
type AnalysisInput struct {
	Profile    *model.StudentProfile
	Plan       *model.RoadmapPlan
	Window     model.AnalysisWindow
	Activities []model.ActivityRecord // 已按时间排好序
	History    []model.PerformanceRecord
	// 上一窗口各科成绩斜率，趋势类判定需要连续两个窗口的证据
	PriorSlopes map[string]float64
}

// MonitoringAgent 封闭的变体集合：分析一个窗口，产出一份报告。
// 新代理类型加入变体集合即可，聚合逻辑无需改动
type MonitoringAgent interface {
	Name() string
	Analyze(input AnalysisInput) (model.AgentReport, error)
}

func clampSeverity(sev int) int {
	if sev < model.SeverityMin {
		return model.SeverityMin
	}
	if sev > model.SeverityMax {
		return model.SeverityMax
	}
	return sev
}

// severityFromShortfall 缺口越大严重度越高，线性映射到 1-5
func severityFromShortfall(shortfall, threshold float64) int {
	if threshold <= 0 {
		return model.SeverityMin
	}
	return clampSeverity(1 + int(shortfall/threshold*4+0.5))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// slope 最小二乘斜率，x 取序号 0..n-1
func slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func windowKey(w model.AnalysisWindow) string {
	return fmt.Sprintf("%d-%d", w.StartWeek, w.EndWeek)
}
