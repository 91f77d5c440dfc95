package service

import (
	"fmt"
	"sort"
	"strings"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/util"
)

// AggregateReports 把同一窗口的代理报告合并成监控摘要。
// 合并按 (subject, kind) 去重：严重度取最大值，supportCount 记提出的代理数；
// 排序与报告顺序无关，交换代理顺序结果不变
func AggregateReports(reports []model.AgentReport) ([]model.SummaryFlag, []string, error) {
	if len(reports) == 0 {
		return nil, nil, util.ErrWindowMismatch
	}
	window := reports[0].Window
	for _, r := range reports[1:] {
		if r.Window != window {
			return nil, nil, fmt.Errorf("%w: %s vs %s from agent %s",
				util.ErrWindowMismatch, windowKey(window), windowKey(r.Window), r.Agent)
		}
	}

	type key struct {
		subject string
		kind    model.FlagKind
	}
	merged := make(map[key]*model.SummaryFlag)
	supporters := make(map[key]map[string]bool)

	for _, report := range reports {
		for _, flag := range report.Flags {
			k := key{flag.Subject, flag.Kind}
			entry := merged[k]
			if entry == nil {
				entry = &model.SummaryFlag{Subject: flag.Subject, Kind: flag.Kind}
				merged[k] = entry
				supporters[k] = make(map[string]bool)
			}
			if flag.Severity > entry.Severity {
				entry.Severity = flag.Severity
				entry.Evidence = flag.Evidence
			}
			supporters[k][report.Agent] = true
		}
	}

	flags := make([]model.SummaryFlag, 0, len(merged))
	for k, entry := range merged {
		entry.SupportCount = len(supporters[k])
		flags = append(flags, *entry)
	}

	// 严重度降序 → 支持数降序 → 科目升序 → 类型升序，保证确定性
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Severity != flags[j].Severity {
			return flags[i].Severity > flags[j].Severity
		}
		if flags[i].SupportCount != flags[j].SupportCount {
			return flags[i].SupportCount > flags[j].SupportCount
		}
		if flags[i].Subject != flags[j].Subject {
			return flags[i].Subject < flags[j].Subject
		}
		return flags[i].Kind < flags[j].Kind
	})

	recommendations := mergeRecommendations(reports)
	return flags, recommendations, nil
}

// mergeRecommendations 按代理名排序后合并去重，与传入顺序无关
func mergeRecommendations(reports []model.AgentReport) []string {
	ordered := make([]model.AgentReport, len(reports))
	copy(ordered, reports)
	sort.Slice(ordered, func(i, j int) bool {
		return strings.Compare(ordered[i].Agent, ordered[j].Agent) < 0
	})

	seen := make(map[string]bool)
	var out []string
	for _, report := range ordered {
		for _, rec := range report.Recommendations {
			if !seen[rec] {
				seen[rec] = true
				out = append(out, rec)
			}
		}
	}
	return out
}
