package util

import "errors"

var (
	// 校验类：输入不合法，本次调用整体失败，不产出半成品计划
	ErrStudentNotFound  = errors.New("student not found")
	ErrNoTargetSubjects = errors.New("profile declares no target subjects")
	ErrNoWeeklyHours    = errors.New("profile declares zero weekly study hours")
	ErrEmptyCatalog     = errors.New("no learning resources available for target subjects")

	// 聚合类：代理报告缺失或窗口不一致，本轮监控失败，原计划保持不变
	ErrWindowMismatch = errors.New("agent reports do not share the same analysis window")
	ErrAgentFailed    = errors.New("monitoring agent failed")
	ErrPlanNotFound   = errors.New("no roadmap plan for student")

	// 调和类：单个操作违反计划不变式时丢弃该操作，整个修订继续
	ErrReconcileInFlight = errors.New("another reconciliation in flight for this student")
	ErrNothingToApply    = errors.New("revision contains no applicable operations")

	// 应用类
	ErrRevisionNotFound    = errors.New("revision not found")
	ErrRevisionApplied     = errors.New("revision already applied")
	ErrPlanVersionConflict = errors.New("plan version changed since revision was built")
)
