package model

import (
	"fmt"
	"time"
)

type PlanStatus string

const (
	PlanDraft           PlanStatus = "draft"
	PlanTeacherApproved PlanStatus = "teacher_approved"
	PlanActive          PlanStatus = "active"
	PlanSuperseded      PlanStatus = "superseded"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskSkipped    TaskStatus = "skipped"
)

// RoadmapPlan 版本化的多周学习计划。每个学生同一时间至多一个 active 版本，
// 新版本落库时旧版本原子置为 superseded。
type RoadmapPlan struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID   string       `gorm:"index;type:varchar(36);not null" json:"studentId"`
	Version     int          `gorm:"not null" json:"version"`
	Weeks       int          `gorm:"not null" json:"weeks"`
	Status      PlanStatus   `gorm:"size:30;not null;default:draft" json:"status"`
	StartedAt   time.Time    `gorm:"not null" json:"startedAt"`
	Goals       []string     `gorm:"serializer:json;type:text" json:"goals"`
	WeeklyPlans []WeeklyPlan `gorm:"foreignKey:PlanID" json:"weeklyPlans"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (RoadmapPlan) TableName() string {
	return "roadmap_plans"
}

// WeeklyPlan 一周的科目时长分配和任务序列
type WeeklyPlan struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	PlanID      string           `gorm:"index;type:varchar(36)" json:"planId"`
	WeekIndex   int              `gorm:"not null" json:"weekIndex"`
	Allocations []HourAllocation `gorm:"foreignKey:WeeklyPlanID" json:"allocations"`
	Tasks       []Task           `gorm:"foreignKey:WeeklyPlanID" json:"tasks"`
}

func (WeeklyPlan) TableName() string {
	return "weekly_plans"
}

type HourAllocation struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	WeeklyPlanID uint    `gorm:"index" json:"weeklyPlanId"`
	Subject      string  `gorm:"size:100;not null" json:"subject"`
	Hours        float64 `gorm:"not null" json:"hours"`
}

func (HourAllocation) TableName() string {
	return "hour_allocations"
}

// Task 任务完成后资源绑定不可再变，pending/in_progress 状态下允许换绑。
// ID 在单个计划版本内唯一，跨版本克隆时保持不变，RowID 才是存储主键。
type Task struct {
	RowID            uint       `gorm:"primaryKey" json:"-"`
	ID               string     `gorm:"index;type:varchar(64);not null" json:"id"`
	WeeklyPlanID     uint       `gorm:"index" json:"weeklyPlanId"`
	Subject          string     `gorm:"size:100;not null" json:"subject"`
	Topic            string     `gorm:"size:100" json:"topic"`
	ResourceID       string     `gorm:"type:varchar(36);not null" json:"resourceId"`
	EstimatedMinutes int        `gorm:"not null" json:"estimatedMinutes"`
	Status           TaskStatus `gorm:"size:20;not null;default:pending" json:"status"`
	DueWeek          int        `gorm:"not null" json:"dueWeek"`
}

func (Task) TableName() string {
	return "roadmap_tasks"
}

// WeekStart 第 week 周的起始时间（week 从 1 开始）
func (p *RoadmapPlan) WeekStart(week int) time.Time {
	return p.StartedAt.AddDate(0, 0, (week-1)*7)
}

// WeekOf 时间戳落在计划的第几周；早于计划开始返回 0
func (p *RoadmapPlan) WeekOf(t time.Time) int {
	if t.Before(p.StartedAt) {
		return 0
	}
	return int(t.Sub(p.StartedAt).Hours()/(24*7)) + 1
}

// AllTasks 按周序返回全部任务
func (p *RoadmapPlan) AllTasks() []*Task {
	var tasks []*Task
	for i := range p.WeeklyPlans {
		for j := range p.WeeklyPlans[i].Tasks {
			tasks = append(tasks, &p.WeeklyPlans[i].Tasks[j])
		}
	}
	return tasks
}

func (p *RoadmapPlan) FindTask(taskID string) *Task {
	for i := range p.WeeklyPlans {
		for j := range p.WeeklyPlans[i].Tasks {
			if p.WeeklyPlans[i].Tasks[j].ID == taskID {
				return &p.WeeklyPlans[i].Tasks[j]
			}
		}
	}
	return nil
}

// Clone 深拷贝，copy-on-write 版本变迁的基础。
// 周计划和分配的数据库主键清零，便于作为新版本落库。
func (p *RoadmapPlan) Clone() *RoadmapPlan {
	next := *p
	next.Goals = append([]string(nil), p.Goals...)
	next.WeeklyPlans = make([]WeeklyPlan, len(p.WeeklyPlans))
	for i, wp := range p.WeeklyPlans {
		cp := wp
		cp.ID = 0
		cp.PlanID = ""
		cp.Allocations = make([]HourAllocation, len(wp.Allocations))
		for j, a := range wp.Allocations {
			a.ID = 0
			a.WeeklyPlanID = 0
			cp.Allocations[j] = a
		}
		cp.Tasks = make([]Task, len(wp.Tasks))
		for j, t := range wp.Tasks {
			t.RowID = 0
			t.WeeklyPlanID = 0
			cp.Tasks[j] = t
		}
		next.WeeklyPlans[i] = cp
	}
	return &next
}

// Validate 校验计划不变式：任务 ID 全局唯一、每周分配不超过学生周可用时长
func (p *RoadmapPlan) Validate(weeklyCapacity float64) error {
	if p.Version < 1 {
		return fmt.Errorf("plan version must start at 1, got %d", p.Version)
	}
	seen := make(map[string]bool)
	for _, wp := range p.WeeklyPlans {
		var total float64
		for _, a := range wp.Allocations {
			if a.Hours < 0 {
				return fmt.Errorf("week %d: negative allocation for %s", wp.WeekIndex, a.Subject)
			}
			total += a.Hours
		}
		// 浮点累加留一点容差
		if total > weeklyCapacity+1e-9 {
			return fmt.Errorf("week %d: allocated %.2fh exceeds weekly capacity %.2fh",
				wp.WeekIndex, total, weeklyCapacity)
		}
		for _, t := range wp.Tasks {
			if seen[t.ID] {
				return fmt.Errorf("duplicate task id %s", t.ID)
			}
			seen[t.ID] = true
			if t.DueWeek < 1 || t.DueWeek > p.Weeks {
				return fmt.Errorf("task %s: due week %d outside plan range 1..%d", t.ID, t.DueWeek, p.Weeks)
			}
		}
	}
	return nil
}

// DoneBindingsPreserved 已完成任务的资源绑定在新版本中必须原样保留
func DoneBindingsPreserved(old, next *RoadmapPlan) error {
	bindings := make(map[string]string)
	for _, t := range old.AllTasks() {
		if t.Status == TaskDone {
			bindings[t.ID] = t.ResourceID
		}
	}
	for id, resourceID := range bindings {
		t := next.FindTask(id)
		if t == nil {
			return fmt.Errorf("done task %s removed", id)
		}
		if t.ResourceID != resourceID {
			return fmt.Errorf("done task %s rebound from %s to %s", id, resourceID, t.ResourceID)
		}
	}
	return nil
}
