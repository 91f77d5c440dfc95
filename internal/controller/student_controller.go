package controller

import (
	"errors"
	"time"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentController struct {
	StudentRepo     *repository.StudentRepository
	PerformanceRepo *repository.PerformanceRepository
}

func NewStudentController(
	studentRepo *repository.StudentRepository,
	performanceRepo *repository.PerformanceRepository,
) *StudentController {
	return &StudentController{
		StudentRepo:     studentRepo,
		PerformanceRepo: performanceRepo,
	}
}

type subjectTargetBody struct {
	Subject     string  `json:"subject" binding:"required"`
	TargetScore float64 `json:"targetScore" binding:"required"`
}

type studentBody struct {
	Name          string              `json:"name" binding:"required"`
	Grade         string              `json:"grade"`
	WeeklyHours   float64             `json:"weeklyHours" binding:"required"`
	LearningStyle string              `json:"learningStyle"`
	Targets       []subjectTargetBody `json:"targets" binding:"required,dive"`
}

// @Summary 创建学生画像
// @Tags 学生
// @Accept json
// @Produce json
// @Param body body studentBody true "学生画像"
// @Success 201 {object} util.Response
// @Router /api/students [post]
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	var body studentBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if body.WeeklyHours <= 0 {
		util.BadRequest(ctx, "weeklyHours must be positive")
		return
	}

	profile := &model.StudentProfile{
		ID:            uuid.New().String(),
		Name:          body.Name,
		Grade:         body.Grade,
		WeeklyHours:   body.WeeklyHours,
		LearningStyle: body.LearningStyle,
	}
	for _, t := range body.Targets {
		profile.Targets = append(profile.Targets, model.SubjectTarget{
			Subject:     t.Subject,
			TargetScore: t.TargetScore,
		})
	}

	if err := c.StudentRepo.Create(profile); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, profile)
}

// @Summary 查询学生画像
// @Tags 学生
// @Produce json
// @Param id path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	profile, err := c.StudentRepo.FindByID(ctx.Param("id"))
	if errors.Is(err, util.ErrStudentNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// @Summary 整体替换学生画像
// @Tags 学生
// @Accept json
// @Produce json
// @Param id path string true "学生ID"
// @Param body body studentBody true "学生画像"
// @Success 200 {object} util.Response
// @Router /api/students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	studentID := ctx.Param("id")
	if _, err := c.StudentRepo.FindByID(studentID); err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	var body studentBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if body.WeeklyHours <= 0 {
		util.BadRequest(ctx, "weeklyHours must be positive")
		return
	}

	profile := &model.StudentProfile{
		ID:            studentID,
		Name:          body.Name,
		Grade:         body.Grade,
		WeeklyHours:   body.WeeklyHours,
		LearningStyle: body.LearningStyle,
	}
	for _, t := range body.Targets {
		profile.Targets = append(profile.Targets, model.SubjectTarget{
			StudentID:   studentID,
			Subject:     t.Subject,
			TargetScore: t.TargetScore,
		})
	}

	if err := c.StudentRepo.Replace(profile); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

type performanceBody struct {
	Records []struct {
		Subject    string    `json:"subject" binding:"required"`
		Score      float64   `json:"score"`
		MaxScore   float64   `json:"maxScore" binding:"required"`
		AssessedAt time.Time `json:"assessedAt" binding:"required"`
		Kind       string    `json:"kind"`
	} `json:"records" binding:"required,dive"`
}

// @Summary 追加考核成绩
// @Tags 学生
// @Accept json
// @Produce json
// @Param id path string true "学生ID"
// @Param body body performanceBody true "成绩记录"
// @Success 201 {object} util.Response
// @Router /api/students/{id}/performance [post]
func (c *StudentController) AppendPerformance(ctx *gin.Context) {
	studentID := ctx.Param("id")
	if _, err := c.StudentRepo.FindByID(studentID); err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	var body performanceBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	records := make([]model.PerformanceRecord, 0, len(body.Records))
	for _, r := range body.Records {
		if r.MaxScore <= 0 || r.Score < 0 || r.Score > r.MaxScore {
			util.BadRequest(ctx, "score must be within 0..maxScore")
			return
		}
		kind := r.Kind
		if kind == "" {
			kind = "exam"
		}
		records = append(records, model.PerformanceRecord{
			StudentID:  studentID,
			Subject:    r.Subject,
			Score:      r.Score,
			MaxScore:   r.MaxScore,
			AssessedAt: r.AssessedAt,
			Kind:       kind,
		})
	}

	if err := c.PerformanceRepo.Append(records); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"appended": len(records)})
}

// @Summary 查询考核成绩
// @Tags 学生
// @Produce json
// @Param id path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/performance [get]
func (c *StudentController) ListPerformance(ctx *gin.Context) {
	records, err := c.PerformanceRepo.FindByStudent(ctx.Param("id"))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, records)
}
