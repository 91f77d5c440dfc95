package controller

import (
	"errors"
	"strconv"
	"time"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FeedbackController struct {
	StudentRepo  *repository.StudentRepository
	FeedbackRepo *repository.FeedbackRepository
}

func NewFeedbackController(
	studentRepo *repository.StudentRepository,
	feedbackRepo *repository.FeedbackRepository,
) *FeedbackController {
	return &FeedbackController{
		StudentRepo:  studentRepo,
		FeedbackRepo: feedbackRepo,
	}
}

type feedbackBody struct {
	Role        model.FeedbackRole    `json:"role" binding:"required"`
	SubmitterID string                `json:"submitterId" binding:"required"`
	Subject     string                `json:"subject"`
	TaskID      string                `json:"taskId"`
	Kind        model.FeedbackKind    `json:"kind" binding:"required"`
	Payload     model.FeedbackPayload `json:"payload"`
}

// @Summary 提交教师/家长反馈
// @Description 反馈提交后不可变，进入下一轮调和的待处理队列
// @Tags 反馈
// @Accept json
// @Produce json
// @Param id path string true "学生ID"
// @Param body body feedbackBody true "反馈"
// @Success 201 {object} util.Response
// @Router /api/students/{id}/feedback [post]
func (c *FeedbackController) Submit(ctx *gin.Context) {
	studentID := ctx.Param("id")
	if _, err := c.StudentRepo.FindByID(studentID); err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	var body feedbackBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	switch body.Role {
	case model.RoleTeacher, model.RoleParent:
	default:
		util.BadRequest(ctx, "role must be teacher or parent")
		return
	}
	switch body.Kind {
	case model.FeedbackPriorityChange, model.FeedbackDifficultyChange,
		model.FeedbackScheduleChange, model.FeedbackNote:
	default:
		util.BadRequest(ctx, "unknown feedback kind")
		return
	}
	if body.Kind != model.FeedbackNote && body.Subject == "" && body.TaskID == "" {
		util.BadRequest(ctx, "subject or taskId required")
		return
	}

	item := &model.Feedback{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		Role:        body.Role,
		SubmitterID: body.SubmitterID,
		Subject:     body.Subject,
		TaskID:      body.TaskID,
		Kind:        body.Kind,
		Payload:     body.Payload,
		SubmittedAt: time.Now(),
	}
	if err := c.FeedbackRepo.Create(item); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, item)
}

// @Summary 反馈列表
// @Tags 反馈
// @Produce json
// @Param id path string true "学生ID"
// @Param limit query int false "返回条数"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/feedback [get]
func (c *FeedbackController) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	items, err := c.FeedbackRepo.ListByStudent(ctx.Param("id"), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}
