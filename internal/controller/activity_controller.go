package controller

import (
	"errors"
	"time"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	StudentRepo  *repository.StudentRepository
	ActivityRepo *repository.ActivityRepository
}

func NewActivityController(
	studentRepo *repository.StudentRepository,
	activityRepo *repository.ActivityRepository,
) *ActivityController {
	return &ActivityController{
		StudentRepo:  studentRepo,
		ActivityRepo: activityRepo,
	}
}

type activityBody struct {
	Records []struct {
		TaskID          string    `json:"taskId"`
		OccurredAt      time.Time `json:"occurredAt" binding:"required"`
		Minutes         float64   `json:"minutes" binding:"required"`
		CompletionDelta float64   `json:"completionDelta"`
		FocusQuality    *float64  `json:"focusQuality"`
	} `json:"records" binding:"required,dive"`
}

// @Summary 上报学习行为事件
// @Tags 学习行为
// @Accept json
// @Produce json
// @Param id path string true "学生ID"
// @Param body body activityBody true "行为事件，允许乱序"
// @Success 201 {object} util.Response
// @Router /api/students/{id}/activities [post]
func (c *ActivityController) AppendActivities(ctx *gin.Context) {
	studentID := ctx.Param("id")
	if _, err := c.StudentRepo.FindByID(studentID); err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	var body activityBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	records := make([]model.ActivityRecord, 0, len(body.Records))
	for _, r := range body.Records {
		if r.Minutes <= 0 {
			util.BadRequest(ctx, "minutes must be positive")
			return
		}
		if r.FocusQuality != nil && (*r.FocusQuality < 1 || *r.FocusQuality > 10) {
			util.BadRequest(ctx, "focusQuality must be within 1..10")
			return
		}
		records = append(records, model.ActivityRecord{
			StudentID:       studentID,
			TaskID:          r.TaskID,
			OccurredAt:      r.OccurredAt,
			Minutes:         r.Minutes,
			CompletionDelta: r.CompletionDelta,
			FocusQuality:    r.FocusQuality,
		})
	}

	if err := c.ActivityRepo.Append(records); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"appended": len(records)})
}
