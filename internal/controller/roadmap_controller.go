package controller

import (
	"errors"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/service"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RoadmapController struct {
	Personalization *service.PersonalizationService
	Roadmap         *service.RoadmapService
}

func NewRoadmapController(
	personalization *service.PersonalizationService,
	roadmap *service.RoadmapService,
) *RoadmapController {
	return &RoadmapController{
		Personalization: personalization,
		Roadmap:         roadmap,
	}
}

// @Summary 生成学习路线图
// @Description 基于画像、成绩史和资源目录生成多周计划；已有计划时产出下一版本
// @Tags 路线图
// @Produce json
// @Param id path string true "学生ID"
// @Success 201 {object} util.Response
// @Router /api/students/{id}/roadmap [post]
func (c *RoadmapController) Generate(ctx *gin.Context) {
	plan, err := c.Personalization.GeneratePlan(ctx.Param("id"))
	switch {
	case errors.Is(err, util.ErrStudentNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNoWeeklyHours),
		errors.Is(err, util.ErrNoTargetSubjects),
		errors.Is(err, util.ErrEmptyCatalog):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPlanVersionConflict):
		util.Conflict(ctx, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Created(ctx, plan)
	}
}

// @Summary 查询当前生效的路线图
// @Tags 路线图
// @Produce json
// @Param id path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/roadmap [get]
func (c *RoadmapController) GetActive(ctx *gin.Context) {
	plan, err := c.Roadmap.GetActive(ctx.Param("id"))
	if errors.Is(err, util.ErrPlanNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}

// @Summary 按ID查询路线图（含历史版本）
// @Tags 路线图
// @Produce json
// @Param id path string true "计划ID"
// @Success 200 {object} util.Response
// @Router /api/roadmaps/{id} [get]
func (c *RoadmapController) GetByID(ctx *gin.Context) {
	plan, err := c.Roadmap.GetByID(ctx.Param("id"))
	if errors.Is(err, util.ErrPlanNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}

// @Summary 教师确认草稿
// @Tags 路线图
// @Produce json
// @Param id path string true "计划ID"
// @Success 200 {object} util.Response
// @Router /api/roadmaps/{id}/approve [put]
func (c *RoadmapController) Approve(ctx *gin.Context) {
	plan, err := c.Roadmap.Approve(ctx.Param("id"))
	if errors.Is(err, util.ErrPlanNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.Conflict(ctx, err.Error())
		return
	}
	util.Success(ctx, plan)
}

// @Summary 启用计划
// @Tags 路线图
// @Produce json
// @Param id path string true "计划ID"
// @Success 200 {object} util.Response
// @Router /api/roadmaps/{id}/activate [put]
func (c *RoadmapController) Activate(ctx *gin.Context) {
	plan, err := c.Roadmap.Activate(ctx.Param("id"))
	if errors.Is(err, util.ErrPlanNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.Conflict(ctx, err.Error())
		return
	}
	util.Success(ctx, plan)
}

type taskStatusBody struct {
	Status model.TaskStatus `json:"status" binding:"required"`
}

// @Summary 更新任务状态
// @Tags 路线图
// @Accept json
// @Produce json
// @Param id path string true "计划ID"
// @Param taskId path string true "任务ID"
// @Param body body taskStatusBody true "新状态"
// @Success 200 {object} util.Response
// @Router /api/roadmaps/{id}/tasks/{taskId}/status [put]
func (c *RoadmapController) UpdateTaskStatus(ctx *gin.Context) {
	var body taskStatusBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	switch body.Status {
	case model.TaskPending, model.TaskInProgress, model.TaskDone, model.TaskSkipped:
	default:
		util.BadRequest(ctx, "unknown task status")
		return
	}

	err := c.Roadmap.UpdateTaskStatus(ctx.Param("id"), ctx.Param("taskId"), body.Status)
	if errors.Is(err, util.ErrPlanNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.Conflict(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{"updated": true})
}
