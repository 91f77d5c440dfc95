package controller

import (
	"errors"
	"strconv"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/service"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MonitoringController struct {
	Monitoring *service.MonitoringService
	ReportRepo *repository.ReportRepository
}

func NewMonitoringController(
	monitoring *service.MonitoringService,
	reportRepo *repository.ReportRepository,
) *MonitoringController {
	return &MonitoringController{
		Monitoring: monitoring,
		ReportRepo: reportRepo,
	}
}

type runWindowBody struct {
	StartWeek int `json:"startWeek"`
	EndWeek   int `json:"endWeek"`
}

// @Summary 手动触发一轮监控分析
// @Description 不传窗口时分析当前周
// @Tags 监控
// @Accept json
// @Produce json
// @Param id path string true "学生ID"
// @Param body body runWindowBody false "分析窗口（计划周下标，含两端）"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/monitoring/run [post]
func (c *MonitoringController) RunWindow(ctx *gin.Context) {
	studentID := ctx.Param("id")

	var body runWindowBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	var window model.AnalysisWindow
	if body.StartWeek > 0 && body.EndWeek > 0 {
		window = model.AnalysisWindow{StartWeek: body.StartWeek, EndWeek: body.EndWeek}
	} else {
		plan, err := c.Monitoring.RoadmapRepo.FindActive(studentID)
		if errors.Is(err, util.ErrPlanNotFound) {
			util.NotFound(ctx)
			return
		}
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		window = c.Monitoring.CurrentWindow(plan)
	}

	summary, err := c.Monitoring.RunWindow(ctx.Request.Context(), studentID, window)
	switch {
	case errors.Is(err, util.ErrStudentNotFound), errors.Is(err, util.ErrPlanNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrWindowMismatch):
		util.BadRequest(ctx, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, summary)
	}
}

// @Summary 历史监控摘要
// @Tags 监控
// @Produce json
// @Param id path string true "学生ID"
// @Param limit query int false "返回条数"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/monitoring/reports [get]
func (c *MonitoringController) ListReports(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	reports, err := c.ReportRepo.ListRecent(ctx.Param("id"), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}
