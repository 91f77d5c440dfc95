package controller

import (
	"errors"
	"strconv"

	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/service"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RevisionController struct {
	Reconciliation *service.ReconciliationService
	Applier        *service.RevisionApplierService
	RevisionRepo   *repository.RevisionRepository
}

func NewRevisionController(
	reconciliation *service.ReconciliationService,
	applier *service.RevisionApplierService,
	revisionRepo *repository.RevisionRepository,
) *RevisionController {
	return &RevisionController{
		Reconciliation: reconciliation,
		Applier:        applier,
		RevisionRepo:   revisionRepo,
	}
}

// @Summary 调和反馈与监控报告，产出修订
// @Description 同一学生同一时间只允许一次调和在途
// @Tags 修订
// @Produce json
// @Param id path string true "学生ID"
// @Success 201 {object} util.Response
// @Router /api/students/{id}/revisions/reconcile [post]
func (c *RevisionController) Reconcile(ctx *gin.Context) {
	revision, err := c.Reconciliation.Reconcile(ctx.Request.Context(), ctx.Param("id"))
	switch {
	case errors.Is(err, util.ErrStudentNotFound), errors.Is(err, util.ErrPlanNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrReconcileInFlight):
		util.Conflict(ctx, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Created(ctx, revision)
	}
}

// @Summary 应用修订，产出计划的下一版本
// @Tags 修订
// @Produce json
// @Param id path string true "修订ID"
// @Success 200 {object} util.Response
// @Router /api/revisions/{id}/apply [post]
func (c *RevisionController) Apply(ctx *gin.Context) {
	plan, err := c.Applier.Apply(ctx.Param("id"))
	switch {
	case errors.Is(err, util.ErrRevisionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrRevisionApplied),
		errors.Is(err, util.ErrPlanVersionConflict):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrNothingToApply):
		util.BadRequest(ctx, err.Error())
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, plan)
	}
}

// @Summary 修订历史
// @Tags 修订
// @Produce json
// @Param id path string true "学生ID"
// @Param limit query int false "返回条数"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/revisions [get]
func (c *RevisionController) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	revisions, err := c.RevisionRepo.ListByStudent(ctx.Param("id"), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, revisions)
}
