package controller

import (
	"errors"
	"strconv"

	"study_roadmap_backend/internal/model"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResourceController struct {
	ResourceRepo *repository.ResourceRepository
}

func NewResourceController(resourceRepo *repository.ResourceRepository) *ResourceController {
	return &ResourceController{ResourceRepo: resourceRepo}
}

type resourceBody struct {
	Title            string `json:"title" binding:"required"`
	Kind             string `json:"kind"`
	Subject          string `json:"subject" binding:"required"`
	Topic            string `json:"topic" binding:"required"`
	Difficulty       int    `json:"difficulty" binding:"required"`
	EstimatedMinutes int    `json:"estimatedMinutes" binding:"required"`
}

// @Summary 新增学习资源
// @Tags 资源目录
// @Accept json
// @Produce json
// @Param body body resourceBody true "资源"
// @Success 201 {object} util.Response
// @Router /api/resources [post]
func (c *ResourceController) CreateResource(ctx *gin.Context) {
	var body resourceBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if body.Difficulty < model.DifficultyBasic || body.Difficulty > model.DifficultyAdvanced {
		util.BadRequest(ctx, "difficulty must be within 1..4")
		return
	}
	if body.EstimatedMinutes <= 0 {
		util.BadRequest(ctx, "estimatedMinutes must be positive")
		return
	}
	kind := body.Kind
	if kind == "" {
		kind = "video"
	}

	resource := &model.LearningResource{
		ID:               uuid.New().String(),
		Title:            body.Title,
		Kind:             kind,
		Subject:          body.Subject,
		Topic:            body.Topic,
		Difficulty:       body.Difficulty,
		EstimatedMinutes: body.EstimatedMinutes,
	}
	if err := c.ResourceRepo.Create(resource); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, resource)
}

// @Summary 资源目录分页列表
// @Tags 资源目录
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/resources [get]
func (c *ResourceController) ListResources(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	resources, total, err := c.ResourceRepo.ListAll(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"items": resources,
		"total": total,
		"page":  page,
	})
}

// @Summary 查询单个资源
// @Tags 资源目录
// @Produce json
// @Param id path string true "资源ID"
// @Success 200 {object} util.Response
// @Router /api/resources/{id} [get]
func (c *ResourceController) GetResource(ctx *gin.Context) {
	resource, err := c.ResourceRepo.FindByID(ctx.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, resource)
}
