package controller

import (
	"net/http"

	"study_roadmap_backend/internal/service"
	"study_roadmap_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	Cycle *service.CycleService
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, cycle *service.CycleService) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Cycle: cycle}
}

// @Summary 健康检查
// @Description 检查数据库、redis（调和锁与趋势状态依赖）和周期调度器状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	// redis 不可达时调和锁和趋势比对会降级，标记 degraded 但不拉闸
	redisState := "up"
	status := "ok"
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx.Request.Context()).Err(); err != nil {
			redisState = "down"
			status = "degraded"
		}
	} else {
		redisState = "disabled"
	}

	cycleState := "disabled"
	if c.Cycle != nil && c.Cycle.Running() {
		cycleState = "scheduled"
	}

	util.Success(ctx, gin.H{
		"status": status,
		"components": gin.H{
			"database": "up",
			"redis":    redisState,
			"cycle":    cycleState,
		},
	})
}
