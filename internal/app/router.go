package app

import (
	"study_roadmap_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		// 学生画像与考核成绩
		api.POST("/students", c.student.CreateStudent)
		api.GET("/students/:id", c.student.GetStudent)
		api.PUT("/students/:id", c.student.UpdateStudent)
		api.POST("/students/:id/performance", c.student.AppendPerformance)
		api.GET("/students/:id/performance", c.student.ListPerformance)

		// 学习行为事件流
		api.POST("/students/:id/activities", c.activity.AppendActivities)

		// 资源目录
		api.POST("/resources", c.resource.CreateResource)
		api.GET("/resources", c.resource.ListResources)
		api.GET("/resources/:id", c.resource.GetResource)

		// 路线图生成与生命周期
		api.POST("/students/:id/roadmap", c.roadmap.Generate)
		api.GET("/students/:id/roadmap", c.roadmap.GetActive)
		api.GET("/roadmaps/:id", c.roadmap.GetByID)
		api.PUT("/roadmaps/:id/approve", c.roadmap.Approve)
		api.PUT("/roadmaps/:id/activate", c.roadmap.Activate)
		api.PUT("/roadmaps/:id/tasks/:taskId/status", c.roadmap.UpdateTaskStatus)

		// 监控
		api.POST("/students/:id/monitoring/run", c.monitoring.RunWindow)
		api.GET("/students/:id/monitoring/reports", c.monitoring.ListReports)

		// 反馈与修订
		api.POST("/students/:id/feedback", c.feedback.Submit)
		api.GET("/students/:id/feedback", c.feedback.List)
		api.POST("/students/:id/revisions/reconcile", c.revision.Reconcile)
		api.GET("/students/:id/revisions", c.revision.List)
		api.POST("/revisions/:id/apply", c.revision.Apply)
	}
}
