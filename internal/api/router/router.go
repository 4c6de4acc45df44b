package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spaxio-scheduled/config"
	"spaxio-scheduled/internal/api/handler"
	"spaxio-scheduled/internal/api/middleware"
	"spaxio-scheduled/pkg/jwt"
)

// 大纲解析调用外部模型，单独收紧频率
const (
	extractRateLimit  = 10
	extractRateWindow = time.Minute
	apiRateLimit      = 300
	apiRateWindow     = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RateLimit(limiter, apiRateLimit, apiRateWindow))
	{
		// 大纲解析
		syllabi := v1.Group("/syllabi")
		{
			syllabi.POST("/extract", middleware.RateLimit(limiter, extractRateLimit, extractRateWindow), h.Syllabus.Extract)
			syllabi.GET("/quota", h.Syllabus.Quota)
		}

		// 课程与周课表
		courses := v1.Group("/courses")
		{
			courses.GET("", h.Course.ListCourses)
			courses.GET("/:id", h.Course.GetCourse)
			courses.PUT("/:id", h.Course.UpdateCourse)
			courses.DELETE("/:id", h.Course.DeleteCourse)
			courses.PUT("/:id/schedule", h.Course.ConfirmSchedule)
			courses.DELETE("/:id/schedule", h.Course.ClearSchedule)
			courses.GET("/:id/events", h.Course.ListCourseEvents)
		}

		// 日历事件
		events := v1.Group("/events")
		{
			events.GET("", h.Event.ListMyEvents)
			events.PUT("/:id", h.Event.UpdateEvent)
			events.DELETE("/:id", h.Event.DeleteEvent)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/ics", h.Export.ExportICS)
			export.GET("/excel", h.Export.ExportExcel)
		}
	}

	return r, nil
}
