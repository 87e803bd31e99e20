package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Content *service.ContentService
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, content *service.ContentService) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Content: content}
}

// @Summary 健康检查
// @Description 检查数据库、缓存与内容树状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	cache := "disabled"
	if c.Redis != nil {
		cache = "up"
		if err := c.Redis.Ping(ctx.Request.Context()).Err(); err != nil {
			cache = "down"
		}
	}

	components := gin.H{
		"database": "up",
		"cache":    cache,
	}
	if c.Content != nil {
		components["content"] = c.Content.Stats()
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
