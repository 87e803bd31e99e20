package util

import (
	"learnhub_backend/internal/model"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseIDParam 解析路径中的 ID 参数
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParsePage 读取 page / pageSize 查询参数并限制范围
func ParsePage(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = 20
	}
	return page, pageSize
}

// ContentKeyFromPath 从 /:topic/:subtopic/:nested 路由参数构造内容键
func ContentKeyFromPath(c *gin.Context) model.ContentKey {
	return model.ContentKey{
		Topic:       c.Param("topic"),
		Subtopic:    c.Param("subtopic"),
		NestedTopic: c.Param("nested"),
	}
}
