package controller

import (
	"io"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// GetTree godoc
// @Summary 获取内容树
// @Description 返回全部主题、子主题与知识点页面（不含题库）
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=model.ContentTree} "成功"
// @Router /api/content/topics [get]
func (c *ContentController) GetTree(ctx *gin.Context) {
	util.Success(ctx, c.ContentService.Tree())
}

// GetPage godoc
// @Summary 获取知识点页面
// @Description 返回页面正文与学习目标
// @Tags 内容
// @Produce  json
// @Param   topic path string true "主题"
// @Param   subtopic path string true "子主题"
// @Param   nested path string true "知识点"
// @Success 200 {object} util.Response{data=model.NestedTopic} "成功"
// @Failure 404 {object} util.Response "页面不存在"
// @Router /api/content/topics/{topic}/{subtopic}/{nested} [get]
func (c *ContentController) GetPage(ctx *gin.Context) {
	page, err := c.ContentService.Page(util.ContentKeyFromPath(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// Reload godoc
// @Summary 重新加载内容树
// @Description 从配置的存储重新读取内容树，校验失败时保留当前内容
// @Tags 内容管理
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ContentStats} "成功"
// @Failure 400 {object} util.Response "内容树不合法"
// @Router /api/admin/content/reload [post]
func (c *ContentController) Reload(ctx *gin.Context) {
	stats, err := c.ContentService.Reload(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// Upload godoc
// @Summary 上传内容树
// @Description 上传 JSON 或 YAML 内容树，校验通过后写回存储并立即生效
// @Tags 内容管理
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "内容树文件"
// @Success 200 {object} util.Response{data=service.ContentStats} "成功"
// @Failure 400 {object} util.Response "内容树不合法"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/admin/content [put]
func (c *ContentController) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if file.Size > util.MaxContentBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "content file too large")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, util.MaxContentBytes+1))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	stats, err := c.ContentService.Upload(ctx.Request.Context(), file.Filename, data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
