package controller

import (
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminProgressController 管理端进度记录
type AdminProgressController struct {
	ProgressService *service.ProgressService
}

func NewAdminProgressController(progressService *service.ProgressService) *AdminProgressController {
	return &AdminProgressController{ProgressService: progressService}
}

// OverrideProgressRequest 管理员直接设置的进度向量
// swagger:model OverrideProgressRequest
type OverrideProgressRequest struct {
	Objectives model.ProgressVector `json:"objectives" binding:"required"`
}

// List godoc
// @Summary 进度记录列表
// @Tags 进度管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   pageSize query int false "每页条数" default(20)
// @Param   studentId query int false "学生 ID"
// @Param   topic query string false "主题"
// @Param   subtopic query string false "子主题"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.ProgressRecord}} "成功"
// @Router /api/admin/progress [get]
func (c *AdminProgressController) List(ctx *gin.Context) {
	page, pageSize := util.ParsePage(ctx)
	filter := repository.ProgressFilter{
		StudentID: util.MustParseUint(ctx.Query("studentId")),
		Topic:     ctx.Query("topic"),
		Subtopic:  ctx.Query("subtopic"),
	}

	records, total, err := c.ProgressService.ListAll(ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Page(ctx, records, total, page, pageSize)
}

// Get godoc
// @Summary 进度记录详情
// @Tags 进度管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "记录 ID"
// @Success 200 {object} util.Response{data=model.ProgressRecord} "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/admin/progress/{id} [get]
func (c *AdminProgressController) Get(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	rec, err := c.ProgressService.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// Override godoc
// @Summary 覆盖进度
// @Description 直接替换进度向量并重算成绩，最佳成绩不会降低
// @Tags 进度管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "记录 ID"
// @Param   body body OverrideProgressRequest true "进度向量"
// @Success 200 {object} util.Response{data=model.ProgressRecord} "成功"
// @Failure 400 {object} util.Response "向量不合法"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/admin/progress/{id} [put]
func (c *AdminProgressController) Override(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req OverrideProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rec, err := c.ProgressService.Override(ctx.Request.Context(), id, req.Objectives)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// Reset godoc
// @Summary 重置进度
// @Description 删除记录，学生下次访问时重新初始化
// @Tags 进度管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "记录 ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/admin/progress/{id} [delete]
func (c *AdminProgressController) Reset(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	if err := c.ProgressService.Reset(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
