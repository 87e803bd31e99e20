package controller

import (
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	Hub             *service.ProgressHub
}

func NewProgressController(progressService *service.ProgressService, hub *service.ProgressHub) *ProgressController {
	return &ProgressController{ProgressService: progressService, Hub: hub}
}

// ApplyProgressRequest 前端上报的进度向量
// swagger:model ApplyProgressRequest
type ApplyProgressRequest struct {
	Objectives model.ProgressVector `json:"objectives" binding:"required"`
}

// EvaluateRequest 纯计算请求
// swagger:model EvaluateRequest
type EvaluateRequest struct {
	Previous     model.ProgressVector `json:"previous"`
	Incoming     model.ProgressVector `json:"incoming"`
	ExistingBest *int                 `json:"existingBest" binding:"omitempty,min=0,max=100"`
}

// Evaluate godoc
// @Summary 合并并评分
// @Description 合并两个进度向量并计算成绩，不保存
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Param   body body EvaluateRequest true "进度向量"
// @Success 200 {object} util.Response{data=service.EvaluateResult} "成功"
// @Failure 400 {object} util.Response "状态值不合法"
// @Router /api/progress/evaluate [post]
func (c *ProgressController) Evaluate(ctx *gin.Context) {
	var req EvaluateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, c.ProgressService.Evaluate(req.Previous, req.Incoming, req.ExistingBest))
}

// ListMine godoc
// @Summary 我的全部进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ProgressRecord} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/progress [get]
func (c *ProgressController) ListMine(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	records, err := c.ProgressService.List(ctx.Request.Context(), studentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// Load godoc
// @Summary 加载页面进度
// @Description 首次访问时初始化为全部未达成
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   topic path string true "主题"
// @Param   subtopic path string true "子主题"
// @Param   nested path string true "知识点"
// @Success 200 {object} util.Response{data=service.ProgressUpdate} "成功"
// @Failure 404 {object} util.Response "页面不存在"
// @Router /api/progress/{topic}/{subtopic}/{nested} [get]
func (c *ProgressController) Load(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	update, err := c.ProgressService.Load(ctx.Request.Context(), studentID, util.ContentKeyFromPath(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, update)
}

// Apply godoc
// @Summary 合并页面进度
// @Description 与已保存进度逐位取高后保存；保存失败时返回 persisted=false 与警告
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   topic path string true "主题"
// @Param   subtopic path string true "子主题"
// @Param   nested path string true "知识点"
// @Param   body body ApplyProgressRequest true "进度向量"
// @Success 200 {object} util.Response{data=service.ProgressUpdate} "成功"
// @Failure 400 {object} util.Response "状态值不合法"
// @Failure 404 {object} util.Response "页面不存在"
// @Router /api/progress/{topic}/{subtopic}/{nested} [post]
func (c *ProgressController) Apply(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	var req ApplyProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	update, err := c.ProgressService.Apply(ctx.Request.Context(), studentID, util.ContentKeyFromPath(ctx), req.Objectives, model.SourceClient)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, update)
}

// Stream godoc
// @Summary 进度推送
// @Description 建立 websocket 连接，推送本人所有页面的进度更新；令牌通过 token 查询参数传递
// @Tags 学习进度
// @Param   token query string true "JWT"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/progress/ws [get]
func (c *ProgressController) Stream(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	if err := c.Hub.ServeWS(ctx.Writer, ctx.Request, studentID); err != nil {
		// Upgrade 失败时已写回 HTTP 错误
		logger.Log.Warn("WebSocket upgrade failed", zap.Uint("studentId", studentID), zap.Error(err))
	}
}
