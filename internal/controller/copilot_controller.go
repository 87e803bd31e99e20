package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CopilotController struct {
	CopilotService *service.CopilotService
}

func NewCopilotController(copilotService *service.CopilotService) *CopilotController {
	return &CopilotController{CopilotService: copilotService}
}

// Chat godoc
// @Summary 学习助手对话
// @Description 发送一轮对话；助手根据对话推断各学习目标的掌握情况并合并进页面进度
// @Tags 学习助手
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ChatRequest true "对话内容"
// @Success 200 {object} util.Response{data=service.ChatResult} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "页面或会话不存在"
// @Failure 429 {object} util.Response "请求过于频繁"
// @Failure 502 {object} util.Response "模型服务错误"
// @Failure 503 {object} util.Response "未配置模型服务"
// @Router /api/copilot/chat [post]
func (c *CopilotController) Chat(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	var req service.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CopilotService.Chat(ctx.Request.Context(), studentID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Session godoc
// @Summary 会话历史
// @Tags 学习助手
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "会话 ID"
// @Success 200 {object} util.Response{data=[]model.CopilotMessage} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/copilot/sessions/{id} [get]
func (c *CopilotController) Session(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	messages, err := c.CopilotService.Session(ctx.Request.Context(), studentID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, messages)
}
