package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// SubmitQuizRequest 题目 ID 到所选选项下标
// swagger:model SubmitQuizRequest
type SubmitQuizRequest struct {
	Answers map[string]int `json:"answers" binding:"required"`
}

// GetQuiz godoc
// @Summary 获取测验题目
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   topic path string true "主题"
// @Param   subtopic path string true "子主题"
// @Param   nested path string true "知识点"
// @Success 200 {object} util.Response{data=[]model.QuizQuestionView} "成功"
// @Failure 404 {object} util.Response "页面不存在或没有测验"
// @Router /api/quiz/{topic}/{subtopic}/{nested} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	questions, err := c.QuizService.Quiz(util.ContentKeyFromPath(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// Submit godoc
// @Summary 提交测验
// @Description 判分并将推导出的学习目标进度合并进页面进度；未作答的题目按答错处理
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   topic path string true "主题"
// @Param   subtopic path string true "子主题"
// @Param   nested path string true "知识点"
// @Param   body body SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.QuizResult} "成功"
// @Failure 400 {object} util.Response "包含未知题目"
// @Failure 404 {object} util.Response "页面不存在或没有测验"
// @Router /api/quiz/{topic}/{subtopic}/{nested}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.Submit(ctx.Request.Context(), studentID, util.ContentKeyFromPath(ctx), req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Attempts godoc
// @Summary 测验历史
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   topic path string true "主题"
// @Param   subtopic path string true "子主题"
// @Param   nested path string true "知识点"
// @Param   limit query int false "条数" default(20)
// @Success 200 {object} util.Response{data=[]model.QuizAttempt} "成功"
// @Router /api/quiz/{topic}/{subtopic}/{nested}/attempts [get]
func (c *QuizController) Attempts(ctx *gin.Context) {
	studentID, ok := currentStudentID(ctx)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	attempts, err := c.QuizService.Attempts(ctx.Request.Context(), studentID, util.ContentKeyFromPath(ctx), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
