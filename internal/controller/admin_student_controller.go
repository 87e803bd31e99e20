package controller

import (
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// StudentController 管理端学生账号
type StudentController struct {
	StudentService *service.StudentService
}

func NewStudentController(studentService *service.StudentService) *StudentController {
	return &StudentController{StudentService: studentService}
}

// DisableRequest 禁用 / 启用
// swagger:model DisableRequest
type DisableRequest struct {
	Disabled bool `json:"disabled"`
}

// List godoc
// @Summary 学生列表
// @Description 分页查询，支持按状态与关键词筛选
// @Tags 学生管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   pageSize query int false "每页条数" default(20)
// @Param   role query string false "角色" Enums(student, admin)
// @Param   status query string false "状态" Enums(active, disabled)
// @Param   search query string false "姓名或邮箱关键词"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.User}} "成功"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/admin/students [get]
func (c *StudentController) List(ctx *gin.Context) {
	page, pageSize := util.ParsePage(ctx)
	filter := repository.UserFilter{
		Role:   model.UserRole(ctx.Query("role")),
		Status: ctx.Query("status"),
		Search: ctx.Query("search"),
	}

	users, total, err := c.StudentService.List(filter, page, pageSize)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Page(ctx, users, total, page, pageSize)
}

// Get godoc
// @Summary 学生详情
// @Tags 学生管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生 ID"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/admin/students/{id} [get]
func (c *StudentController) Get(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	user, err := c.StudentService.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// Create godoc
// @Summary 创建学生
// @Tags 学生管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.StudentInput true "学生信息"
// @Success 201 {object} util.Response{data=model.User} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/admin/students [post]
func (c *StudentController) Create(ctx *gin.Context) {
	var req service.StudentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Password == "" {
		util.BadRequest(ctx, "password is required")
		return
	}

	user, err := c.StudentService.Create(req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// Update godoc
// @Summary 更新学生
// @Description password 为空时不修改密码
// @Tags 学生管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生 ID"
// @Param   body body service.StudentInput true "学生信息"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/admin/students/{id} [put]
func (c *StudentController) Update(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req service.StudentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.StudentService.Update(id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// Delete godoc
// @Summary 删除学生
// @Description 同时删除其进度、测验记录与助手会话
// @Tags 学生管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生 ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/admin/students/{id} [delete]
func (c *StudentController) Delete(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	if claims := util.GetUserFromContext(ctx); claims != nil && claims.UserID == id {
		util.BadRequest(ctx, "cannot delete your own account")
		return
	}

	if err := c.StudentService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SetDisabled godoc
// @Summary 禁用或启用学生
// @Tags 学生管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生 ID"
// @Param   body body DisableRequest true "是否禁用"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/admin/students/{id}/disable [post]
func (c *StudentController) SetDisabled(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req DisableRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.StudentService.SetDisabled(id, req.Disabled)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ResetPassword godoc
// @Summary 重置密码
// @Description 生成临时密码，仅在本次响应中返回
// @Tags 学生管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生 ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/admin/students/{id}/reset-password [post]
func (c *StudentController) ResetPassword(ctx *gin.Context) {
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	tempPassword, err := c.StudentService.ResetPassword(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tempPassword": tempPassword})
}
