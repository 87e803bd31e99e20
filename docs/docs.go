// Package docs 由 swag init 生成，接口变更后请重新生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API支持",
            "email": "support@learnhub.local"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["系统"], "summary": "健康检查", "responses": {"200": {"description": "OK"}}}},
        "/login": {"post": {"tags": ["认证"], "summary": "登录", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/me": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["认证"], "summary": "当前用户", "responses": {"200": {"description": "OK"}}}},
        "/content/topics": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["内容"], "summary": "内容目录树", "responses": {"200": {"description": "OK"}}}},
        "/content/topics/{topic}/{subtopic}/{nested}": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["内容"], "summary": "学习页面", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/progress": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["学习进度"], "summary": "我的全部进度", "responses": {"200": {"description": "OK"}}}},
        "/progress/evaluate": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["学习进度"], "summary": "合并并评分（不保存）", "responses": {"200": {"description": "OK"}}}},
        "/progress/ws": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["学习进度"], "summary": "进度推送 WebSocket", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/progress/{topic}/{subtopic}/{nested}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["学习进度"], "summary": "加载页面进度", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["学习进度"], "summary": "合并新观测的进度", "responses": {"200": {"description": "OK"}}}
        },
        "/quiz/{topic}/{subtopic}/{nested}": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["测验"], "summary": "获取测验题目", "responses": {"200": {"description": "OK"}}}},
        "/quiz/{topic}/{subtopic}/{nested}/submit": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["测验"], "summary": "提交测验", "responses": {"200": {"description": "OK"}}}},
        "/quiz/{topic}/{subtopic}/{nested}/attempts": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["测验"], "summary": "测验记录", "responses": {"200": {"description": "OK"}}}},
        "/copilot/chat": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["学习助手"], "summary": "与学习助手对话", "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}}}},
        "/copilot/sessions/{id}": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["学习助手"], "summary": "会话历史", "responses": {"200": {"description": "OK"}}}},
        "/admin/content": {"put": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-内容"], "summary": "上传内容树", "responses": {"200": {"description": "OK"}}}},
        "/admin/content/reload": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-内容"], "summary": "重新加载内容树", "responses": {"200": {"description": "OK"}}}},
        "/admin/students": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "学生列表", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "创建学生", "responses": {"201": {"description": "Created"}}}
        },
        "/admin/students/{id}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "学生详情", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "更新学生", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "删除学生", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/students/{id}/disable": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "启用或禁用账号", "responses": {"200": {"description": "OK"}}}},
        "/admin/students/{id}/reset-password": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-学生"], "summary": "重置密码", "responses": {"200": {"description": "OK"}}}},
        "/admin/progress": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-进度"], "summary": "进度记录列表", "responses": {"200": {"description": "OK"}}}},
        "/admin/progress/{id}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-进度"], "summary": "进度记录详情", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-进度"], "summary": "覆盖进度", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"ApiKeyAuth": []}], "tags": ["管理-进度"], "summary": "重置进度", "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "LearnHub 后端 API",
	Description:      "LearnHub 学习平台的后端服务器：学习进度、测验与学习助手。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
