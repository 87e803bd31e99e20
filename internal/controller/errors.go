package controller

import (
	"errors"
	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 状态码，未识别的错误记日志后返回 500
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUnknownTopic),
		errors.Is(err, util.ErrNoQuiz),
		errors.Is(err, util.ErrRecordNotFound),
		errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrSessionNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrUnknownQuestion),
		errors.Is(err, util.ErrInvalidVector),
		errors.Is(err, util.ErrPasswordRequired),
		errors.Is(err, util.ErrInvalidContent):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrUserDisabled),
		errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrTooManyRequests):
		util.TooManyRequests(ctx)
	case errors.Is(err, util.ErrCopilotUnavailable):
		util.Error(ctx, http.StatusServiceUnavailable, err.Error())
	case isLLMError(err):
		util.BadGateway(ctx, "copilot backend error: "+llm.Classify(err))
	default:
		util.LogInternalError(ctx, err)
	}
}

func isLLMError(err error) bool {
	var rl *llm.ErrRateLimit
	var inv *llm.ErrInvalidResponse
	var unavail *llm.ErrProviderUnavailable
	var maxTok *llm.ErrMaxTokensExceeded
	return errors.As(err, &rl) || errors.As(err, &inv) || errors.As(err, &unavail) || errors.As(err, &maxTok)
}

// currentStudentID 令牌中的用户 ID，未登录时已被中间件拦截
func currentStudentID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}
