package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("account disabled")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrRecordNotFound     = errors.New("progress record not found")
	ErrUnknownTopic       = errors.New("unknown topic")
	ErrUnknownQuestion    = errors.New("unknown quiz question")
	ErrNoQuiz             = errors.New("no quiz for this topic")
	ErrSessionNotFound    = errors.New("copilot session not found")
	ErrInvalidContent     = errors.New("invalid content tree")
	ErrInvalidVector      = errors.New("invalid progress vector")
	ErrCopilotUnavailable = errors.New("copilot is not configured")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrPasswordRequired   = errors.New("password is required")
)
