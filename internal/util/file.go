package util

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateContentUpload 校验上传的内容树文件：扩展名与嗅探出的 MIME 类型
func ValidateContentUpload(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, e := range AllowedContentExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", errors.New("unsupported content file extension: " + ext)
	}

	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := http.DetectContentType(head)
	if strings.HasPrefix(mimeType, MimeText) || strings.HasPrefix(mimeType, MimeJSON) {
		return mimeType, nil
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// IsYAML 根据文件名判断内容格式
func IsYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
