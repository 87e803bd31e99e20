package util

const MaxPageSize = 100

// 内容树来源
const (
	ContentSourceFile  = "file"
	ContentSourceMinio = "minio"
	ContentSourceOSS   = "oss"
)

// 内容树上传相关常量
const (
	MimeJSON        = "application/json"
	MimeText        = "text/"
	MaxContentBytes = 8 << 20
)

var (
	AllowedContentExtensions = []string{".json", ".yaml", ".yml"}
)
