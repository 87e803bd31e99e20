package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/util"
	"os"
	"path/filepath"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ContentStore 内容树文件的读写后端
type ContentStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte, contentType string) error
	Describe() string
}

// LocalContentStore 本地文件
type LocalContentStore struct{}

func (LocalContentStore) Read(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (LocalContentStore) Write(ctx context.Context, name string, data []byte, contentType string) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	// 先写临时文件再 rename，避免文件监听读到半个文件
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}

func (LocalContentStore) Describe() string { return util.ContentSourceFile }

// MinioContentStore MinIO 存储
type MinioContentStore struct {
	Bucket string
	Client *minio.Client
}

func NewMinioContentStore(cfg *config.StorageConfig) (*MinioContentStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioContentStore{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (s *MinioContentStore) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(io.LimitReader(obj, util.MaxContentBytes+1))
}

func (s *MinioContentStore) Write(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioContentStore) Describe() string { return util.ContentSourceMinio + ":" + s.Bucket }

// OSSContentStore 阿里云OSS存储
type OSSContentStore struct {
	BucketName string
	Client     *oss.Client
}

func NewOSSContentStore(cfg *config.StorageConfig) (*OSSContentStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSContentStore{BucketName: cfg.OSSBucket, Client: client}, nil
}

func (s *OSSContentStore) Read(ctx context.Context, name string) ([]byte, error) {
	bucket, err := s.Client.Bucket(s.BucketName)
	if err != nil {
		return nil, err
	}
	body, err := bucket.GetObject(name, oss.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(io.LimitReader(body, util.MaxContentBytes+1))
}

func (s *OSSContentStore) Write(ctx context.Context, name string, data []byte, contentType string) error {
	bucket, err := s.Client.Bucket(s.BucketName)
	if err != nil {
		return err
	}
	return bucket.PutObject(name, bytes.NewReader(data), oss.ContentType(contentType), oss.WithContext(ctx))
}

func (s *OSSContentStore) Describe() string { return util.ContentSourceOSS + ":" + s.BucketName }

// NewContentStore 按配置选择内容树后端
func NewContentStore(cfg *config.Config) (ContentStore, error) {
	switch cfg.Content.Source {
	case util.ContentSourceMinio:
		return NewMinioContentStore(&cfg.Storage)
	case util.ContentSourceOSS:
		return NewOSSContentStore(&cfg.Storage)
	case util.ContentSourceFile, "":
		return LocalContentStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported content source %q", cfg.Content.Source)
	}
}
