package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"ai-recruiter-go/internal/config"
	"ai-recruiter-go/internal/logger"
)

// ResumeObjectStore 简历文件对象存储接口
type ResumeObjectStore interface {
	// UploadResume 上传简历原件，返回对象键
	UploadResume(ctx context.Context, applicationID, fileExt string, reader io.Reader, fileSize int64, contentType string) (string, error)

	// PresignResumeURL 生成限时下载链接
	PresignResumeURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

var _ ResumeObjectStore = (*MinIO)(nil)

// MinIO 对象存储适配器
type MinIO struct {
	client       *minio.Client
	cfg          *config.MinIOConfig
	resumeBucket string
}

// NewMinIO 创建MinIO客户端并确保简历存储桶就绪
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.ResumeBucket
	if bucket == "" {
		bucket = "resumes"
	}

	m := &MinIO{
		client:       client,
		cfg:          cfg,
		resumeBucket: bucket,
	}

	if err := m.ensureBucketExists(bucket); err != nil {
		return nil, fmt.Errorf("确保简历存储桶 %s 存在失败: %w", bucket, err)
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", bucket).Msg("MinIO客户端就绪")
	return m, nil
}

func (m *MinIO) ensureBucketExists(bucketName string) error {
	ctx := context.Background()
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	logger.Info().Str("bucket", bucketName).Msg("存储桶已创建")
	return nil
}

// SetupLifecycleRule 为简历桶设置过期天数，expiryDays<=0时不设置
func (m *MinIO) SetupLifecycleRule(ctx context.Context, expiryDays int) error {
	if expiryDays <= 0 {
		return nil
	}
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "expire-resumes",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	if err := m.client.SetBucketLifecycle(ctx, m.resumeBucket, lc); err != nil {
		return fmt.Errorf("为存储桶 %s 设置生命周期失败: %w", m.resumeBucket, err)
	}
	return nil
}

// UploadResume 上传简历原件，对象键为 resumes/{applicationID}{ext}
func (m *MinIO) UploadResume(ctx context.Context, applicationID, fileExt string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/pdf"
	}
	objectName := path.Join("resumes", applicationID+fileExt)

	_, err := m.client.PutObject(ctx, m.resumeBucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传简历 %s 失败: %w", objectName, err)
	}

	logger.Debug().Str("object", objectName).Int64("size", fileSize).Msg("简历已上传到对象存储")
	return objectName, nil
}

// PresignResumeURL 生成限时下载链接
func (m *MinIO) PresignResumeURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	u, err := m.client.PresignedGetObject(ctx, m.resumeBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}
