package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-gap-go/internal/config"
	applog "resume-gap-go/internal/logger"
	"resume-gap-go/internal/tracing"
	"resume-gap-go/pkg/types"
)

var minioTracer = otel.Tracer("resume-gap-go/storage/minio")

// MinIO 对象存储，保存参考语料快照
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO 创建 MinIO 客户端并确保存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, bucket: cfg.BucketName}
	if err := m.ensureBucketExists(context.Background(), cfg.Location); err != nil {
		return nil, err
	}
	applog.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	applog.Info().Str("bucket", m.bucket).Msg("存储桶已创建")
	return nil
}

// Bucket 存储桶名称
func (m *MinIO) Bucket() string {
	return m.bucket
}

// UploadFile 上传对象
func (m *MinIO) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	ctx, span := minioTracer.Start(ctx, "MinIO.PutObject",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.bucket", m.bucket),
			attribute.String("storage.object", objectName),
			attribute.Int64("storage.size", size),
		))
	defer span.End()

	if _, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	return nil
}

// DownloadFile 下载对象，对象不存在时返回 ErrNotFound
func (m *MinIO) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.GetObject",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.bucket", m.bucket),
			attribute.String("storage.object", objectName),
		))
	defer span.End()

	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	defer obj.Close()

	// GetObject 是惰性的，不存在的对象在 Stat 时才报错
	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.bucket, objectName, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.bucket, objectName, err)
	}
	span.SetAttributes(attribute.Int("storage.size", len(data)))
	return data, nil
}

// PutCorpus 将语料快照以 JSON 写入对象存储
func (m *MinIO) PutCorpus(ctx context.Context, objectName string, corpus types.Corpus) error {
	data, err := json.Marshal(corpus)
	if err != nil {
		return fmt.Errorf("序列化语料失败: %w", err)
	}
	return m.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/json")
}

// GetCorpus 读取语料快照
func (m *MinIO) GetCorpus(ctx context.Context, objectName string) (types.Corpus, error) {
	data, err := m.DownloadFile(ctx, objectName)
	if err != nil {
		return types.Corpus{}, err
	}
	var corpus types.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return types.Corpus{}, fmt.Errorf("解析语料快照 %s 失败: %w", objectName, err)
	}
	return corpus, nil
}
