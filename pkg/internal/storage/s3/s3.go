// Package s3 处理S3存储操作，用于归档每次分析的结果.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/file2crashes/pkg/configs"
	nlog "github.com/yeisme/file2crashes/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client
	bucket string
	prefix string
}

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("file2crashes", configs.AppVersion)

	c := &Client{Client: cli, bucket: cfg.Bucket, prefix: cfg.Prefix}
	if err := c.EnsureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("s3 connected")

	return c, nil
}

// EnsureBucket 确保归档 bucket 存在.
func (c *Client) EnsureBucket(ctx context.Context, region string) error {
	if c.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	exists, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if exists {
		return nil
	}

	if err := c.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}

	nlog.Logger().Info().Str("bucket", c.bucket).Msg("bucket created")

	return nil
}

// ObjectKey 拼接带前缀的对象键.
func (c *Client) ObjectKey(name string) string {
	if c.prefix == "" {
		return name
	}

	return strings.TrimRight(c.prefix, "/") + "/" + strings.TrimLeft(name, "/")
}

// PutJSON 将 v 编码为 JSON 写入 name（自动加前缀），返回完整对象键.
func (c *Client) PutJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal archive object: %w", err)
	}

	key := c.ObjectKey(name)

	_, err = c.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return key, nil
}

// HealthCheck 简单的健康检查，通过检查归档桶验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)
	return err
}

// Bucket 返回归档 bucket 名称.
func (c *Client) Bucket() string {
	return c.bucket
}
