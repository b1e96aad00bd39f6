// Package storage 聚合数据库、KV 缓存、消息队列与对象存储客户端.
//
// Example:
//
//	mgr, err := storage.New(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/file2crashes/pkg/configs"
	dbc "github.com/yeisme/file2crashes/pkg/internal/storage/db"
	kvc "github.com/yeisme/file2crashes/pkg/internal/storage/kv"
	mqc "github.com/yeisme/file2crashes/pkg/internal/storage/mq"
	s3c "github.com/yeisme/file2crashes/pkg/internal/storage/s3"
	nlog "github.com/yeisme/file2crashes/pkg/log"
	"github.com/yeisme/file2crashes/pkg/metrics"
)

// Manager 聚合所有存储资源，MQ 与 S3 未启用时为 nil.
type Manager struct {
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
	S3 *s3c.Client
}

// New 按配置初始化存储资源，任一已启用的组件失败即返回错误并释放已创建资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	dbi, err := dbc.New(ctx, cfg.DB, dbc.Options{
		Debug:          cfg.Server.Debug,
		Metrics:        cfg.Metrics.Enabled,
		MetricsRefresh: cfg.Metrics.DBRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	kvi, err := kvc.NewKVClient(ctx, cfg.KV)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init kv: %w", err)
	}

	m.KV = kvi

	if cfg.MQ.Enabled {
		opts := mqc.Options{}
		if cfg.Metrics.Enabled {
			opts.Registerer = metrics.GetRegistry()
		}

		mqi, err := mqc.New(ctx, cfg.MQ, opts)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("init mq: %w", err)
		}

		m.MQ = mqi
	}

	if cfg.S3.Enabled {
		s3i, err := s3c.New(ctx, cfg.S3)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("init s3: %w", err)
		}

		m.S3 = s3i
	}

	nlog.Logger().Info().
		Bool("mq", m.MQ != nil).
		Bool("s3", m.S3 != nil).
		Str("kv", cfg.KV.Type).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// Close 释放所有资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
