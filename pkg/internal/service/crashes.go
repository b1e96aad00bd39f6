package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/model"
	"github.com/yeisme/file2crashes/pkg/internal/storage/db"
)

// ErrNoDatabase 上下文中没有数据库客户端.
var ErrNoDatabase = errors.New("database client not initialized")

// CrashesService 读写每日的文件证据.
type CrashesService struct {
	dbClient *db.Client
}

func NewCrashesService(c context.Context) *CrashesService {
	return &CrashesService{dbClient: ctxPkg.GetDBClient(c)}
}

func (s *CrashesService) db(ctx context.Context) (*gorm.DB, error) {
	if s.dbClient == nil || s.dbClient.DB == nil {
		return nil, ErrNoDatabase
	}

	return s.dbClient.GetDB().WithContext(ctx), nil
}

// SplitPath 在最后一个 '/' 处拆分目录与文件名，没有 '/' 时目录为空.
func SplitPath(p string) (dir, file string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}

	return p[:i], p[i+1:]
}

// Migrate 建表，返回表是否为新建.
func (s *CrashesService) Migrate(ctx context.Context) (bool, error) {
	dbx, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	created := !dbx.Migrator().HasTable(&model.Crashes{})

	if err := dbx.AutoMigrate(&model.Crashes{}); err != nil {
		return false, fmt.Errorf("migrate crashes: %w", err)
	}

	return created, nil
}

// Count 返回证据总条数.
func (s *CrashesService) Count(ctx context.Context) (int64, error) {
	dbx, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	err = dbx.Model(&model.Crashes{}).Count(&n).Error

	return n, err
}

// Put 写入一条证据；自然键已存在时只覆盖计数.
func (s *CrashesService) Put(ctx context.Context, product, channel string, date time.Time, path, url string, count int, signature string) error {
	dbx, err := s.db(ctx)
	if err != nil {
		return err
	}

	return put(dbx, product, channel, date.Format(time.DateOnly), path, url, count, signature)
}

// keyColumns 与 model.KeyIndex 的列一致.
var keyColumns = []clause.Column{{Name: "product"}, {Name: "channel"}, {Name: "date"}, {Name: "key_hash"}}

func put(tx *gorm.DB, product, channel, date, path, url string, count int, signature string) error {
	dir, file := SplitPath(path)

	// 并发写入同一自然键时由唯一索引裁决，冲突一方改为更新计数
	return tx.Clauses(clause.OnConflict{
		Columns:   keyColumns,
		DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
	}).Create(model.NewCrashes(product, channel, date, dir, file, url, count, signature)).Error
}

// PutResult 在一个事务中写入一次分析的全部证据，结果为空时返回 false.
func (s *CrashesService) PutResult(ctx context.Context, res analyze.Result, date time.Time) (bool, error) {
	if len(res) == 0 {
		return false, nil
	}

	dbx, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	day := date.Format(time.DateOnly)

	err = dbx.Transaction(func(tx *gorm.DB) error {
		for channel, products := range res {
			for product, files := range products {
				for file, evidence := range files {
					for _, ev := range evidence {
						if err := put(tx, product, channel, day, file, ev.URL, ev.Count, ev.Signature); err != nil {
							return fmt.Errorf("put %s/%s %s: %w", channel, product, file, err)
						}
					}
				}
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// Get 返回某目录下每个文件的证据，按计数升序；目录为空时返回空映射.
func (s *CrashesService) Get(ctx context.Context, product, channel, directory string, date time.Time) (map[string][]analyze.Evidence, error) {
	out := make(map[string][]analyze.Evidence)
	if directory == "" {
		return out, nil
	}

	dbx, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Crashes
	if err := dbx.Where(map[string]any{
		"product":   product,
		"channel":   channel,
		"date":      date.Format(time.DateOnly),
		"dir_hash":  model.DirHash(directory),
		"directory": directory,
	}).Order("count ASC").Order("signature ASC").Order("url ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		out[r.File] = append(out[r.File], analyze.Evidence{URL: r.URL, Count: r.Count, Signature: r.Signature})
	}

	return out, nil
}

// ListDirs 返回某天出现过证据的目录，去重后排序.
func (s *CrashesService) ListDirs(ctx context.Context, product, channel string, date time.Time) ([]string, error) {
	dbx, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0)
	err = dbx.Model(&model.Crashes{}).
		Where(map[string]any{"product": product, "channel": channel, "date": date.Format(time.DateOnly)}).
		Distinct("directory").
		Order("directory ASC").
		Pluck("directory", &dirs).Error

	return dirs, err
}
