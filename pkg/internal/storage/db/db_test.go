package db_test

import (
	"context"
	"testing"

	"github.com/yeisme/file2crashes/pkg/configs"
	"github.com/yeisme/file2crashes/pkg/internal/storage/db"
)

// TestNewSQLiteMemory 测试使用内存 SQLite 打开数据库.
func TestNewSQLiteMemory(t *testing.T) {
	cfg := configs.DBConfig{Type: configs.SQLite, Database: "test", DSN: "file::memory:?cache=shared", MaxIdleConns: 1}

	c, err := db.New(context.Background(), cfg, db.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

// TestNewUnsupportedType 测试未注册类型报错.
func TestNewUnsupportedType(t *testing.T) {
	cfg := configs.DBConfig{Type: "oracle", DSN: "x"}

	if _, err := db.New(context.Background(), cfg, db.Options{}); err == nil {
		t.Fatal("expected unsupported database type error")
	}
}

// TestRegisteredTypes 测试默认构建注册了全部方言.
func TestRegisteredTypes(t *testing.T) {
	want := map[configs.DBType]bool{
		configs.SQLite: false, configs.MySQL: false, configs.MariaDB: false,
		configs.PostgreSQL: false, configs.Postgres: false, configs.Pg: false,
	}

	for _, typ := range db.GetRegisteredDBTypes() {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}

	for typ, found := range want {
		if !found {
			t.Errorf("dialector %s not registered", typ)
		}
	}
}
