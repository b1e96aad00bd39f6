package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
)

const timeout = 2 * time.Second

var errNotConfigured = errors.New("client not initialized")

type probe func(ctx context.Context) error

// probes 各组件的健康检查；S3 与 MQ 为可选组件.
var probes = map[string]probe{
	"db": func(ctx context.Context) error {
		dbc := ctxPkg.GetDBClient(ctx)
		if dbc == nil || dbc.DB == nil {
			return errNotConfigured
		}

		return dbc.Ping(ctx)
	},
	"s3": func(ctx context.Context) error {
		s3c := ctxPkg.GetS3Client(ctx)
		if s3c == nil || s3c.Client == nil {
			return errNotConfigured
		}

		return s3c.HealthCheck(ctx)
	},
	"mq": func(ctx context.Context) error {
		if ctxPkg.GetMQClient(ctx) == nil {
			return errNotConfigured
		}

		return nil
	},
	"kv": func(ctx context.Context) error {
		kvc := ctxPkg.GetKVClient(ctx)
		if kvc == nil {
			return errNotConfigured
		}

		_, err := kvc.Exists(ctx, "health")

		return err
	},
}

// Health 返回单个组件的健康状态，组件名取自路由参数 :component.
func Health(c *gin.Context) {
	component := c.Param("component")

	check, ok := probes[component]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"component": component, "error": "unknown component"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": component, "status": "ok"})
}

// HealthAll 汇总全部组件；只有 db 不可用时返回 503.
func HealthAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	components := gin.H{}
	status := http.StatusOK

	for name, check := range probes {
		if err := check(ctx); err != nil {
			components[name] = gin.H{"status": "unhealthy", "error": err.Error()}

			if name == "db" {
				status = http.StatusServiceUnavailable
			}

			continue
		}

		components[name] = gin.H{"status": "ok"}
	}

	c.JSON(status, gin.H{"components": components})
}
