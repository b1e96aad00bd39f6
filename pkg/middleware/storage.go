package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/storage"
)

// StorageMiddleware 将存储管理器注入请求上下文，供 service 层取用 DB/KV/MQ/S3.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxPkg.WithStorageManager(c.Request.Context(), manager))
		c.Next()
	}
}
