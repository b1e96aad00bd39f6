// Package handle 提供 HTTP 请求处理器.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/log"
	"github.com/yeisme/file2crashes/pkg/rule"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// bindQuery 绑定并校验查询参数，失败时写入 400 并返回 false.
func bindQuery(c *gin.Context, obj any) bool {
	err := c.ShouldBindQuery(obj)
	if err == nil {
		err = rule.ValidateStruct(obj)
	}

	if err == nil {
		return true
	}

	body := gin.H{"error": "invalid query"}
	if fields := rule.Errors(err); fields != nil {
		body["fields"] = fields
	} else {
		body["detail"] = err.Error()
	}

	c.JSON(http.StatusBadRequest, body)

	return false
}

// fail 记录错误并按错误类型返回 503 或 500.
func fail(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrNoDatabase) {
		status = http.StatusServiceUnavailable
	}

	log.Logger().Error().Err(err).Str("path", c.FullPath()).Msg(msg)
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
