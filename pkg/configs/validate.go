package configs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yeisme/file2crashes/pkg/rule"
)

// Validate 使用 rule 标签校验配置，聚合所有字段错误.
func Validate(c *AppConfig) error {
	err := rule.ValidateStruct(c)
	if err == nil {
		return nil
	}

	errs := rule.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(errs))
	for field, msg := range errs {
		msgs = append(msgs, field+": "+msg)
	}

	sort.Strings(msgs)

	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
