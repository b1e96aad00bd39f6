package analyze

import (
	"regexp"
	"strings"
)

// locatorPattern hg:<host>[...]:<path>:<revision>，只匹配前缀.
var locatorPattern = regexp.MustCompile(`^hg:hg\.mozilla\.org[^:]*:([^:]*):([a-z0-9]+)`)

// deniedDirs 构建输出目录，其中的文件不作为证据.
var deniedDirs = []string{"obj-firefox"}

// ResolveFile 从版本库定位串中取出仓库相对路径.
// 不匹配、位于被拒绝的目录或输入为空时返回空串.
func ResolveFile(uri string) string {
	if uri == "" {
		return ""
	}

	m := locatorPattern.FindStringSubmatch(uri)
	if m == nil {
		return ""
	}

	p := m[1]
	for _, d := range deniedDirs {
		if strings.HasPrefix(p, d) {
			return ""
		}
	}

	return p
}
