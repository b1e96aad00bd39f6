package service

import (
	"slices"
	"strings"
	"time"

	"github.com/yeisme/file2crashes/pkg/rule"
)

const (
	DefaultProduct = "Firefox"
	DefaultChannel = "nightly"
)

// Products 支持的产品，键为小写.
var Products = map[string]string{
	"firefox":       "Firefox",
	"fennecandroid": "FennecAndroid",
}

// NormalizeProduct 大小写不敏感地匹配产品名，未知或为空时返回 Firefox.
func NormalizeProduct(p string) string {
	if name, ok := Products[strings.ToLower(strings.TrimSpace(p))]; ok {
		return name
	}

	return DefaultProduct
}

// NormalizeChannel 返回小写的渠道名，未知或为空时返回 nightly.
func NormalizeChannel(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if slices.Contains(rule.Channels, c) {
		return c
	}

	return DefaultChannel
}

// ParseDate 解析 today、yesterday、tomorrow 或 YYYY-MM-DD，返回 UTC 零点.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	}

	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}

	return d, true
}

// NormalizeDate 同 ParseDate，无法解析时返回今天.
func NormalizeDate(s string, now time.Time) time.Time {
	if d, ok := ParseDate(s, now); ok {
		return d
	}

	d, _ := ParseDate("today", now)

	return d
}
