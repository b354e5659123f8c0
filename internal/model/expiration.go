package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExpirationLayout 到期时间的规范存储格式
const ExpirationLayout = "2006-01-02 15:04:05"

// ParseExpiration 归一化存储的到期时间
// 历史写入路径既有 "2006-01-02 15:04:05" 字符串也有unix整数秒
func ParseExpiration(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty expiration value")
	}

	if t, err := time.ParseInLocation(ExpirationLayout, raw, time.Local); err == nil {
		return t, nil
	}

	// 历史遗留的unix秒时间戳
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(ts, 0), nil
	}

	return time.Time{}, fmt.Errorf("unparsable expiration value: %q", raw)
}

// FormatExpiration 以规范格式写出到期时间
func FormatExpiration(t time.Time) string {
	return t.Format(ExpirationLayout)
}
