package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// CalculateFileMD5 计算文件内容的MD5值，用于去重
func CalculateFileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ConvertArrayToJSON 将字符串切片序列化为JSON字节，失败时返回空数组
func ConvertArrayToJSON(arr []string) []byte {
	if arr == nil {
		arr = []string{}
	}
	data, err := json.Marshal(arr)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// TruncateRunes 按字符数截断文本，用于控制提示词长度
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// IsLikelyEmail 粗略判断是否为可投递的邮箱地址
func IsLikelyEmail(s string) bool {
	return strings.Contains(s, "@")
}
