package utils

import "strings"

// IsAllEmpty 全部参数为空串时返回 true
func IsAllEmpty(args ...string) bool {
	for _, a := range args {
		if a != "" {
			return false
		}
	}
	return true
}

// Dedupe 去重并保持首次出现的顺序
func Dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// EscapeLike 转义 LIKE 通配符，配合 ESCAPE '!' 使用
func EscapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// ToLowerASCII 只折叠 A-Z，其余字符原样保留（与 SQLite 内置 LOWER() 一致）
func ToLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
