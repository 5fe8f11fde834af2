package pairkey

import (
	"strings"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
)

// Separator 是连接两个ID的分隔符。
// 条目ID统一使用UUID，UUID中不会出现该字符。
const Separator = "_"

// Encode 生成一对ID的规范键：按字符串顺序排列后以分隔符连接。
// Encode(a, b) == Encode(b, a)，a == b 时同样有效。
func Encode(idA, idB string) string {
	low, high := Order(idA, idB)
	return low + Separator + high
}

// Order 返回按字符串顺序排列的两个ID。
func Order(idA, idB string) (low, high string) {
	if idB < idA {
		return idB, idA
	}
	return idA, idB
}

// Decode 从规范键中拆出两个ID。
// 以下情况视为格式错误：缺少分隔符、任一侧为空、右侧仍含分隔符（无法无歧义拆分）、两侧不是规范顺序。
func Decode(key string) (low, high string, err error) {
	idx := strings.Index(key, Separator)
	if idx < 0 {
		return "", "", malformed(key, "缺少分隔符")
	}
	low, high = key[:idx], key[idx+len(Separator):]
	if low == "" || high == "" {
		return "", "", malformed(key, "ID不能为空")
	}
	if strings.Contains(high, Separator) {
		return "", "", malformed(key, "ID中包含分隔符")
	}
	if high < low {
		return "", "", malformed(key, "ID不是规范顺序")
	}
	return low, high, nil
}

// ValidID 判断一个ID能否被无歧义地编码进规范键。
func ValidID(id string) bool {
	return id != "" && !strings.Contains(id, Separator)
}

// SamePair 判断规范键是否恰好对应给定的无序ID对。
func SamePair(key, idA, idB string) bool {
	low, high, err := Decode(key)
	if err != nil {
		return false
	}
	wantLow, wantHigh := Order(idA, idB)
	return low == wantLow && high == wantHigh
}

func malformed(key, reason string) error {
	return apperr.New(apperr.CodeMalformedKey, "无效的配对键: "+reason).WithDetail("pairKey", key)
}
