// Package privacy 对人口统计分组做k-匿名式的抑制：人数过少的分组统一归入 "Other"。
//
// 同时展示的多个子集（例如同配对与跨配对的评论）必须合并后一次性处理，
// 否则同一个分组值可能在一个子集中可见、在另一个子集中被隐藏，匿名性随之失效。
package privacy

import "strings"

const (
	// DefaultMinGroupSize 是分组保持原标签所需的最少记录数
	DefaultMinGroupSize = 5
	// Unknown 是缺失属性的分组标签
	Unknown = "unknown"
	// Other 是被抑制分组的统一标签
	Other = "Other"
)

// Normalize 把空白属性值映射为 Unknown
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return Unknown
	}
	return value
}

// ProtectLabels 返回与输入等长、顺序一致的标签切片。
// 计数基于整个输入；出现次数少于 minGroupSize 的标签被替换为 Other。
func ProtectLabels(values []string, minGroupSize int) []string {
	if minGroupSize <= 0 {
		minGroupSize = DefaultMinGroupSize
	}

	normalized := make([]string, len(values))
	counts := make(map[string]int, len(values))
	for i, v := range values {
		normalized[i] = Normalize(v)
		counts[normalized[i]]++
	}

	out := make([]string, len(values))
	for i, label := range normalized {
		if counts[label] < minGroupSize {
			out[i] = Other
		} else {
			out[i] = label
		}
	}
	return out
}

// Protect 对任意记录应用 ProtectLabels。
// get 读取记录的属性值，set 返回替换标签后的记录副本；输入切片不会被修改。
func Protect[T any](records []T, minGroupSize int, get func(T) string, set func(T, string) T) []T {
	values := make([]string, len(records))
	for i, r := range records {
		values[i] = get(r)
	}
	labels := ProtectLabels(values, minGroupSize)

	out := make([]T, len(records))
	for i, r := range records {
		out[i] = set(r, labels[i])
	}
	return out
}
