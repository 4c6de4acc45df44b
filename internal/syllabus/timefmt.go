package syllabus

import (
	"regexp"
	"strings"
)

var calendarDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeTime 将自由格式时间规范为 HH:MM:SS
//
// 空串返回 nil（表示无时间，即全天 / 未排定）。按 ":" 切分，不足两段返回 nil；
// 各分量左补零到两位，缺省秒为 00。不校验 0-23 / 0-59 取值范围，
// 但分量必须是 1~2 位数字，保证非 nil 结果总是 HH:MM:SS 形态。
func NormalizeTime(input string) *string {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return nil
	}

	hh, ok := pad2(parts[0])
	if !ok {
		return nil
	}
	mm, ok := pad2(parts[1])
	if !ok {
		return nil
	}
	ss := "00"
	if len(parts) > 2 {
		if ss, ok = pad2(parts[2]); !ok {
			return nil
		}
	}

	out := hh + ":" + mm + ":" + ss
	return &out
}

// pad2 左补零到两位；仅接受 1~2 位 ASCII 数字
func pad2(part string) (string, bool) {
	p := strings.TrimSpace(part)
	if len(p) == 0 || len(p) > 2 {
		return "", false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return "", false
		}
	}
	if len(p) == 1 {
		return "0" + p, true
	}
	return p, true
}

// IsValidCalendarDate 仅做语法校验：4 位数字-2 位数字-2 位数字
// 不校验日历语义（2025-02-30 也返回 true）
func IsValidCalendarDate(input string) bool {
	return calendarDatePattern.MatchString(input)
}
