package syllabus

import (
	"strings"
	"time"

	"spaxio-scheduled/internal/model"
)

// MaxWeeklyBlocks 单门课程最多保留的周课表时段数
const MaxWeeklyBlocks = 20

// DayOrder 星期符号表（线路格式），顺序即展示顺序
var DayOrder = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var dayAliases = map[string]string{
	"monday": "Mon", "mon": "Mon",
	"tuesday": "Tue", "tue": "Tue", "tues": "Tue",
	"wednesday": "Wed", "wed": "Wed",
	"thursday": "Thu", "thu": "Thu", "thur": "Thu", "thurs": "Thu",
	"friday": "Fri", "fri": "Fri",
	"saturday": "Sat", "sat": "Sat",
	"sunday": "Sun", "sun": "Sun",
}

var dayWeekdays = map[string]time.Weekday{
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
	"Sun": time.Sunday,
}

// CandidateBlock 模型或用户提交的未校验周课表时段
type CandidateBlock struct {
	Days  []string
	Start string
	End   string
}

// CanonicalDay 将星期全称 / 缩写（大小写不敏感）归一为 Mon..Sun；无法识别返回 false
func CanonicalDay(token string) (string, bool) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(token), "."))
	day, ok := dayAliases[key]
	return day, ok
}

// WeekdayOf 星期符号对应的 time.Weekday
func WeekdayOf(day string) (time.Weekday, bool) {
	wd, ok := dayWeekdays[day]
	return wd, ok
}

// DayOfWeekday time.Weekday 对应的星期符号
func DayOfWeekday(wd time.Weekday) string {
	// DayOrder 从周一开始，time.Weekday 从周日开始
	return DayOrder[(int(wd)+6)%7]
}

// SanitizeBlocks 清洗周课表时段
//
// 步骤：
//  1. 丢弃缺少星期或开始/结束时间的时段
//  2. 星期归一为 Mon..Sun，无法识别的丢弃；星期为空的时段丢弃
//  3. 所有时段星期并集覆盖 7 天 → 视为模型默认猜测（哨兵），返回空课表
//  4. 最多保留 MaxWeeklyBlocks 个时段
//  5. 时间规范为 HH:MM:SS，规范失败的时段丢弃
//
// 返回的 ClassSchedule 同时填好多时段与单时段两种形态。
func SanitizeBlocks(candidates []CandidateBlock) model.ClassSchedule {
	type pending struct {
		days       []string
		start, end string
	}

	var survivors []pending
	union := make(map[string]bool, len(DayOrder))

	for _, c := range candidates {
		if len(c.Days) == 0 || strings.TrimSpace(c.Start) == "" || strings.TrimSpace(c.End) == "" {
			continue
		}

		seen := make(map[string]bool, len(c.Days))
		days := make([]string, 0, len(c.Days))
		for _, token := range c.Days {
			day, ok := CanonicalDay(token)
			if !ok || seen[day] {
				continue
			}
			seen[day] = true
			days = append(days, day)
		}
		if len(days) == 0 {
			continue
		}

		for _, d := range days {
			union[d] = true
		}
		survivors = append(survivors, pending{days: sortDays(days), start: c.Start, end: c.End})
	}

	if len(union) >= len(DayOrder) {
		return model.ClassSchedule{}
	}

	if len(survivors) > MaxWeeklyBlocks {
		survivors = survivors[:MaxWeeklyBlocks]
	}

	blocks := make([]model.WeeklyBlock, 0, len(survivors))
	for _, p := range survivors {
		start := NormalizeTime(p.start)
		end := NormalizeTime(p.end)
		if start == nil || end == nil {
			continue
		}
		blocks = append(blocks, model.WeeklyBlock{Days: p.days, Start: *start, End: *end})
	}

	return scheduleOf(blocks)
}

// scheduleOf 由已校验时段构造两种存储形态
func scheduleOf(blocks []model.WeeklyBlock) model.ClassSchedule {
	if len(blocks) == 0 {
		return model.ClassSchedule{}
	}
	s := model.ClassSchedule{Blocks: blocks}
	if len(blocks) == 1 {
		start, end := blocks[0].Start, blocks[0].End
		s.SingleDays = append([]string(nil), blocks[0].Days...)
		s.SingleStart = &start
		s.SingleEnd = &end
	}
	return s
}

// UnionDays 所有时段星期的并集，按 DayOrder 排序
func UnionDays(blocks []model.WeeklyBlock) []string {
	set := make(map[string]bool, len(DayOrder))
	for _, b := range blocks {
		for _, d := range b.Days {
			set[d] = true
		}
	}
	out := make([]string, 0, len(set))
	for _, d := range DayOrder {
		if set[d] {
			out = append(out, d)
		}
	}
	return out
}

func sortDays(days []string) []string {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	out := make([]string, 0, len(days))
	for _, d := range DayOrder {
		if set[d] {
			out = append(out, d)
		}
	}
	return out
}
