package service

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/syllabus"
)

// ── 课次窗口与周课表展开 ──────────────────────────────────────
//
// 窗口规则：
//   - 起点默认当天；调用方可显式指定更早或更晚的起点
//   - 学期开始日期在未来时，起点提升到学期开始
//   - 终点：显式指定 > 学期结束 > 起点 + 120 天所在月的月末
//   - 学期结束是硬上限；起点晚于终点时终点取起点
//   - 任何情况下窗口不超过 730 天
// ─────────────────────────────────────────────────────────────

const (
	defaultHorizonDays = 120
	maxWindowDays      = 730
)

// Window 课次生成窗口（浮动日期，两端均含）
type Window struct {
	Start time.Time
	End   time.Time
}

// Occurrence 展开后的一次课次
type Occurrence struct {
	Date       time.Time
	Block      model.WeeklyBlock
	BlockIndex int
}

// ResolveWindow 计算课次生成窗口
func ResolveWindow(today time.Time, termStart, termEnd, reqStart, reqEnd *time.Time) Window {
	today = model.DateOf(today)

	start := today
	if reqStart != nil {
		start = model.DateOf(*reqStart)
	}
	if termStart != nil {
		ts := model.DateOf(*termStart)
		if ts.After(today) && ts.After(start) {
			start = ts
		}
	}

	var end time.Time
	switch {
	case reqEnd != nil:
		end = model.DateOf(*reqEnd)
	case termEnd != nil:
		end = model.DateOf(*termEnd)
	default:
		end = HorizonEnd(start)
	}
	if termEnd != nil {
		if te := model.DateOf(*termEnd); te.Before(end) {
			end = te
		}
	}
	if start.After(end) {
		end = start
	}
	if limit := start.AddDate(0, 0, maxWindowDays); end.After(limit) {
		end = limit
	}

	return Window{Start: start, End: end}
}

// HorizonEnd 无学期结束日期时的默认终点：from + 120 天所在月的月末
func HorizonEnd(from time.Time) time.Time {
	return endOfMonth(model.DateOf(from).AddDate(0, 0, defaultHorizonDays))
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// ExpandWeeklyBlocks 将周课表展开为窗口内的具体课次
//
// 同一天命中多个时段时每个时段各生成一次，不去重；结果按日期、时段顺序排列
func ExpandWeeklyBlocks(blocks []model.WeeklyBlock, w Window) []Occurrence {
	var out []Occurrence

	for idx, b := range blocks {
		byDay := make([]rrule.Weekday, 0, len(b.Days))
		for _, d := range b.Days {
			if wd, ok := rruleWeekdays[d]; ok {
				byDay = append(byDay, wd)
			}
		}
		if len(byDay) == 0 {
			continue
		}

		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   w.Start,
			Until:     w.End,
			Byweekday: byDay,
		})
		if err != nil {
			continue
		}

		for _, d := range r.Between(w.Start, w.End, true) {
			out = append(out, Occurrence{Date: model.DateOf(d), Block: b, BlockIndex: idx})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].BlockIndex < out[j].BlockIndex
	})
	return out
}

var rruleWeekdays = func() map[string]rrule.Weekday {
	all := []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}
	m := make(map[string]rrule.Weekday, len(all))
	for i, d := range syllabus.DayOrder {
		m[d] = all[i]
	}
	return m
}()
