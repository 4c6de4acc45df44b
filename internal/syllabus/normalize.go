package syllabus

import (
	"strings"
	"time"
	"unicode/utf8"

	"spaxio-scheduled/internal/model"
)

const (
	// UntitledCourse 课程名为空时的占位名
	UntitledCourse = "Untitled Course"
	// UntitledEvent 事件标题为空时的占位标题
	UntitledEvent = "Untitled Event"

	// 与表结构列宽一致，超长部分按字符截断
	MaxCourseNameLen = 200
	MaxCourseCodeLen = 50
	MaxEventTitleLen = 300

	// MaxWeight 权重为百分比，超出 [0, MaxWeight] 的条目丢弃
	MaxWeight = 100.0
)

// CourseDraft 待持久化的课程字段
type CourseDraft struct {
	Name              string
	Code              *string
	TermStart         *string
	TermEnd           *string
	Schedule          model.ClassSchedule
	AssignmentWeights map[string]float64
}

// EventDraft 待持久化的考核 / 主题事件（仅日期，无时间）
type EventDraft struct {
	Title  string
	Kind   model.EventKind
	Date   string
	Weight *float64
}

// FollowUp 仍需用户补充或确认的信息
//
// Suggested* 只是提示，调用方必须经用户确认后才能写入
type FollowUp struct {
	NeedsTermDates     bool                `json:"needs_term_dates"`
	SuggestedTermStart *string             `json:"suggested_term_start,omitempty"`
	SuggestedTermEnd   *string             `json:"suggested_term_end,omitempty"`
	NeedsClassTime     bool                `json:"needs_class_time"`
	SuggestedDays      []string            `json:"suggested_days,omitempty"`
	SuggestedStart     *string             `json:"suggested_start,omitempty"`
	SuggestedEnd       *string             `json:"suggested_end,omitempty"`
	SuggestedBlocks    []model.WeeklyBlock `json:"suggested_blocks,omitempty"`
}

// Result 规范化结果
type Result struct {
	Course   CourseDraft
	Events   []EventDraft
	FollowUp FollowUp
	// Today 本次规范化的参考日期（与送入模型的提示一致）
	Today string
}

// Normalize 将模型输出规范化为课程草稿、事件草稿和待补充提示
//
// 纯函数：不做 I/O。周课表只作为建议写入课程与 FollowUp，
// 永远不会直接生成 class 事件，class 事件只能由课次生成器产生。
func Normalize(p *Payload, today time.Time) *Result {
	if p == nil {
		p = &Payload{}
	}
	res := &Result{Today: today.Format(model.DateLayout)}

	// 1. 课程名 / 代码
	res.Course.Name = clip(p.CourseName, MaxCourseNameLen)
	if res.Course.Name == "" {
		res.Course.Name = UntitledCourse
	}
	if p.CourseCode != nil {
		if code := clip(*p.CourseCode, MaxCourseCodeLen); code != "" {
			res.Course.Code = &code
		}
	}
	res.Course.AssignmentWeights = p.AssignmentWeights

	// 2. 学期起止：只接受真实存在的日期（2025-02-30 视为缺失）
	res.Course.TermStart = validDatePtr(p.TermStartDate)
	res.Course.TermEnd = validDatePtr(p.TermEndDate)

	// 4. 事件（先于学期建议计算，建议取事件日期的最小 / 最大值）
	weights := lowerKeys(p.AssignmentWeights)
	for _, item := range p.TentativeSchedule {
		date := strings.TrimSpace(item.Date)
		if !IsValidCalendarDate(date) {
			continue
		}

		title := clip(item.Title, MaxEventTitleLen)
		if title == "" {
			title = UntitledEvent
		}

		// 以 type 分类；模型未给 type 时才退回标题
		label := item.Type
		if strings.TrimSpace(label) == "" {
			label = item.Title
		}

		ev := EventDraft{Title: title, Kind: Classify(label), Date: date}
		if w, ok := weights[strings.ToLower(strings.TrimSpace(item.Title))]; ok {
			w := w
			ev.Weight = &w
		}
		res.Events = append(res.Events, ev)
	}

	if res.Course.TermStart == nil && res.Course.TermEnd == nil {
		res.FollowUp.NeedsTermDates = true
		res.FollowUp.SuggestedTermStart, res.FollowUp.SuggestedTermEnd = dateBounds(res.Events)
	}

	// 3. 周课表
	res.Course.Schedule = SanitizeBlocks(p.ClassSchedule)
	if res.Course.Schedule.Empty() {
		res.FollowUp.NeedsClassTime = true
	} else {
		blocks := res.Course.Schedule.Blocks
		res.FollowUp.SuggestedDays = UnionDays(blocks)
		start, end := blocks[0].Start, blocks[0].End
		res.FollowUp.SuggestedStart = &start
		res.FollowUp.SuggestedEnd = &end
		res.FollowUp.SuggestedBlocks = append([]model.WeeklyBlock(nil), blocks...)
	}

	return res
}

func validDatePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if !isRealDate(v) {
		return nil
	}
	return &v
}

func isRealDate(s string) bool {
	if !IsValidCalendarDate(s) {
		return false
	}
	_, err := model.ParseDate(s)
	return err == nil
}

// dateBounds 事件日期的最小 / 最大值（YYYY-MM-DD 字典序即时间序），
// 跳过 2025-02-30 这类持久化时会被丢弃的日期
func dateBounds(events []EventDraft) (*string, *string) {
	var lo, hi string
	for _, e := range events {
		if !isRealDate(e.Date) {
			continue
		}
		if lo == "" || e.Date < lo {
			lo = e.Date
		}
		if hi == "" || e.Date > hi {
			hi = e.Date
		}
	}
	if lo == "" {
		return nil, nil
	}
	return &lo, &hi
}

// TruncateRunes 按字符截断，保证不切断多字节字符
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// clip 去除首尾空白后截断到 max 个字符，截断后再去一次尾部空白
func clip(s string, max int) string {
	return strings.TrimSpace(TruncateRunes(strings.TrimSpace(s), max))
}

func lowerKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
