package syllabus

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPayload 模型输出无法解析为预期的 JSON 对象
var ErrInvalidPayload = errors.New("模型输出不是合法的 JSON 对象")

// CandidateItem 模型给出的单条日程候选（日期 / 标题 / 类型）
type CandidateItem struct {
	Date  string
	Title string
	Type  string
}

// Payload 模型输出的宽松解析结果
//
// 所有字段都不可信：缺失或类型不符时退化为零值，不报错。
type Payload struct {
	CourseName        string
	CourseCode        *string
	AssignmentWeights map[string]float64
	TentativeSchedule []CandidateItem
	ClassSchedule     []CandidateBlock
	TermStartDate     *string
	TermEndDate       *string
}

// ParsePayload 解析模型原始输出
//
// 允许外层包裹 markdown 代码块或前后说明文字；
// 只有在找不到 JSON 对象时才返回 ErrInvalidPayload。
func ParsePayload(raw []byte) (*Payload, error) {
	body := extractJSONObject(raw)
	if body == nil {
		return nil, ErrInvalidPayload
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrInvalidPayload
	}

	p := &Payload{
		CourseName:        stringField(obj, "courseName", "course_name"),
		CourseCode:        optionalString(obj, "courseCode", "course_code"),
		AssignmentWeights: weightsField(obj, "assignmentWeights", "assignment_weights"),
		TermStartDate:     optionalString(obj, "termStartDate", "term_start_date"),
		TermEndDate:       optionalString(obj, "termEndDate", "term_end_date"),
	}

	for _, v := range sliceField(obj, "tentativeSchedule", "tentative_schedule") {
		m, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		p.TentativeSchedule = append(p.TentativeSchedule, CandidateItem{
			Date:  stringField(m, "date"),
			Title: stringField(m, "title"),
			Type:  stringField(m, "type"),
		})
	}

	for _, v := range sliceField(obj, "classSchedule", "class_schedule") {
		m, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		p.ClassSchedule = append(p.ClassSchedule, CandidateBlock{
			Days:  daysField(m["days"]),
			Start: stringField(m, "start"),
			End:   stringField(m, "end"),
		})
	}

	return p, nil
}

// extractJSONObject 去掉代码块标记，截取首个 "{" 到最后一个 "}"
func extractJSONObject(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil
	}
	return []byte(s[start : end+1])
}

// ── 宽松字段读取 ──

func lookup(obj map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]interface{}, keys ...string) string {
	v, ok := lookup(obj, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

func optionalString(obj map[string]interface{}, keys ...string) *string {
	s := strings.TrimSpace(stringField(obj, keys...))
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func sliceField(obj map[string]interface{}, keys ...string) []interface{} {
	v, ok := lookup(obj, keys...)
	if !ok {
		return nil
	}
	arr, _ := v.([]interface{})
	return arr
}

// daysField 接受字符串数组；模型偶尔给出 "Mon, Wed" 这类字符串时按分隔符拆开
func daysField(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == '/' || r == ' ' || r == ';' || r == '&'
		})
	}
	return nil
}

// weightsField 权重值可以是数字或 "20%" 这样的字符串，无法解析或超出 [0, 100] 的条目丢弃
func weightsField(obj map[string]interface{}, keys ...string) map[string]float64 {
	v, ok := lookup(obj, keys...)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(m))
	for label, raw := range m {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if f, ok := toFloat(raw); ok && f >= 0 && f <= MaxWeight {
			out[label] = f
		}
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
