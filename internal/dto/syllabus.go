package dto

import "spaxio-scheduled/internal/syllabus"

// ── 大纲解析 DTO ──

// ExtractSyllabusRequest 大纲解析请求（JSON 形式；也可 multipart 上传 file）
type ExtractSyllabusRequest struct {
	Text string `json:"text" form:"text"`
}

// ExtractSyllabusResponse 大纲解析结果
type ExtractSyllabusResponse struct {
	Course   CourseResponse    `json:"course"`
	Events   []EventResponse   `json:"events"`
	FollowUp syllabus.FollowUp `json:"follow_up"`
	Dropped  int               `json:"dropped_events,omitempty"`
}
