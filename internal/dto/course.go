package dto

import "spaxio-scheduled/internal/model"

// ── 课程模块 DTO ──

// UpdateCourseRequest 修改课程请求（仅更新非 nil 字段）
type UpdateCourseRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=1,max=200"`
	Code      *string `json:"code"       binding:"omitempty,max=50"`
	Color     *string `json:"color"      binding:"omitempty,max=20"`
	TermStart *string `json:"term_start" binding:"omitempty,calendar_date"`
	TermEnd   *string `json:"term_end"   binding:"omitempty,calendar_date"`
	// ClearTerm 为 true 时清空学期起止（此时忽略 TermStart / TermEnd）
	ClearTerm bool `json:"clear_term"`
	Version   int  `json:"version"    binding:"required,min=1"`
}

// WeeklyBlockRequest 用户确认的周课表时段
type WeeklyBlockRequest struct {
	Days  []string `json:"days"  binding:"required,min=1,max=7,dive,weekday"`
	Start string   `json:"start" binding:"required"`
	End   string   `json:"end"   binding:"required"`
}

// ConfirmScheduleRequest 确认周课表并生成课次
type ConfirmScheduleRequest struct {
	Blocks      []WeeklyBlockRequest `json:"blocks"       binding:"max=20,dive"`
	WindowStart *string              `json:"window_start" binding:"omitempty,calendar_date"`
	WindowEnd   *string              `json:"window_end"   binding:"omitempty,calendar_date"`
}

// ── 响应 ──

// CourseResponse 课程响应
type CourseResponse struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Code              *string             `json:"code,omitempty"`
	Color             string              `json:"color"`
	TermStart         *string             `json:"term_start,omitempty"`
	TermEnd           *string             `json:"term_end,omitempty"`
	Blocks            []model.WeeklyBlock `json:"blocks"`
	HasSchedule       bool                `json:"has_schedule"`
	AssignmentWeights map[string]any      `json:"assignment_weights,omitempty"`
	Version           int                 `json:"version"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
}

// ScheduleResponse 课次生成结果
type ScheduleResponse struct {
	Course      CourseResponse  `json:"course"`
	WindowStart string          `json:"window_start"`
	WindowEnd   string          `json:"window_end"`
	Sessions    []EventResponse `json:"sessions"`
}
