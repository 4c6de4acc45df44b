package dto

// ── 日历事件 DTO ──

// EventListRequest 事件列表查询参数
type EventListRequest struct {
	Kind string `form:"kind" binding:"omitempty,oneof=class assignment test exam other"`
	From string `form:"from" binding:"omitempty,calendar_date"`
	To   string `form:"to"   binding:"omitempty,calendar_date"`
}

// UpdateEventRequest 修改考核 / 主题事件（仅更新非 nil 字段）
type UpdateEventRequest struct {
	Title     *string  `json:"title"      binding:"omitempty,max=300"`
	Kind      *string  `json:"kind"       binding:"omitempty,oneof=assignment test exam other"`
	Date      *string  `json:"date"       binding:"omitempty,calendar_date"`
	StartTime *string  `json:"start_time"`
	EndTime   *string  `json:"end_time"`
	Weight    *float64 `json:"weight"     binding:"omitempty,min=0,max=100"`
	// ClearTimes 为 true 时改为全天事件
	ClearTimes bool `json:"clear_times"`
}

// ExportRequest 导出查询参数
type ExportRequest struct {
	CourseID string `form:"course_id" binding:"omitempty,uuid"`
}

// ── 响应 ──

// EventResponse 日历事件响应
type EventResponse struct {
	ID        string   `json:"id"`
	CourseID  *string  `json:"course_id,omitempty"`
	Title     string   `json:"title"`
	Kind      string   `json:"kind"`
	Date      string   `json:"date"`
	StartTime *string  `json:"start_time,omitempty"`
	EndTime   *string  `json:"end_time,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
}
