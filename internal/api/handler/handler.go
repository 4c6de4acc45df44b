package handler

import "spaxio-scheduled/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Syllabus *SyllabusHandler
	Course   *CourseHandler
	Event    *EventHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Syllabus: NewSyllabusHandler(svc.Extraction, svc.Quota),
		Course:   NewCourseHandler(svc.Course, svc.Event),
		Event:    NewEventHandler(svc.Event),
		Export:   NewExportHandler(svc.Export),
	}
}
