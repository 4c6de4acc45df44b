package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/service"
	pkgerrors "spaxio-scheduled/pkg/errors"
	"spaxio-scheduled/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
	eventSvc  service.EventService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService, eventSvc service.EventService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc, eventSvc: eventSvc}
}

// ListCourses 获取本人课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	courses, err := h.courseSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKList(c, courses, len(courses))
}

// GetCourse 获取课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathID(c, "课程")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// UpdateCourse 更新课程基本信息与学期日期
// PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := pathID(c, "课程")
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// DeleteCourse 删除课程及其全部日历事件
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c, "课程")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), userID, id); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// ConfirmSchedule 确认周课表并生成课次
// PUT /api/v1/courses/:id/schedule
func (h *CourseHandler) ConfirmSchedule(c *gin.Context) {
	id, ok := pathID(c, "课程")
	if !ok {
		return
	}

	var req dto.ConfirmScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.courseSvc.ConfirmSchedule(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, resp)
}

// ClearSchedule 清空周课表及全部课次
// DELETE /api/v1/courses/:id/schedule
func (h *CourseHandler) ClearSchedule(c *gin.Context) {
	id, ok := pathID(c, "课程")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.courseSvc.ClearSchedule(c.Request.Context(), userID, id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, resp)
}

// ListCourseEvents 获取课程下的日历事件
// GET /api/v1/courses/:id/events?kind=&from=&to=
func (h *CourseHandler) ListCourseEvents(c *gin.Context) {
	id, ok := pathID(c, "课程")
	if !ok {
		return
	}

	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	events, err := h.eventSvc.ListByCourse(c.Request.Context(), userID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCourseNotFound):
			h.handleCourseError(c, err)
		default:
			handleEventError(c, err)
		}
		return
	}

	response.OKList(c, events, len(events))
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 22001, "课程不存在")
	case errors.Is(err, service.ErrCourseTermInvalid):
		response.BadRequest(c, 22002, "学期日期格式错误")
	case errors.Is(err, service.ErrCourseScheduleInvalid):
		response.BadRequest(c, 22003, "周课表无有效时段")
	case errors.Is(err, service.ErrCourseWindowInvalid):
		response.BadRequest(c, 22004, "课次窗口日期格式错误")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 22005, "课程已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
