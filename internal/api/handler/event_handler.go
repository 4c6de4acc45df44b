package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/service"
	"spaxio-scheduled/pkg/response"
)

// EventHandler 日历事件模块 HTTP 处理器
type EventHandler struct {
	eventSvc service.EventService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// ListMyEvents 获取本人全部日历事件
// GET /api/v1/events?kind=&from=&to=
func (h *EventHandler) ListMyEvents(c *gin.Context) {
	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	events, err := h.eventSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OKList(c, events, len(events))
}

// UpdateEvent 修改日历事件
// PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := pathID(c, "事件")
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	event, err := h.eventSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, event)
}

// DeleteEvent 删除日历事件
// DELETE /api/v1/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := pathID(c, "事件")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.eventSvc.Delete(c.Request.Context(), userID, id); err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleEventError 统一处理日历事件模块业务错误
func handleEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 23001, "日历事件不存在")
	case errors.Is(err, service.ErrEventClassManaged):
		response.Forbidden(c, 23002, "课次由周课表生成，请修改周课表")
	case errors.Is(err, service.ErrEventKindInvalid):
		response.BadRequest(c, 23003, "事件类型无效")
	case errors.Is(err, service.ErrEventDateInvalid):
		response.BadRequest(c, 23004, "事件日期格式错误")
	case errors.Is(err, service.ErrEventTimeInvalid):
		response.BadRequest(c, 23005, "事件时间格式错误")
	case errors.Is(err, service.ErrEventRangeInvalid):
		response.BadRequest(c, 23006, "查询日期范围无效")
	default:
		response.InternalError(c)
	}
}
