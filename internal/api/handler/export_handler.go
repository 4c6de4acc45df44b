package handler

import (
	"bytes"
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/service"
	"spaxio-scheduled/pkg/response"
)

const (
	contentTypeICS  = "text/calendar; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportICS 导出 iCalendar 日历
// GET /api/v1/export/ics?course_id=xxx（不传则导出全部课程）
func (h *ExportHandler) ExportICS(c *gin.Context) {
	h.export(c, h.exportSvc.ExportICS, contentTypeICS)
}

// ExportExcel 导出 Excel 日历
// GET /api/v1/export/excel?course_id=xxx（不传则导出全部课程）
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	h.export(c, h.exportSvc.ExportExcel, contentTypeXLSX)
}

func (h *ExportHandler) export(
	c *gin.Context,
	generate func(ctx context.Context, ownerID, courseID string) (*bytes.Buffer, string, error),
	contentType string,
) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := generate(c.Request.Context(), userID, req.CourseID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 22001, "课程不存在")
	case errors.Is(err, service.ErrExportNoEvents):
		response.NotFound(c, 24001, "暂无可导出的日历事件")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
