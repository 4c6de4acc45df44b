package handler

import (
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/service"
	pkgerrors "spaxio-scheduled/pkg/errors"
	"spaxio-scheduled/pkg/response"
)

// SyllabusHandler 大纲解析模块 HTTP 处理器
type SyllabusHandler struct {
	extractionSvc service.ExtractionService
	quota         service.QuotaGate
}

// NewSyllabusHandler 创建 SyllabusHandler
func NewSyllabusHandler(extractionSvc service.ExtractionService, quota service.QuotaGate) *SyllabusHandler {
	return &SyllabusHandler{extractionSvc: extractionSvc, quota: quota}
}

// Extract 解析大纲文本并创建课程
// POST /api/v1/syllabi/extract
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"（纯文本）
//   - 文本提交: application/json, body={"text": "..."}
func (h *SyllabusHandler) Extract(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	text, ok := h.readText(c)
	if !ok {
		return
	}

	resp, err := h.extractionSvc.Extract(c.Request.Context(), userID, text)
	if err != nil {
		h.handleSyllabusError(c, err)
		return
	}

	response.Created(c, resp)
}

// Quota 查询本月解析额度
// GET /api/v1/syllabi/quota
func (h *SyllabusHandler) Quota(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	available, err := h.quota.CheckQuota(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{
		"available":  available,
		"privileged": h.quota.IsPrivileged(userID),
	})
}

// readText 优先读取上传文件，其次读取 JSON / 表单中的 text 字段
func (h *SyllabusHandler) readText(c *gin.Context) (string, bool) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, 21000, "上传文件读取失败")
			return "", false
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return "", false
		}
		if !utf8.Valid(data) {
			response.BadRequest(c, 21000, "仅支持 UTF-8 纯文本文件")
			return "", false
		}
		return string(data), true
	}

	var req dto.ExtractSyllabusRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return "", false
	}
	return req.Text, true
}

// handleSyllabusError 统一处理大纲解析模块业务错误
func (h *SyllabusHandler) handleSyllabusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExtractionEmptyText):
		response.BadRequest(c, 21001, "大纲文本不能为空")
	case errors.Is(err, service.ErrInvalidAIResponse):
		response.Unprocessable(c, 21002, "无法解析该大纲")
	case errors.Is(err, service.ErrQuotaExceeded):
		response.Error(c, http.StatusTooManyRequests, 21003, "本月解析次数已用完")
	case errors.Is(err, service.ErrExtractionOracleFailed):
		response.Error(c, http.StatusBadGateway, 21004, "大纲解析服务暂不可用，请稍后重试")
	case errors.Is(err, pkgerrors.ErrStoreWrite):
		response.Error(c, http.StatusInternalServerError, 21005, "课程保存失败，请重试")
	default:
		response.InternalError(c)
	}
}
