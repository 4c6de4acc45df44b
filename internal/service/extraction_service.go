package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"spaxio-scheduled/config"
	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/oracle"
	"spaxio-scheduled/internal/repository"
	"spaxio-scheduled/internal/syllabus"
	pkgerrors "spaxio-scheduled/pkg/errors"
)

// ── 大纲解析模块业务错误 ──

var (
	ErrExtractionEmptyText    = errors.New("大纲文本不能为空")
	ErrQuotaExceeded          = errors.New("本月解析次数已用完")
	ErrExtractionOracleFailed = errors.New("大纲解析服务暂不可用")
	ErrInvalidAIResponse      = errors.New("无法解析该大纲")
)

// coursePalette 新课程按已有课程数轮流取色
var coursePalette = []string{
	"#4472C4", "#ED7D31", "#70AD47", "#FFC000",
	"#5B9BD5", "#A5A5A5", "#9E480E", "#7030A0",
}

// ExtractionService 大纲解析业务接口
//
// 流程：额度检查 → 模型调用 → 宽松解析 → 规范化 → 再次额度检查 → 单事务写入 → 扣减额度。
// 不幂等：重复提交同一份大纲会创建新课程。
type ExtractionService interface {
	Extract(ctx context.Context, ownerID, text string) (*dto.ExtractSyllabusResponse, error)
}

type extractionService struct {
	repo     *repository.Repository
	oracle   oracle.Client
	quota    QuotaGate
	maxChars int
	now      func() time.Time
	logger   *zap.Logger
}

// NewExtractionService 创建 ExtractionService 实例
func NewExtractionService(
	cfg *config.ExtractionConfig,
	repo *repository.Repository,
	oracleClient oracle.Client,
	quota QuotaGate,
	logger *zap.Logger,
) ExtractionService {
	return &extractionService{
		repo:     repo,
		oracle:   oracleClient,
		quota:    quota,
		maxChars: cfg.MaxTextChars,
		now:      time.Now,
		logger:   logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Extract 解析大纲并创建课程
// ═══════════════════════════════════════════════════════════

func (s *extractionService) Extract(ctx context.Context, ownerID, text string) (*dto.ExtractSyllabusResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrExtractionEmptyText
	}
	text = syllabus.TruncateRunes(text, s.maxChars)

	// 1. 额度
	if err := s.checkQuota(ctx, ownerID); err != nil {
		return nil, err
	}

	// 2. 模型调用
	today := model.DateOf(s.now().UTC())
	raw, err := s.oracle.Extract(ctx, text, today)
	if err != nil {
		s.logger.Error("调用解析模型失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, ErrExtractionOracleFailed
	}

	payload, err := syllabus.ParsePayload(raw)
	if err != nil {
		s.logger.Warn("模型输出无法解析",
			zap.String("owner_id", ownerID),
			zap.Int("raw_len", len(raw)),
			zap.Error(err),
		)
		return nil, ErrInvalidAIResponse
	}

	// 3. 规范化（纯函数）
	result := syllabus.Normalize(payload, today)

	// 4. 写入前再次检查额度，避免并发请求同时通过首次检查
	if err := s.checkQuota(ctx, ownerID); err != nil {
		return nil, err
	}

	// 5. 单事务写入课程与事件
	course, err := s.buildCourse(ctx, ownerID, result)
	if err != nil {
		return nil, err
	}
	events, dropped := s.buildEvents(ownerID, result.Events)

	if err := s.repo.Course.CreateWithEvents(ctx, course, events); err != nil {
		s.logger.Error("保存解析结果失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, pkgerrors.ErrStoreWrite
	}

	// 6. 扣减额度；失败不回滚已写入的课程
	if err := s.quota.Consume(ctx, ownerID); err != nil {
		s.logger.Warn("扣减解析额度失败", zap.String("owner_id", ownerID), zap.Error(err))
	}

	s.logger.Info("大纲解析完成",
		zap.String("owner_id", ownerID),
		zap.String("course_id", course.CourseID),
		zap.Int("events", len(events)),
		zap.Int("dropped", dropped),
		zap.Bool("needs_term_dates", result.FollowUp.NeedsTermDates),
		zap.Bool("needs_class_time", result.FollowUp.NeedsClassTime),
	)

	return &dto.ExtractSyllabusResponse{
		Course:   toCourseResponse(course),
		Events:   toEventResponses(events),
		FollowUp: result.FollowUp,
		Dropped:  dropped,
	}, nil
}

func (s *extractionService) checkQuota(ctx context.Context, ownerID string) error {
	ok, err := s.quota.CheckQuota(ctx, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *extractionService) buildCourse(ctx context.Context, ownerID string, result *syllabus.Result) (*model.Course, error) {
	count, err := s.repo.Course.CountByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("统计课程数失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	draft := result.Course
	course := &model.Course{
		OwnerID: ownerID,
		Name:    draft.Name,
		Code:    draft.Code,
		Color:   coursePalette[int(count)%len(coursePalette)],
	}
	course.TermStart = s.realDate(draft.TermStart, "term_start")
	course.TermEnd = s.realDate(draft.TermEnd, "term_end")
	course.ClampTerm()
	course.ApplySchedule(draft.Schedule)

	weights := datatypes.JSONMap{}
	for label, w := range draft.AssignmentWeights {
		weights[label] = w
	}
	course.AssignmentWeights = weights

	course.CreatedBy = &ownerID
	course.UpdatedBy = &ownerID
	return course, nil
}

// buildEvents 日期语法合法但并非真实日期（如 2025-02-30）的事件丢弃并记录
func (s *extractionService) buildEvents(ownerID string, drafts []syllabus.EventDraft) ([]model.CalendarEvent, int) {
	events := make([]model.CalendarEvent, 0, len(drafts))
	dropped := 0
	for _, d := range drafts {
		date, err := model.ParseDate(d.Date)
		if err != nil {
			dropped++
			s.logger.Warn("丢弃日期无效的事件", zap.String("date", d.Date), zap.String("title", d.Title))
			continue
		}
		ev := model.CalendarEvent{
			OwnerID:   ownerID,
			Title:     d.Title,
			Kind:      d.Kind,
			EventDate: date,
			Weight:    d.Weight,
		}
		ev.CreatedBy = &ownerID
		ev.UpdatedBy = &ownerID
		events = append(events, ev)
	}
	return events, dropped
}

func (s *extractionService) realDate(v *string, field string) *time.Time {
	if v == nil {
		return nil
	}
	t, err := model.ParseDate(*v)
	if err != nil {
		s.logger.Warn("忽略无效的学期日期", zap.String("field", field), zap.String("value", *v))
		return nil
	}
	return &t
}
