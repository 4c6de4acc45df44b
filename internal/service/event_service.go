package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/repository"
	"spaxio-scheduled/internal/syllabus"
)

// ── 日历事件模块业务错误 ──

var (
	ErrEventNotFound     = errors.New("日历事件不存在")
	ErrEventClassManaged = errors.New("课次由周课表生成，请修改周课表")
	ErrEventKindInvalid  = errors.New("事件类型无效")
	ErrEventDateInvalid  = errors.New("事件日期格式错误")
	ErrEventTimeInvalid  = errors.New("事件时间格式错误")
	ErrEventRangeInvalid = errors.New("查询日期范围无效")
)

// EventService 日历事件业务接口
type EventService interface {
	ListByCourse(ctx context.Context, ownerID, courseID string, req *dto.EventListRequest) ([]dto.EventResponse, error)
	ListMine(ctx context.Context, ownerID string, req *dto.EventListRequest) ([]dto.EventResponse, error)
	// Update 修改考核 / 主题事件；class 事件不可单独修改
	Update(ctx context.Context, ownerID, eventID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	Delete(ctx context.Context, ownerID, eventID string) error
}

type eventService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEventService 创建 EventService 实例
func NewEventService(repo *repository.Repository, logger *zap.Logger) EventService {
	return &eventService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *eventService) ListByCourse(ctx context.Context, ownerID, courseID string, req *dto.EventListRequest) ([]dto.EventResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if course.OwnerID != ownerID {
		return nil, ErrCourseNotFound
	}

	filter, err := buildEventFilter(ownerID, req)
	if err != nil {
		return nil, err
	}
	filter.CourseID = courseID
	return s.list(ctx, filter)
}

func (s *eventService) ListMine(ctx context.Context, ownerID string, req *dto.EventListRequest) ([]dto.EventResponse, error) {
	filter, err := buildEventFilter(ownerID, req)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

func (s *eventService) list(ctx context.Context, filter repository.EventFilter) ([]dto.EventResponse, error) {
	events, err := s.repo.CalendarEvent.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询日历事件失败", zap.String("owner_id", filter.OwnerID), zap.Error(err))
		return nil, err
	}
	return toEventResponses(events), nil
}

func buildEventFilter(ownerID string, req *dto.EventListRequest) (repository.EventFilter, error) {
	filter := repository.EventFilter{OwnerID: ownerID}
	if req == nil {
		return filter, nil
	}
	if req.Kind != "" {
		kind := model.EventKind(req.Kind)
		if !kind.Valid() {
			return filter, ErrEventKindInvalid
		}
		filter.Kind = kind
	}
	var err error
	if filter.From, err = parseOptionalDate(&req.From); err != nil {
		return filter, ErrEventRangeInvalid
	}
	if filter.To, err = parseOptionalDate(&req.To); err != nil {
		return filter, ErrEventRangeInvalid
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, ErrEventRangeInvalid
	}
	return filter, nil
}

// ────────────────────── Update ──────────────────────

func (s *eventService) Update(ctx context.Context, ownerID, eventID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	event, err := s.editableEvent(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			title = syllabus.UntitledEvent
		}
		event.Title = title
	}
	if req.Kind != nil {
		kind := model.EventKind(*req.Kind)
		if !kind.Valid() || kind == model.EventKindClass {
			return nil, ErrEventKindInvalid
		}
		event.Kind = kind
	}
	if req.Date != nil {
		date, err := parseEventDate(*req.Date)
		if err != nil {
			return nil, err
		}
		event.EventDate = date
	}

	if req.ClearTimes {
		event.StartTime = nil
		event.EndTime = nil
	} else {
		if req.StartTime != nil {
			if event.StartTime, err = normalizeOptionalTime(*req.StartTime); err != nil {
				return nil, err
			}
		}
		if req.EndTime != nil {
			if event.EndTime, err = normalizeOptionalTime(*req.EndTime); err != nil {
				return nil, err
			}
		}
	}
	if req.Weight != nil {
		w := *req.Weight
		event.Weight = &w
	}

	event.UpdatedBy = &ownerID
	if err := s.repo.CalendarEvent.Update(ctx, event); err != nil {
		s.logger.Error("更新日历事件失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	resp := toEventResponse(event)
	return &resp, nil
}

func parseEventDate(v string) (time.Time, error) {
	if !syllabus.IsValidCalendarDate(v) {
		return time.Time{}, ErrEventDateInvalid
	}
	t, err := model.ParseDate(v)
	if err != nil {
		return time.Time{}, ErrEventDateInvalid
	}
	return t, nil
}

// normalizeOptionalTime 空串表示清除时间；非空但无法规范化视为错误
func normalizeOptionalTime(v string) (*string, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t := syllabus.NormalizeTime(v)
	if t == nil {
		return nil, ErrEventTimeInvalid
	}
	return t, nil
}

// ────────────────────── Delete ──────────────────────

func (s *eventService) Delete(ctx context.Context, ownerID, eventID string) error {
	if _, err := s.editableEvent(ctx, ownerID, eventID); err != nil {
		return err
	}
	if err := s.repo.CalendarEvent.Delete(ctx, eventID); err != nil {
		s.logger.Error("删除日历事件失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}

func (s *eventService) editableEvent(ctx context.Context, ownerID, eventID string) (*model.CalendarEvent, error) {
	event, err := s.repo.CalendarEvent.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询日历事件失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	if event.OwnerID != ownerID {
		return nil, ErrEventNotFound
	}
	if event.Kind == model.EventKindClass {
		return nil, ErrEventClassManaged
	}
	return event, nil
}
