package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"spaxio-scheduled/internal/model"
)

// EventFilter 事件查询条件；零值字段不参与过滤
type EventFilter struct {
	OwnerID  string
	CourseID string
	Kind     model.EventKind
	From     *time.Time // 含
	To       *time.Time // 含
}

// CalendarEventRepository 日历事件数据访问接口
type CalendarEventRepository interface {
	GetByID(ctx context.Context, id string) (*model.CalendarEvent, error)
	List(ctx context.Context, filter EventFilter) ([]model.CalendarEvent, error)
	Update(ctx context.Context, event *model.CalendarEvent) error
	Delete(ctx context.Context, id string) error
	// ReplaceClassSessions 在事务中全量替换课程的 class 事件：先删除旧课次，再批量插入新课次
	ReplaceClassSessions(ctx context.Context, courseID string, sessions []model.CalendarEvent) error
	ListClassSessions(ctx context.Context, courseID string) ([]model.CalendarEvent, error)
	// FirstClassSessionDate 课程最早一次课次的日期；没有课次时返回 nil
	FirstClassSessionDate(ctx context.Context, courseID string) (*time.Time, error)
}

type calendarEventRepo struct {
	db *gorm.DB
}

// NewCalendarEventRepo 创建 CalendarEventRepository 实例
func NewCalendarEventRepo(db *gorm.DB) CalendarEventRepository {
	return &calendarEventRepo{db: db}
}

func (r *calendarEventRepo) GetByID(ctx context.Context, id string) (*model.CalendarEvent, error) {
	var event model.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *calendarEventRepo) List(ctx context.Context, filter EventFilter) ([]model.CalendarEvent, error) {
	query := r.db.WithContext(ctx).Model(&model.CalendarEvent{})

	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.CourseID != "" {
		query = query.Where("course_id = ?", filter.CourseID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.From != nil {
		query = query.Where("event_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("event_date <= ?", *filter.To)
	}

	var events []model.CalendarEvent
	// 全天事件（start_time 为 NULL）排在当天最前
	err := query.
		Order("event_date ASC, start_time ASC NULLS FIRST, created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *calendarEventRepo) Update(ctx context.Context, event *model.CalendarEvent) error {
	return r.db.WithContext(ctx).
		Model(event).
		Where("event_id = ?", event.EventID).
		Updates(map[string]interface{}{
			"title":      event.Title,
			"kind":       event.Kind,
			"event_date": event.EventDate,
			"start_time": event.StartTime,
			"end_time":   event.EndTime,
			"weight":     event.Weight,
			"updated_by": event.UpdatedBy,
		}).Error
}

func (r *calendarEventRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", id).
		Delete(&model.CalendarEvent{}).Error
}

func (r *calendarEventRepo) ReplaceClassSessions(ctx context.Context, courseID string, sessions []model.CalendarEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceClassSessions(tx, courseID, sessions)
	})
}

// replaceClassSessions 删除课程全部 class 事件后批量插入；须在事务内调用
func replaceClassSessions(tx *gorm.DB, courseID string, sessions []model.CalendarEvent) error {
	if err := tx.Where("course_id = ? AND kind = ?", courseID, model.EventKindClass).
		Delete(&model.CalendarEvent{}).Error; err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}
	return tx.CreateInBatches(&sessions, 500).Error
}

func (r *calendarEventRepo) ListClassSessions(ctx context.Context, courseID string) ([]model.CalendarEvent, error) {
	var sessions []model.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND kind = ?", courseID, model.EventKindClass).
		Order("event_date ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *calendarEventRepo) FirstClassSessionDate(ctx context.Context, courseID string) (*time.Time, error) {
	var first model.CalendarEvent
	err := r.db.WithContext(ctx).
		Select("event_date").
		Where("course_id = ? AND kind = ?", courseID, model.EventKindClass).
		Order("event_date ASC").
		Limit(1).
		Take(&first).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &first.EventDate, nil
}
