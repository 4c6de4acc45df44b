package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/repository"
)

// ClassSessionTitle 课次事件的固定标题
const ClassSessionTitle = "Class"

// SessionService 课次生成接口
//
// 每次都是整体替换：删除课程全部 class 事件后按新课表重新插入，
// 课次没有需要保留的用户修改，旧 ID 不复用。
type SessionService interface {
	// Build 按周课表展开窗口内课次，不写库
	Build(ownerID, courseID string, blocks []model.WeeklyBlock, w Window) []model.CalendarEvent
	// Materialize 按周课表生成窗口内课次并替换旧课次；blocks 为空即清空
	Materialize(ctx context.Context, ownerID, courseID string, blocks []model.WeeklyBlock, w Window) ([]model.CalendarEvent, error)
}

type sessionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, logger: logger}
}

func (s *sessionService) Build(ownerID, courseID string, blocks []model.WeeklyBlock, w Window) []model.CalendarEvent {
	occurrences := ExpandWeeklyBlocks(blocks, w)

	sessions := make([]model.CalendarEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		start, end := occ.Block.Start, occ.Block.End
		ev := model.CalendarEvent{
			OwnerID:   ownerID,
			CourseID:  &courseID,
			Title:     ClassSessionTitle,
			Kind:      model.EventKindClass,
			EventDate: occ.Date,
			StartTime: &start,
			EndTime:   &end,
		}
		ev.CreatedBy = &ownerID
		ev.UpdatedBy = &ownerID
		sessions = append(sessions, ev)
	}
	return sessions
}

func (s *sessionService) Materialize(ctx context.Context, ownerID, courseID string, blocks []model.WeeklyBlock, w Window) ([]model.CalendarEvent, error) {
	sessions := s.Build(ownerID, courseID, blocks, w)

	if err := s.repo.CalendarEvent.ReplaceClassSessions(ctx, courseID, sessions); err != nil {
		s.logger.Error("替换课次失败",
			zap.String("course_id", courseID),
			zap.Int("sessions", len(sessions)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("替换课次失败: %w", err)
	}

	s.logger.Info("课次已生成",
		zap.String("course_id", courseID),
		zap.Int("blocks", len(blocks)),
		zap.Int("sessions", len(sessions)),
		zap.String("window_start", w.Start.Format(model.DateLayout)),
		zap.String("window_end", w.End.Format(model.DateLayout)),
	)
	return sessions, nil
}
