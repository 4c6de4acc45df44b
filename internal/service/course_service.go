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

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound        = errors.New("课程不存在")
	ErrCourseTermInvalid     = errors.New("学期日期格式错误")
	ErrCourseScheduleInvalid = errors.New("周课表无有效时段")
	ErrCourseWindowInvalid   = errors.New("课次窗口日期格式错误")
)

// CourseService 课程业务接口
type CourseService interface {
	List(ctx context.Context, ownerID string) ([]dto.CourseResponse, error)
	Get(ctx context.Context, ownerID, courseID string) (*dto.CourseResponse, error)
	Update(ctx context.Context, ownerID, courseID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, ownerID, courseID string) error
	// ConfirmSchedule 用户确认周课表：清洗 → 写入课程 → 整体替换课次
	ConfirmSchedule(ctx context.Context, ownerID, courseID string, req *dto.ConfirmScheduleRequest) (*dto.ScheduleResponse, error)
	// ClearSchedule 清空周课表及全部课次
	ClearSchedule(ctx context.Context, ownerID, courseID string) (*dto.ScheduleResponse, error)
}

type courseService struct {
	repo     *repository.Repository
	sessions SessionService
	now      func() time.Time
	logger   *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, sessions SessionService, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, sessions: sessions, now: time.Now, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(ctx context.Context, ownerID string) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("列出课程失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, toCourseResponse(&courses[i]))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *courseService) Get(ctx context.Context, ownerID, courseID string) (*dto.CourseResponse, error) {
	course, err := s.ownedCourse(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}
	resp := toCourseResponse(course)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *courseService) Update(ctx context.Context, ownerID, courseID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.ownedCourse(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			name = syllabus.UntitledCourse
		}
		course.Name = name
	}
	if req.Code != nil {
		if code := strings.TrimSpace(*req.Code); code != "" {
			course.Code = &code
		} else {
			course.Code = nil
		}
	}
	if req.Color != nil && strings.TrimSpace(*req.Color) != "" {
		course.Color = strings.TrimSpace(*req.Color)
	}

	if req.ClearTerm {
		course.TermStart = nil
		course.TermEnd = nil
	} else {
		if req.TermStart != nil {
			if course.TermStart, err = parseTermDate(*req.TermStart); err != nil {
				return nil, err
			}
		}
		if req.TermEnd != nil {
			if course.TermEnd, err = parseTermDate(*req.TermEnd); err != nil {
				return nil, err
			}
		}
	}
	course.ClampTerm()

	course.Version = req.Version
	course.UpdatedBy = &ownerID
	if err := s.repo.Course.Update(ctx, course); err != nil {
		s.logger.Error("更新课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	resp := toCourseResponse(course)
	return &resp, nil
}

func parseTermDate(v string) (*time.Time, error) {
	if !syllabus.IsValidCalendarDate(v) {
		return nil, ErrCourseTermInvalid
	}
	t, err := model.ParseDate(v)
	if err != nil {
		return nil, ErrCourseTermInvalid
	}
	return &t, nil
}

// ────────────────────── Delete ──────────────────────

func (s *courseService) Delete(ctx context.Context, ownerID, courseID string) error {
	if _, err := s.ownedCourse(ctx, ownerID, courseID); err != nil {
		return err
	}
	if err := s.repo.Course.Delete(ctx, courseID, ownerID); err != nil {
		s.logger.Error("删除课程失败", zap.String("course_id", courseID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ConfirmSchedule ──────────────────────

func (s *courseService) ConfirmSchedule(ctx context.Context, ownerID, courseID string, req *dto.ConfirmScheduleRequest) (*dto.ScheduleResponse, error) {
	candidates := make([]syllabus.CandidateBlock, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		candidates = append(candidates, syllabus.CandidateBlock{Days: b.Days, Start: b.Start, End: b.End})
	}

	schedule := syllabus.SanitizeBlocks(candidates)
	if len(candidates) > 0 && schedule.Empty() {
		return nil, ErrCourseScheduleInvalid
	}

	reqStart, err := parseOptionalDate(req.WindowStart)
	if err != nil {
		return nil, ErrCourseWindowInvalid
	}
	reqEnd, err := parseOptionalDate(req.WindowEnd)
	if err != nil {
		return nil, ErrCourseWindowInvalid
	}

	return s.applySchedule(ctx, ownerID, courseID, schedule, reqStart, reqEnd)
}

// ────────────────────── ClearSchedule ──────────────────────

func (s *courseService) ClearSchedule(ctx context.Context, ownerID, courseID string) (*dto.ScheduleResponse, error) {
	return s.applySchedule(ctx, ownerID, courseID, model.ClassSchedule{}, nil, nil)
}

func (s *courseService) applySchedule(
	ctx context.Context,
	ownerID, courseID string,
	schedule model.ClassSchedule,
	reqStart, reqEnd *time.Time,
) (*dto.ScheduleResponse, error) {
	course, err := s.ownedCourse(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}

	// 课程的周课表列与课次在同一事务内替换，失败时二者都保持原状
	course.ApplySchedule(schedule)
	course.UpdatedBy = &ownerID
	w := ResolveWindow(s.now().UTC(), course.TermStart, course.TermEnd, reqStart, reqEnd)
	sessions := s.sessions.Build(ownerID, courseID, course.Blocks(), w)
	if err := s.repo.Course.UpdateWithSessions(ctx, course, sessions); err != nil {
		s.logger.Error("保存周课表失败",
			zap.String("course_id", courseID),
			zap.Int("sessions", len(sessions)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("周课表已更新",
		zap.String("course_id", courseID),
		zap.Int("blocks", len(course.Blocks())),
		zap.Int("sessions", len(sessions)),
		zap.String("window_start", w.Start.Format(model.DateLayout)),
		zap.String("window_end", w.End.Format(model.DateLayout)),
	)

	return &dto.ScheduleResponse{
		Course:      toCourseResponse(course),
		WindowStart: w.Start.Format(model.DateLayout),
		WindowEnd:   w.End.Format(model.DateLayout),
		Sessions:    toEventResponses(sessions),
	}, nil
}

// ownedCourse 查询课程并校验归属；他人课程与不存在一样返回 ErrCourseNotFound
func (s *courseService) ownedCourse(ctx context.Context, ownerID, courseID string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	if course.OwnerID != ownerID {
		return nil, ErrCourseNotFound
	}
	return course, nil
}
