// Package job 后台定时任务
package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"spaxio-scheduled/internal/repository"
	"spaxio-scheduled/internal/service"
)

// SessionRefresher 定期为无学期结束日期的课程重新生成课次
//
// 这类课程的窗口终点是“起点 + 120 天所在月的月末”，不刷新的话课次会在数月后耗尽。
// 每次刷新与用户确认课表一样是整体替换；窗口起点保持为已有的最早课次，
// 终点推进到“今天 + 120 天所在月的月末”。
type SessionRefresher struct {
	repo     *repository.Repository
	sessions service.SessionService
	now      func() time.Time
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewSessionRefresher 创建课次刷新任务
func NewSessionRefresher(repo *repository.Repository, sessions service.SessionService, logger *zap.Logger) *SessionRefresher {
	return &SessionRefresher{
		repo:     repo,
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}
}

// Start 按 cron 表达式启动；spec 为空时不启动
func (r *SessionRefresher) Start(spec string) error {
	if spec == "" {
		r.logger.Info("课次刷新任务未启用")
		return nil
	}

	r.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("课次刷新任务已启动", zap.String("cron", spec))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (r *SessionRefresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce 执行一次刷新，返回成功刷新的课程数
func (r *SessionRefresher) RunOnce(ctx context.Context) int {
	courses, err := r.repo.Course.ListWithOpenSchedule(ctx)
	if err != nil {
		r.logger.Error("查询待刷新课程失败", zap.Error(err))
		return 0
	}

	refreshed := 0
	today := r.now().UTC()
	horizon := service.HorizonEnd(today)
	for i := range courses {
		c := &courses[i]
		w := service.ResolveWindow(today, c.TermStart, c.TermEnd, r.firstSessionDate(ctx, c.CourseID), &horizon)
		if _, err := r.sessions.Materialize(ctx, c.OwnerID, c.CourseID, c.Blocks(), w); err != nil {
			r.logger.Warn("刷新课次失败", zap.String("course_id", c.CourseID), zap.Error(err))
			continue
		}
		refreshed++
	}

	r.logger.Info("课次刷新完成", zap.Int("courses", len(courses)), zap.Int("refreshed", refreshed))
	return refreshed
}

// firstSessionDate 已有最早课次的日期；没有课次时返回 nil（窗口从今天开始）
func (r *SessionRefresher) firstSessionDate(ctx context.Context, courseID string) *time.Time {
	first, err := r.repo.CalendarEvent.FirstClassSessionDate(ctx, courseID)
	if err != nil {
		r.logger.Warn("查询最早课次失败", zap.String("course_id", courseID), zap.Error(err))
		return nil
	}
	return first
}
