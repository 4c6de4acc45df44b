package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/repository"
	pkgerrors "spaxio-scheduled/pkg/errors"
)

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
	events  *mockEventRepo
	seq     int
	// createErr 非 nil 时 Create / CreateWithEvents 返回该错误
	createErr error
}

func newMockCourseRepo(events *mockEventRepo) *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course), events: events}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	if course.CourseID == "" {
		m.seq++
		course.CourseID = fmt.Sprintf("course-%d", m.seq)
	}
	if course.Version == 0 {
		course.Version = 1
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	cp := *course
	m.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) CreateWithEvents(ctx context.Context, course *model.Course, events []model.CalendarEvent) error {
	if err := m.Create(ctx, course); err != nil {
		return err
	}
	for i := range events {
		events[i].CourseID = &course.CourseID
		m.events.insert(&events[i])
	}
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		if c.OwnerID == ownerID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result, nil
}

func (m *mockCourseRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	list, _ := m.ListByOwner(ctx, ownerID)
	return int64(len(list)), nil
}

func (m *mockCourseRepo) ListWithOpenSchedule(_ context.Context) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		if c.TermEnd == nil && c.HasSchedule() {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version++
	course.UpdatedAt = time.Now().UTC()
	cp := *course
	m.courses[course.CourseID] = &cp
	return nil
}

// UpdateWithSessions 与真实实现一致：版本校验或课次写入失败时课程和课次都不变
func (m *mockCourseRepo) UpdateWithSessions(ctx context.Context, course *model.Course, sessions []model.CalendarEvent) error {
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if err := m.events.ReplaceClassSessions(ctx, course.CourseID, sessions); err != nil {
		return err
	}
	return m.Update(ctx, course)
}

func (m *mockCourseRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.courses, id)
	m.events.deleteWhere(func(e *model.CalendarEvent) bool {
		return e.CourseID != nil && *e.CourseID == id
	})
	return nil
}

// ── Mock CalendarEventRepository ──

type mockEventRepo struct {
	events map[string]*model.CalendarEvent
	seq    int
	// replaceErr 非 nil 时 ReplaceClassSessions 返回该错误且不修改数据
	replaceErr   error
	replaceCalls int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.CalendarEvent)}
}

func (m *mockEventRepo) insert(e *model.CalendarEvent) {
	m.seq++
	e.EventID = fmt.Sprintf("event-%d", m.seq)
	cp := *e
	m.events[e.EventID] = &cp
}

func (m *mockEventRepo) deleteWhere(match func(*model.CalendarEvent) bool) {
	for id, e := range m.events {
		if match(e) {
			delete(m.events, id)
		}
	}
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.CalendarEvent, error) {
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) List(_ context.Context, f repository.EventFilter) ([]model.CalendarEvent, error) {
	var result []model.CalendarEvent
	for _, e := range m.events {
		if f.OwnerID != "" && e.OwnerID != f.OwnerID {
			continue
		}
		if f.CourseID != "" && (e.CourseID == nil || *e.CourseID != f.CourseID) {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.From != nil && e.EventDate.Before(*f.From) {
			continue
		}
		if f.To != nil && e.EventDate.After(*f.To) {
			continue
		}
		result = append(result, *e)
	}
	sortEvents(result)
	return result, nil
}

func (m *mockEventRepo) Update(_ context.Context, event *model.CalendarEvent) error {
	if _, ok := m.events[event.EventID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *event
	m.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string) error {
	delete(m.events, id)
	return nil
}

func (m *mockEventRepo) ReplaceClassSessions(_ context.Context, courseID string, sessions []model.CalendarEvent) error {
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.deleteWhere(func(e *model.CalendarEvent) bool {
		return e.Kind == model.EventKindClass && e.CourseID != nil && *e.CourseID == courseID
	})
	for i := range sessions {
		m.insert(&sessions[i])
	}
	return nil
}

func (m *mockEventRepo) ListClassSessions(ctx context.Context, courseID string) ([]model.CalendarEvent, error) {
	return m.List(ctx, repository.EventFilter{CourseID: courseID, Kind: model.EventKindClass})
}

func (m *mockEventRepo) FirstClassSessionDate(ctx context.Context, courseID string) (*time.Time, error) {
	sessions, _ := m.ListClassSessions(ctx, courseID)
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0].EventDate, nil
}

func sortEvents(events []model.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return derefOr(events[i].StartTime, "") < derefOr(events[j].StartTime, "")
	})
}

// ── Mock QuotaCounter ──

type mockQuotaCounter struct {
	counts map[string]int64
	err    error
}

func newMockQuotaCounter() *mockQuotaCounter {
	return &mockQuotaCounter{counts: make(map[string]int64)}
}

func (m *mockQuotaCounter) GetCount(_ context.Context, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[key], nil
}

func (m *mockQuotaCounter) IncrWithExpire(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

// ── 测试辅助 ──

type testRepos struct {
	course *mockCourseRepo
	event  *mockEventRepo
	repo   *repository.Repository
}

func newTestRepos() *testRepos {
	events := newMockEventRepo()
	courses := newMockCourseRepo(events)
	return &testRepos{
		course: courses,
		event:  events,
		repo: &repository.Repository{
			Course:        courses,
			CalendarEvent: events,
		},
	}
}

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func strPtr(s string) *string { return &s }

// seedCourse 写入一门课程
func (r *testRepos) seedCourse(ownerID, name string) *model.Course {
	c := &model.Course{OwnerID: ownerID, Name: name, Color: coursePalette[0]}
	c.ApplySchedule(model.ClassSchedule{})
	_ = r.course.Create(context.Background(), c)
	return c
}
