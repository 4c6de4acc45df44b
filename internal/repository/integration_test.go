//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/repository"
	"spaxio-scheduled/pkg/database"
	pkgerrors "spaxio-scheduled/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=spaxio password=spaxio_password dbname=spaxio_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupCourse 创建测试课程并返回清理函数
func setupCourse(t *testing.T) (*model.Course, func()) {
	t.Helper()
	ctx := context.Background()

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	course := &model.Course{
		OwnerID:   uuid.NewString(),
		Name:      fmt.Sprintf("测试课程-%d", time.Now().UnixNano()),
		Color:     "#4472C4",
		TermStart: &start,
	}
	course.ApplySchedule(model.ClassSchedule{})
	if err := testDB.WithContext(ctx).Create(course).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("course_id = ?", course.CourseID).Delete(&model.CalendarEvent{})
		testDB.Unscoped().Where("course_id = ?", course.CourseID).Delete(&model.Course{})
	}
	return course, cleanup
}

func classSession(course *model.Course, date time.Time, start, end string) model.CalendarEvent {
	return model.CalendarEvent{
		OwnerID:   course.OwnerID,
		CourseID:  &course.CourseID,
		Title:     "Class",
		Kind:      model.EventKindClass,
		EventDate: date,
		StartTime: &start,
		EndTime:   &end,
	}
}

// ═══════════════════════════════════════════════════════════
// Test: CreateWithEvents
// ═══════════════════════════════════════════════════════════

func TestCourse_CreateWithEvents(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	course := &model.Course{
		OwnerID: uuid.NewString(),
		Name:    "Intro to Biology",
		Color:   "#4472C4",
	}
	course.ApplySchedule(model.ClassSchedule{})
	events := []model.CalendarEvent{
		{OwnerID: course.OwnerID, Title: "Quiz 1", Kind: model.EventKindTest, EventDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{OwnerID: course.OwnerID, Title: "Essay due", Kind: model.EventKindAssignment, EventDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	if err := repo.Course.CreateWithEvents(ctx, course, events); err != nil {
		t.Fatalf("CreateWithEvents 失败: %v", err)
	}
	defer func() {
		testDB.Where("course_id = ?", course.CourseID).Delete(&model.CalendarEvent{})
		testDB.Unscoped().Where("course_id = ?", course.CourseID).Delete(&model.Course{})
	}()

	got, err := repo.CalendarEvent.List(ctx, repository.EventFilter{CourseID: course.CourseID})
	if err != nil {
		t.Fatalf("查询事件失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个事件，得到 %d", len(got))
	}
	if got[0].Title != "Quiz 1" || got[0].EventDate.Format(model.DateLayout) != "2025-03-05" {
		t.Errorf("事件顺序或日期错误: %+v", got[0])
	}
}

func TestCourse_CreateWithEvents_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	course := &model.Course{
		OwnerID: uuid.NewString(),
		Name:    "回滚课程",
		Color:   "#4472C4",
	}
	course.ApplySchedule(model.ClassSchedule{})
	// 非法 kind 触发 CHECK 约束，课程也应回滚
	events := []model.CalendarEvent{
		{OwnerID: course.OwnerID, Title: "bad", Kind: model.EventKind("lecture"), EventDate: time.Now().UTC()},
	}
	if err := repo.Course.CreateWithEvents(ctx, course, events); err == nil {
		t.Fatal("期望事务失败")
	}

	n, err := repo.Course.CountByOwner(ctx, course.OwnerID)
	if err != nil {
		t.Fatalf("CountByOwner 失败: %v", err)
	}
	if n != 0 {
		testDB.Unscoped().Where("owner_id = ?", course.OwnerID).Delete(&model.Course{})
		t.Fatal("期望回滚后查不到课程，但实际查到了")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Course_ConflictDetected(t *testing.T) {
	course, cleanup := setupCourse(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	copy1, _ := repo.Course.GetByID(ctx, course.CourseID)
	copy2, _ := repo.Course.GetByID(ctx, course.CourseID)

	copy1.Name = "改名一"
	if err := repo.Course.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}

	copy2.Name = "改名二"
	err := repo.Course.Update(ctx, copy2)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}

	final, _ := repo.Course.GetByID(ctx, course.CourseID)
	if final.Version != 2 || final.Name != "改名一" {
		t.Errorf("期望 version=2 且名称为改名一，得到 %d / %s", final.Version, final.Name)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: ReplaceClassSessions
// ═══════════════════════════════════════════════════════════

func TestReplaceClassSessions_NoLeftovers(t *testing.T) {
	course, cleanup := setupCourse(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	// 一个非 class 事件不应受替换影响
	quiz := model.CalendarEvent{
		OwnerID: course.OwnerID, CourseID: &course.CourseID,
		Title: "Quiz", Kind: model.EventKindTest,
		EventDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	if err := testDB.Create(&quiz).Error; err != nil {
		t.Fatalf("创建 quiz 失败: %v", err)
	}

	// A：周二 09:00
	a := []model.CalendarEvent{
		classSession(course, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), "09:00:00", "09:50:00"),
		classSession(course, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), "09:00:00", "09:50:00"),
	}
	if err := repo.CalendarEvent.ReplaceClassSessions(ctx, course.CourseID, a); err != nil {
		t.Fatalf("写入 A 失败: %v", err)
	}

	// B：周三 13:00
	b := []model.CalendarEvent{
		classSession(course, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), "13:00:00", "14:15:00"),
	}
	if err := repo.CalendarEvent.ReplaceClassSessions(ctx, course.CourseID, b); err != nil {
		t.Fatalf("写入 B 失败: %v", err)
	}

	sessions, err := repo.CalendarEvent.ListClassSessions(ctx, course.CourseID)
	if err != nil {
		t.Fatalf("查询课次失败: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("期望仅剩 B 的 1 个课次，得到 %d", len(sessions))
	}
	if sessions[0].EventDate.Weekday() != time.Wednesday {
		t.Errorf("残留了 A 的课次: %s", sessions[0].EventDate)
	}

	all, _ := repo.CalendarEvent.List(ctx, repository.EventFilter{CourseID: course.CourseID})
	if len(all) != 2 {
		t.Errorf("期望 1 个课次 + 1 个 quiz，得到 %d", len(all))
	}

	// 清空
	if err := repo.CalendarEvent.ReplaceClassSessions(ctx, course.CourseID, nil); err != nil {
		t.Fatalf("清空失败: %v", err)
	}
	sessions, _ = repo.CalendarEvent.ListClassSessions(ctx, course.CourseID)
	if len(sessions) != 0 {
		t.Errorf("清空后期望 0 个课次，得到 %d", len(sessions))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Soft Delete
// ═══════════════════════════════════════════════════════════

func TestCourse_DeleteRemovesEvents(t *testing.T) {
	course, cleanup := setupCourse(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	sessions := []model.CalendarEvent{
		classSession(course, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), "09:00:00", "09:50:00"),
	}
	if err := repo.CalendarEvent.ReplaceClassSessions(ctx, course.CourseID, sessions); err != nil {
		t.Fatalf("写入课次失败: %v", err)
	}

	if err := repo.Course.Delete(ctx, course.CourseID, course.OwnerID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}

	if _, err := repo.Course.GetByID(ctx, course.CourseID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("软删除后应查不到课程，得到: %v", err)
	}
	left, _ := repo.CalendarEvent.List(ctx, repository.EventFilter{CourseID: course.CourseID})
	if len(left) != 0 {
		t.Errorf("课程删除后事件应一并删除，剩余 %d", len(left))
	}
}

func TestCourse_ListWithOpenSchedule(t *testing.T) {
	course, cleanup := setupCourse(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	start, end := "09:00:00", "09:50:00"
	course.ApplySchedule(model.ClassSchedule{
		Blocks:      []model.WeeklyBlock{{Days: []string{"Tue", "Thu"}, Start: start, End: end}},
		SingleDays:  []string{"Tue", "Thu"},
		SingleStart: &start,
		SingleEnd:   &end,
	})
	if err := repo.Course.Update(ctx, course); err != nil {
		t.Fatalf("更新课表失败: %v", err)
	}

	open, err := repo.Course.ListWithOpenSchedule(ctx)
	if err != nil {
		t.Fatalf("ListWithOpenSchedule 失败: %v", err)
	}
	found := false
	for _, c := range open {
		if c.CourseID == course.CourseID {
			found = true
			if len(c.Blocks()) != 1 || len(c.Blocks()[0].Days) != 2 {
				t.Errorf("周课表读回错误: %+v", c.Blocks())
			}
		}
	}
	if !found {
		t.Error("无学期结束日期且有课表的课程应被列出")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: UpdateWithSessions
// ═══════════════════════════════════════════════════════════

func TestUpdateWithSessions_RollbackKeepsOldSchedule(t *testing.T) {
	course, cleanup := setupCourse(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	start, end := "09:00:00", "09:50:00"
	course.ApplySchedule(model.ClassSchedule{
		Blocks:      []model.WeeklyBlock{{Days: []string{"Tue"}, Start: start, End: end}},
		SingleDays:  []string{"Tue"},
		SingleStart: &start,
		SingleEnd:   &end,
	})
	a := []model.CalendarEvent{
		classSession(course, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), start, end),
	}
	if err := repo.Course.UpdateWithSessions(ctx, course, a); err != nil {
		t.Fatalf("写入课表 A 失败: %v", err)
	}

	// B 的课次违反 kind CHECK，整个事务必须回滚
	stale, _ := repo.Course.GetByID(ctx, course.CourseID)
	stale.ApplySchedule(model.ClassSchedule{
		Blocks: []model.WeeklyBlock{
			{Days: []string{"Wed"}, Start: "13:00:00", End: "14:15:00"},
			{Days: []string{"Fri"}, Start: "10:00:00", End: "10:50:00"},
		},
	})
	bad := classSession(stale, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), "13:00:00", "14:15:00")
	bad.Kind = "lecture"
	if err := repo.Course.UpdateWithSessions(ctx, stale, []model.CalendarEvent{bad}); err == nil {
		t.Fatal("期望写入失败")
	}

	got, _ := repo.Course.GetByID(ctx, course.CourseID)
	if blocks := got.Blocks(); len(blocks) != 1 || blocks[0].Days[0] != "Tue" {
		t.Errorf("回滚后课程应仍为课表 A，得到 %+v", blocks)
	}
	if got.Version != course.Version {
		t.Errorf("回滚后 version 不应变化: %d → %d", course.Version, got.Version)
	}
	sessions, _ := repo.CalendarEvent.ListClassSessions(ctx, course.CourseID)
	if len(sessions) != 1 || sessions[0].EventDate.Weekday() != time.Tuesday {
		t.Errorf("回滚后应保留 A 的课次，得到 %d 个", len(sessions))
	}
}

func TestFirstClassSessionDate(t *testing.T) {
	course, cleanup := setupCourse(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first, err := repo.CalendarEvent.FirstClassSessionDate(ctx, course.CourseID)
	if err != nil || first != nil {
		t.Fatalf("无课次时期望 nil，得到 %v / %v", first, err)
	}

	sessions := []model.CalendarEvent{
		classSession(course, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), "09:00:00", "09:50:00"),
		classSession(course, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), "09:00:00", "09:50:00"),
	}
	if err := repo.CalendarEvent.ReplaceClassSessions(ctx, course.CourseID, sessions); err != nil {
		t.Fatalf("写入课次失败: %v", err)
	}

	first, err = repo.CalendarEvent.FirstClassSessionDate(ctx, course.CourseID)
	if err != nil || first == nil {
		t.Fatalf("查询最早课次失败: %v", err)
	}
	if want := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC); !first.Equal(want) {
		t.Errorf("期望 %s，得到 %s", want, first)
	}
}
