package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"spaxio-scheduled/config"
	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/oracle"
	"spaxio-scheduled/internal/syllabus"
	pkgerrors "spaxio-scheduled/pkg/errors"
)

const bioPayload = `{
	"courseName": "Intro to Biology",
	"tentativeSchedule": [
		{"date": "2025-03-05", "title": "Quiz 1", "type": "quiz"},
		{"date": "2025-03-10", "title": "Essay due", "type": "assignment"},
		{"date": "bad-date", "title": "ignored", "type": "test"}
	],
	"classSchedule": []
}`

// recordingOracle 记录送入模型的文本
type recordingOracle struct {
	oracle.StaticClient
	lastText  string
	lastToday time.Time
}

func (r *recordingOracle) Extract(ctx context.Context, text string, today time.Time) ([]byte, error) {
	r.lastText = text
	r.lastToday = today
	return r.StaticClient.Extract(ctx, text, today)
}

func setupTestExtractionService(response string, limit int) (*extractionService, *testRepos, *recordingOracle, *mockQuotaCounter) {
	repos := newTestRepos()
	orc := &recordingOracle{StaticClient: oracle.StaticClient{Response: []byte(response)}}
	counter := newMockQuotaCounter()
	quota := NewQuotaGate(&config.QuotaConfig{MonthlyLimit: limit, AdminIDs: []string{"admin-1"}}, counter, zap.NewNop())

	svc := NewExtractionService(&config.ExtractionConfig{MaxTextChars: 50}, repos.repo, orc, quota, zap.NewNop()).(*extractionService)
	svc.now = func() time.Time { return time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC) }
	return svc, repos, orc, counter
}

func TestExtractionService_EndToEnd(t *testing.T) {
	svc, repos, orc, counter := setupTestExtractionService(bioPayload, 5)

	resp, err := svc.Extract(context.Background(), "user-1", "Biology 101 syllabus ...")
	if err != nil {
		t.Fatalf("Extract 应成功: %v", err)
	}

	if resp.Course.Name != "Intro to Biology" {
		t.Errorf("课程名错误: %s", resp.Course.Name)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("期望 2 个事件，实际 %d", len(resp.Events))
	}
	if resp.Events[0].Kind != string(model.EventKindTest) || resp.Events[0].Date != "2025-03-05" {
		t.Errorf("事件 0 错误: %+v", resp.Events[0])
	}
	if resp.Events[1].Kind != string(model.EventKindAssignment) || resp.Events[1].Date != "2025-03-10" {
		t.Errorf("事件 1 错误: %+v", resp.Events[1])
	}
	if resp.Events[0].CourseID == nil || *resp.Events[0].CourseID != resp.Course.ID {
		t.Error("事件应关联到新课程")
	}

	fu := resp.FollowUp
	if !fu.NeedsClassTime || !fu.NeedsTermDates {
		t.Errorf("FollowUp 错误: %+v", fu)
	}
	if *fu.SuggestedTermStart != "2025-03-05" || *fu.SuggestedTermEnd != "2025-03-10" {
		t.Errorf("学期建议错误: %s ~ %s", *fu.SuggestedTermStart, *fu.SuggestedTermEnd)
	}

	// 建议不落库
	if resp.Course.TermStart != nil || resp.Course.TermEnd != nil {
		t.Error("学期建议不应写入课程")
	}
	if resp.Course.HasSchedule {
		t.Error("无周课表时课程不应有课表")
	}
	if sessions, _ := repos.event.ListClassSessions(context.Background(), resp.Course.ID); len(sessions) != 0 {
		t.Error("解析阶段不应生成课次")
	}

	if !orc.lastToday.Equal(date("2025-01-10")) {
		t.Errorf("送入模型的日期应为当天零点，实际 %s", orc.lastToday)
	}
	if counter.counts["quota:extract:user-1:"+time.Now().UTC().Format("2006-01")] != 1 {
		t.Errorf("应扣减一次额度: %v", counter.counts)
	}
}

func TestExtractionService_ScheduleIsSuggestionOnly(t *testing.T) {
	payload := `{"courseName":"Chem","classSchedule":[{"days":["Tue","Thu"],"start":"9:00","end":"9:50"}],"termStartDate":"2025-01-13","termEndDate":"2025-05-02"}`
	svc, repos, _, _ := setupTestExtractionService(payload, 5)

	resp, err := svc.Extract(context.Background(), "user-1", "chem syllabus")
	if err != nil {
		t.Fatalf("Extract 应成功: %v", err)
	}
	if !resp.Course.HasSchedule || len(resp.Course.Blocks) != 1 {
		t.Errorf("课表应作为建议写入课程: %+v", resp.Course.Blocks)
	}
	if resp.FollowUp.NeedsClassTime || len(resp.FollowUp.SuggestedDays) != 2 {
		t.Errorf("FollowUp 错误: %+v", resp.FollowUp)
	}
	if *resp.Course.TermStart != "2025-01-13" || *resp.Course.TermEnd != "2025-05-02" {
		t.Error("合法学期日期应写入课程")
	}
	if len(resp.Events) != 0 || len(repos.event.events) != 0 {
		t.Error("解析阶段不应生成任何 class 事件")
	}
}

func TestExtractionService_EmptyText(t *testing.T) {
	svc, _, orc, _ := setupTestExtractionService(bioPayload, 5)
	if _, err := svc.Extract(context.Background(), "user-1", "   "); !errors.Is(err, ErrExtractionEmptyText) {
		t.Errorf("期望 ErrExtractionEmptyText，实际: %v", err)
	}
	if orc.Calls != 0 {
		t.Error("空文本不应调用模型")
	}
}

func TestExtractionService_Truncates(t *testing.T) {
	svc, _, orc, _ := setupTestExtractionService(bioPayload, 5)
	text := strings.Repeat("生物", 100)
	if _, err := svc.Extract(context.Background(), "user-1", text); err != nil {
		t.Fatalf("Extract 应成功: %v", err)
	}
	if n := len([]rune(orc.lastText)); n != 50 {
		t.Errorf("送入模型的文本应截断为 50 个字符，实际 %d", n)
	}
}

func TestExtractionService_QuotaExceeded(t *testing.T) {
	svc, repos, orc, _ := setupTestExtractionService(bioPayload, 1)
	ctx := context.Background()

	if _, err := svc.Extract(ctx, "user-1", "text"); err != nil {
		t.Fatalf("首次应成功: %v", err)
	}
	if _, err := svc.Extract(ctx, "user-1", "text"); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("期望 ErrQuotaExceeded，实际: %v", err)
	}
	if orc.Calls != 1 {
		t.Errorf("额度不足时不应调用模型，实际调用 %d 次", orc.Calls)
	}
	if len(repos.course.courses) != 1 {
		t.Errorf("额度不足时不应创建课程，实际 %d 门", len(repos.course.courses))
	}

	// 管理员不受限制
	if _, err := svc.Extract(ctx, "admin-1", "text"); err != nil {
		t.Errorf("管理员不应受额度限制: %v", err)
	}
}

func TestExtractionService_OracleFailure(t *testing.T) {
	svc, _, orc, counter := setupTestExtractionService("", 5)
	orc.Err = errors.New("timeout")

	if _, err := svc.Extract(context.Background(), "user-1", "text"); !errors.Is(err, ErrExtractionOracleFailed) {
		t.Errorf("期望 ErrExtractionOracleFailed，实际: %v", err)
	}
	if len(counter.counts) != 0 {
		t.Error("失败时不应扣减额度")
	}
}

func TestExtractionService_InvalidResponse(t *testing.T) {
	svc, repos, _, _ := setupTestExtractionService("I could not read this document.", 5)

	if _, err := svc.Extract(context.Background(), "user-1", "text"); !errors.Is(err, ErrInvalidAIResponse) {
		t.Errorf("期望 ErrInvalidAIResponse，实际: %v", err)
	}
	if len(repos.course.courses) != 0 {
		t.Error("解析失败时不应创建课程")
	}
}

func TestExtractionService_StoreFailure(t *testing.T) {
	svc, repos, _, counter := setupTestExtractionService(bioPayload, 5)
	repos.course.createErr = errors.New("db down")

	if _, err := svc.Extract(context.Background(), "user-1", "text"); !errors.Is(err, pkgerrors.ErrStoreWrite) {
		t.Errorf("期望 ErrStoreWrite，实际: %v", err)
	}
	if len(counter.counts) != 0 {
		t.Error("写入失败时不应扣减额度")
	}
}

func TestExtractionService_DropsImpossibleDates(t *testing.T) {
	payload := `{"courseName":"Math","tentativeSchedule":[{"date":"2025-02-30","title":"Quiz","type":"quiz"},{"date":"2025-02-28","title":"Exam","type":"exam"}]}`
	svc, _, _, _ := setupTestExtractionService(payload, 5)

	resp, err := svc.Extract(context.Background(), "user-1", "text")
	if err != nil {
		t.Fatalf("Extract 应成功: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Date != "2025-02-28" || resp.Dropped != 1 {
		t.Errorf("不存在的日期应被丢弃: %+v dropped=%d", resp.Events, resp.Dropped)
	}
}

func TestExtractionService_ImpossibleTermDatesNeedFollowUp(t *testing.T) {
	payload := `{"courseName":"Math","termStartDate":"2025-02-30","termEndDate":"2025-13-40","tentativeSchedule":[{"date":"2025-03-05","title":"Quiz","type":"quiz"}]}`
	svc, _, _, _ := setupTestExtractionService(payload, 5)

	resp, err := svc.Extract(context.Background(), "user-1", "text")
	if err != nil {
		t.Fatalf("Extract 应成功: %v", err)
	}
	if resp.Course.TermStart != nil || resp.Course.TermEnd != nil {
		t.Errorf("不存在的学期日期不应写入: %v ~ %v", resp.Course.TermStart, resp.Course.TermEnd)
	}
	fu := resp.FollowUp
	if !fu.NeedsTermDates {
		t.Fatal("课程没有学期日期时应要求补充")
	}
	if fu.SuggestedTermStart == nil || *fu.SuggestedTermStart != "2025-03-05" ||
		fu.SuggestedTermEnd == nil || *fu.SuggestedTermEnd != "2025-03-05" {
		t.Errorf("学期建议应取事件日期范围，实际 %v ~ %v", fu.SuggestedTermStart, fu.SuggestedTermEnd)
	}
}

func TestExtractionService_OversizedFieldsBounded(t *testing.T) {
	title := strings.Repeat("x", 400)
	payload := `{"courseName":"` + strings.Repeat("N", 260) + `","courseCode":"` + strings.Repeat("C", 60) + `",` +
		`"assignmentWeights":{"Final":1000,"Quiz":15},` +
		`"tentativeSchedule":[{"date":"2025-03-05","title":"` + title + `","type":"quiz"},{"date":"2025-05-01","title":"Final","type":"exam"},{"date":"2025-03-12","title":"Quiz","type":"quiz"}]}`
	svc, repos, _, _ := setupTestExtractionService(payload, 5)

	resp, err := svc.Extract(context.Background(), "user-1", "text")
	if err != nil {
		t.Fatalf("超长字段应截断而不是写入失败: %v", err)
	}
	if len(resp.Course.Name) != syllabus.MaxCourseNameLen || len(*resp.Course.Code) != syllabus.MaxCourseCodeLen {
		t.Errorf("课程名 / 代码未截断: %d / %d", len(resp.Course.Name), len(*resp.Course.Code))
	}
	if len(resp.Events) != 3 || len(resp.Events[0].Title) != syllabus.MaxEventTitleLen {
		t.Fatalf("事件标题未截断: %+v", resp.Events)
	}
	if resp.Events[1].Weight != nil {
		t.Error("超出范围的权重不应写入事件")
	}
	if resp.Events[2].Weight == nil || *resp.Events[2].Weight != 15 {
		t.Error("范围内的权重应保留")
	}
	stored, _ := repos.course.GetByID(context.Background(), resp.Course.ID)
	if _, ok := stored.AssignmentWeights["Final"]; ok {
		t.Error("超出范围的权重不应写入课程")
	}
}

func TestExtractionService_InvertedTermClamped(t *testing.T) {
	payload := `{"courseName":"Art","termStartDate":"2025-05-01","termEndDate":"2025-01-01"}`
	svc, _, _, _ := setupTestExtractionService(payload, 5)

	resp, err := svc.Extract(context.Background(), "user-1", "text")
	if err != nil {
		t.Fatalf("Extract 应成功: %v", err)
	}
	if *resp.Course.TermEnd != "2025-05-01" {
		t.Errorf("学期结束早于开始时应提升为开始日期，实际 %s", *resp.Course.TermEnd)
	}
}

func TestExtractionService_PaletteRotates(t *testing.T) {
	svc, _, _, _ := setupTestExtractionService(bioPayload, 0)
	ctx := context.Background()

	first, _ := svc.Extract(ctx, "admin-1", "a")
	second, _ := svc.Extract(ctx, "admin-1", "b")
	if first.Course.Color != coursePalette[0] || second.Course.Color != coursePalette[1] {
		t.Errorf("颜色应按课程数轮换: %s, %s", first.Course.Color, second.Course.Color)
	}
	if first.Course.ID == second.Course.ID {
		t.Error("重复提交应创建新课程")
	}
}
