package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEvents     = errors.New("暂无可导出的日历事件")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const icsProductID = "-//spaxio//scheduled//EN"

// ExportService 导出业务接口
//
// 设计说明：
//   - ICS：仅日期的事件导出为全天事件（VALUE=DATE）；有时间的事件导出为浮动时间（不带 TZID）
//   - Excel：单 Sheet 按日期列出全部事件
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportICS courseID 为空时导出本人全部课程
	ExportICS(ctx context.Context, ownerID, courseID string) (*bytes.Buffer, string, error)
	// ExportExcel courseID 为空时导出本人全部课程
	ExportExcel(ctx context.Context, ownerID, courseID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, now: time.Now, logger: logger}
}

// exportSet 待导出的事件及其课程名索引
type exportSet struct {
	label       string
	events      []model.CalendarEvent
	courseNames map[string]string
}

func (s *exportService) collect(ctx context.Context, ownerID, courseID string) (*exportSet, error) {
	set := &exportSet{label: "all", courseNames: make(map[string]string)}

	if courseID != "" {
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
		set.label = course.Name
		set.courseNames[course.CourseID] = course.Name
	} else {
		courses, err := s.repo.Course.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		for _, c := range courses {
			set.courseNames[c.CourseID] = c.Name
		}
	}

	events, err := s.repo.CalendarEvent.List(ctx, repository.EventFilter{OwnerID: ownerID, CourseID: courseID})
	if err != nil {
		s.logger.Error("查询导出事件失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrExportNoEvents
	}
	set.events = events
	return set, nil
}

func (set *exportSet) courseName(e *model.CalendarEvent) string {
	if e.CourseID == nil {
		return ""
	}
	return set.courseNames[*e.CourseID]
}

// ═══════════════════════════════════════════════════════════
// ExportICS 导出为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, ownerID, courseID string) (*bytes.Buffer, string, error) {
	set, err := s.collect(ctx, ownerID, courseID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetName(set.label)

	stamp := s.now().UTC()
	for i := range set.events {
		e := &set.events[i]
		vevent := cal.AddEvent(e.EventID + "@spaxio-scheduled")
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(eventSummary(e, set.courseName(e)))
		vevent.AddProperty(ics.ComponentPropertyCategories, strings.ToUpper(string(e.Kind)))
		if e.Weight != nil {
			vevent.SetDescription(fmt.Sprintf("Weight: %g%%", *e.Weight))
		}

		if e.StartTime == nil {
			vevent.SetAllDayStartAt(e.EventDate)
			vevent.SetAllDayEndAt(e.EventDate.AddDate(0, 0, 1))
			continue
		}
		vevent.SetProperty(ics.ComponentPropertyDtStart, floatingDateTime(e.EventDate, *e.StartTime))
		end := *e.StartTime
		if e.EndTime != nil {
			end = *e.EndTime
		}
		vevent.SetProperty(ics.ComponentPropertyDtEnd, floatingDateTime(e.EventDate, end))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, exportFilename(set.label, "ics"), nil
}

func eventSummary(e *model.CalendarEvent, courseName string) string {
	if courseName == "" {
		return e.Title
	}
	return courseName + ": " + e.Title
}

// floatingDateTime 本地浮动时间 YYYYMMDDTHHMMSS（无 Z / TZID）
func floatingDateTime(date time.Time, clock string) string {
	return date.Format("20060102") + "T" + strings.ReplaceAll(clock, ":", "")
}

// ═══════════════════════════════════════════════════════════
// ExportExcel 导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 列：日期 | 星期 | 课程 | 标题 | 类型 | 开始 | 结束 | 权重

func (s *exportService) ExportExcel(ctx context.Context, ownerID, courseID string) (*bytes.Buffer, string, error) {
	set, err := s.collect(ctx, ownerID, courseID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "日历"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{"日期", "星期", "课程", "标题", "类型", "开始", "结束", "权重"}
	widths := []float64{12, 6, 24, 36, 12, 10, 10, 8}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	// 数据行
	row := 2
	for i := range set.events {
		e := &set.events[i]
		f.SetCellValue(sheetName, cell("A", row), e.EventDate.Format(model.DateLayout))
		f.SetCellValue(sheetName, cell("B", row), e.EventDate.Weekday().String()[:3])
		f.SetCellValue(sheetName, cell("C", row), set.courseName(e))
		f.SetCellValue(sheetName, cell("D", row), e.Title)
		f.SetCellValue(sheetName, cell("E", row), string(e.Kind))
		f.SetCellValue(sheetName, cell("F", row), derefOr(e.StartTime, "全天"))
		f.SetCellValue(sheetName, cell("G", row), derefOr(e.EndTime, ""))
		if e.Weight != nil {
			f.SetCellValue(sheetName, cell("H", row), *e.Weight)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, exportFilename(set.label, "xlsx"), nil
}

// ── 辅助函数 ──

func exportFilename(label, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, label)
	return fmt.Sprintf("calendar_%s.%s", name, ext)
}

func derefOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
