package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// WeeklyBlock 每周固定上课时段：星期集合 + 开始/结束时间（HH:MM:SS）
type WeeklyBlock struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`
}

// ClassSchedule 周课表的两种存储形态
//   - Blocks: 通用多时段形态
//   - Single*: 恰好一个时段时的扁平形态（便于查询），多时段时全部清空
//
// 两种形态只能经 Course.ApplySchedule 一起写入，避免不一致
type ClassSchedule struct {
	Blocks      []WeeklyBlock
	SingleDays  []string
	SingleStart *string
	SingleEnd   *string
}

// Empty 是否无可用周课表
func (s ClassSchedule) Empty() bool { return len(s.Blocks) == 0 }

// Course 课程表，对应 courses
type Course struct {
	CourseID          string                          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	OwnerID           string                          `gorm:"type:uuid;not null"                             json:"owner_id"`
	Name              string                          `gorm:"type:varchar(200);not null"                     json:"name"`
	Code              *string                         `gorm:"type:varchar(50)"                               json:"code,omitempty"`
	Color             string                          `gorm:"type:varchar(20);not null"                      json:"color"`
	TermStart         *time.Time                      `gorm:"type:date"                                      json:"term_start,omitempty"`
	TermEnd           *time.Time                      `gorm:"type:date"                                      json:"term_end,omitempty"`
	ClassBlocks       datatypes.JSONSlice[WeeklyBlock] `gorm:"type:jsonb;not null;default:'[]'"               json:"class_blocks"`
	ClassDays         pq.StringArray                  `gorm:"type:text[]"                                    json:"class_days,omitempty"`
	ClassStart        *string                         `gorm:"type:time"                                      json:"class_start,omitempty"`
	ClassEnd          *string                         `gorm:"type:time"                                      json:"class_end,omitempty"`
	AssignmentWeights datatypes.JSONMap               `gorm:"type:jsonb;not null;default:'{}'"               json:"assignment_weights"`
	VersionedModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// ApplySchedule 同时写入多时段与单时段两种形态
func (c *Course) ApplySchedule(s ClassSchedule) {
	blocks := make([]WeeklyBlock, len(s.Blocks))
	copy(blocks, s.Blocks)
	c.ClassBlocks = datatypes.JSONSlice[WeeklyBlock](blocks)

	if len(s.Blocks) == 1 {
		c.ClassDays = pq.StringArray(append([]string(nil), s.SingleDays...))
		c.ClassStart = s.SingleStart
		c.ClassEnd = s.SingleEnd
		return
	}
	c.ClassDays = nil
	c.ClassStart = nil
	c.ClassEnd = nil
}

// Blocks 读取周课表；旧数据只有单时段形态时从扁平字段还原
func (c *Course) Blocks() []WeeklyBlock {
	if len(c.ClassBlocks) > 0 {
		return []WeeklyBlock(c.ClassBlocks)
	}
	if len(c.ClassDays) > 0 && c.ClassStart != nil && c.ClassEnd != nil {
		return []WeeklyBlock{{
			Days:  []string(c.ClassDays),
			Start: *c.ClassStart,
			End:   *c.ClassEnd,
		}}
	}
	return nil
}

// HasSchedule NO_SCHEDULE / HAS_SCHEDULE 状态判断
func (c *Course) HasSchedule() bool { return len(c.Blocks()) > 0 }

// ClampTerm 学期结束早于开始时，将结束日期提升为开始日期
func (c *Course) ClampTerm() {
	if c.TermStart != nil && c.TermEnd != nil && c.TermEnd.Before(*c.TermStart) {
		end := *c.TermStart
		c.TermEnd = &end
	}
}
