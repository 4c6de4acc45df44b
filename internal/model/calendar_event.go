package model

import "time"

// EventKind 日历事件类型（封闭集合）
type EventKind string

const (
	EventKindClass      EventKind = "class"
	EventKindAssignment EventKind = "assignment"
	EventKindTest       EventKind = "test"
	EventKindExam       EventKind = "exam"
	EventKindOther      EventKind = "other"
)

// Valid 是否属于封闭集合
func (k EventKind) Valid() bool {
	switch k {
	case EventKindClass, EventKindAssignment, EventKindTest, EventKindExam, EventKindOther:
		return true
	}
	return false
}

// CalendarEvent 日历事件表，对应 calendar_events
//
// class 类事件只由课次生成器写入（整体替换）；其余类型由大纲解析一次性创建
type CalendarEvent struct {
	EventID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	OwnerID   string    `gorm:"type:uuid;not null"                             json:"owner_id"`
	CourseID  *string   `gorm:"type:uuid"                                      json:"course_id,omitempty"`
	Title     string    `gorm:"type:varchar(300);not null"                     json:"title"`
	Kind      EventKind `gorm:"type:varchar(20);not null"                      json:"kind"`
	EventDate time.Time `gorm:"type:date;not null"                             json:"event_date"`
	StartTime *string   `gorm:"type:time"                                      json:"start_time,omitempty"`
	EndTime   *string   `gorm:"type:time"                                      json:"end_time,omitempty"`
	Weight    *float64  `gorm:"type:numeric(5,2)"                              json:"weight,omitempty"`
	BaseModel

	// 关联
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (CalendarEvent) TableName() string { return "calendar_events" }
