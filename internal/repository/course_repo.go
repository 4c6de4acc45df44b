package repository

import (
	"context"

	"gorm.io/gorm"

	"spaxio-scheduled/internal/model"
	pkgerrors "spaxio-scheduled/pkg/errors"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	// CreateWithEvents 在同一事务中创建课程及其考核 / 主题事件（事件的 CourseID 由此处回填）
	CreateWithEvents(ctx context.Context, course *model.Course, events []model.CalendarEvent) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Course, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	// ListWithOpenSchedule 有周课表但没有学期结束日期的课程（课次窗口随时间滚动）
	ListWithOpenSchedule(ctx context.Context) ([]model.Course, error)
	// Update 乐观锁更新；version 不匹配返回 ErrOptimisticLock
	Update(ctx context.Context, course *model.Course) error
	// UpdateWithSessions 同一事务内乐观锁更新课程并全量替换其 class 事件；
	// 任一步失败则课程与课次都保持原状
	UpdateWithSessions(ctx context.Context, course *model.Course, sessions []model.CalendarEvent) error
	// Delete 软删除课程，并硬删除其全部日历事件
	Delete(ctx context.Context, id string, deletedBy string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) CreateWithEvents(ctx context.Context, course *model.Course, events []model.CalendarEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(course).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for i := range events {
			events[i].CourseID = &course.CourseID
		}
		return tx.Create(&events).Error
	})
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

func (r *courseRepo) ListWithOpenSchedule(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("term_end IS NULL").
		Where("(CASE WHEN jsonb_typeof(class_blocks) = 'array' THEN jsonb_array_length(class_blocks) ELSE 0 END > 0 OR cardinality(class_days) > 0)").
		Order("owner_id ASC, created_at ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	if err := updateVersioned(r.db.WithContext(ctx), course); err != nil {
		return err
	}
	course.Version++
	return nil
}

func (r *courseRepo) UpdateWithSessions(ctx context.Context, course *model.Course, sessions []model.CalendarEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, course); err != nil {
			return err
		}
		return replaceClassSessions(tx, course.CourseID, sessions)
	})
	if err != nil {
		return err
	}
	course.Version++
	return nil
}

// updateVersioned 按 version 条件更新课程可编辑列；不修改 course.Version，由调用方在提交后递增
func updateVersioned(db *gorm.DB, course *model.Course) error {
	result := db.Model(&model.Course{}).
		Where("course_id = ? AND version = ?", course.CourseID, course.Version).
		Updates(map[string]interface{}{
			"name":         course.Name,
			"code":         course.Code,
			"color":        course.Color,
			"term_start":   course.TermStart,
			"term_end":     course.TermEnd,
			"class_blocks": course.ClassBlocks,
			"class_days":   course.ClassDays,
			"class_start":  course.ClassStart,
			"class_end":    course.ClassEnd,
			"updated_by":   course.UpdatedBy,
			"version":      course.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 事件随课程一起消失，无需保留
		if err := tx.Where("course_id = ?", id).
			Delete(&model.CalendarEvent{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Course{}).
			Where("course_id = ?", id).
			Updates(map[string]interface{}{
				"deleted_by": deletedBy,
				"deleted_at": gorm.Expr("NOW()"),
			}).Error
	})
}
