package service

import (
	"time"

	"spaxio-scheduled/internal/dto"
	"spaxio-scheduled/internal/model"
)

func toCourseResponse(c *model.Course) dto.CourseResponse {
	blocks := c.Blocks()
	if blocks == nil {
		blocks = []model.WeeklyBlock{}
	}
	return dto.CourseResponse{
		ID:                c.CourseID,
		Name:              c.Name,
		Code:              c.Code,
		Color:             c.Color,
		TermStart:         model.FormatDate(c.TermStart),
		TermEnd:           model.FormatDate(c.TermEnd),
		Blocks:            blocks,
		HasSchedule:       len(blocks) > 0,
		AssignmentWeights: c.AssignmentWeights,
		Version:           c.Version,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         c.UpdatedAt.Format(time.RFC3339),
	}
}

func toEventResponse(e *model.CalendarEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:        e.EventID,
		CourseID:  e.CourseID,
		Title:     e.Title,
		Kind:      string(e.Kind),
		Date:      e.EventDate.Format(model.DateLayout),
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Weight:    e.Weight,
	}
}

func toEventResponses(events []model.CalendarEvent) []dto.EventResponse {
	out := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i]))
	}
	return out
}

// parseOptionalDate 空串 / nil 返回 nil
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
