package oracle

import (
	"strings"
	"time"
)

const systemPromptTemplate = `You extract structured course information from a syllabus.
Today's date is {{TODAY}}. Use it to resolve dates that omit the year.

Respond with ONE JSON object and nothing else, using exactly these keys:
{
  "courseName": string,
  "courseCode": string or null,
  "assignmentWeights": { "<label>": <percentage number> },
  "tentativeSchedule": [ { "date": "YYYY-MM-DD", "title": string, "type": "assignment" | "test" | "quiz" | "exam" | "other" } ],
  "classSchedule": [ { "days": ["Mon".."Sun"], "start": "HH:MM", "end": "HH:MM" } ],
  "termStartDate": "YYYY-MM-DD" or null,
  "termEndDate": "YYYY-MM-DD" or null
}

Rules:
- Only include dated items that appear in the syllabus. Never invent dates.
- Use "assignment" only for items with an explicit due date or deadline.
- Reviews, feedback sessions and practice tests are "test".
- List weekly meeting times in classSchedule. Do not list individual class meetings in tentativeSchedule.
- If the meeting days are not stated, return an empty classSchedule. Do not guess every day of the week.
- Use null for unknown term dates.`

// SystemPrompt 带当天日期的系统提示词
func SystemPrompt(today time.Time) string {
	return strings.ReplaceAll(systemPromptTemplate, "{{TODAY}}", today.Format("2006-01-02"))
}
