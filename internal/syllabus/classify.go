package syllabus

import (
	"strings"

	"spaxio-scheduled/internal/model"
)

// 分级关键词：按 exam → test → assignment 顺序首个命中生效。
// 评阅 / 复习 / 讲座主题不能落入 assignment（assignment 会触发提醒邮件），
// 只有出现 due / deadline 等明确字样才归为 assignment。
var (
	examKeywords = []string{"exam", "midterm", "mid-term", "final", "finals"}

	testKeywords = []string{
		"test", "quiz", "quizzes", "pop quiz", "pop_quiz",
		"practice test", "practice_test", "mock exam",
		"assessment", "review", "feedback",
	}

	assignmentKeywords = []string{
		"assignment", "assignments", "homework", "project",
		"presentation", "lab report", "due", "deadline",
	}
)

// Classify 将模型给出的事件标签归入 {assignment, test, exam, other}
func Classify(rawLabel string) model.EventKind {
	label := strings.ToLower(strings.TrimSpace(rawLabel))
	if label == "" {
		return model.EventKindOther
	}

	switch {
	case containsAny(label, examKeywords):
		return model.EventKindExam
	case containsAny(label, testKeywords):
		return model.EventKindTest
	case containsAny(label, assignmentKeywords):
		return model.EventKindAssignment
	}
	return model.EventKindOther
}

func containsAny(label string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}
