package syllabus

import (
	"testing"

	"spaxio-scheduled/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		label string
		want  model.EventKind
	}{
		{"Final Exam", model.EventKindExam},
		{"Midterm", model.EventKindExam},
		{"exam", model.EventKindExam},
		{"Pop Quiz", model.EventKindTest},
		{"quiz", model.EventKindTest},
		{"Practice Test", model.EventKindTest},
		{"Review for Test #1", model.EventKindTest},
		{"Peer feedback session", model.EventKindTest},
		{"Essay due", model.EventKindAssignment},
		{"Homework 3", model.EventKindAssignment},
		{"Group Project", model.EventKindAssignment},
		{"assignment", model.EventKindAssignment},
		{"Guest speaker", model.EventKindOther},
		{"Lecture: Cell Biology", model.EventKindOther},
		{"", model.EventKindOther},
		{"   ", model.EventKindOther},
	}

	for _, tc := range cases {
		if got := Classify(tc.label); got != tc.want {
			t.Errorf("Classify(%q) 期望 %s，实际 %s", tc.label, tc.want, got)
		}
	}
}

func TestClassify_NeverClass(t *testing.T) {
	for _, label := range []string{"class", "Class", "lecture", "lab"} {
		if got := Classify(label); got == model.EventKindClass {
			t.Errorf("Classify(%q) 不应返回 class", label)
		}
	}
}
