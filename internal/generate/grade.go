package generate

import "strings"

// GradeMCQ records selection on q and whether it matches the correct option.
func GradeMCQ(q MCQ, selection string) MCQ {
	q.UserSelection = strings.ToUpper(strings.TrimSpace(selection))
	ok := q.UserSelection != "" && q.UserSelection == strings.ToUpper(strings.TrimSpace(q.Correct))
	q.IsCorrect = &ok
	return q
}

// Score counts the graded questions answered correctly.
func Score(qs []MCQ) int {
	n := 0
	for _, q := range qs {
		if q.IsCorrect != nil && *q.IsCorrect {
			n++
		}
	}
	return n
}
