package service

import (
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
)

// GradeAttempt computes the final score for a completed attempt.
//
// Every question of the test contributes to exactly one of three counts:
// correct (awards the question's marks), wrong (deducts its negative
// marks), or unattempted (no score change). A response with a nil
// selected option index counts as unattempted. Section buckets are
// created for every section in the test definition, in definition
// order, so sections the taker never touched still appear with zeroes.
func GradeAttempt(attempt *model.Attempt, questions []model.Question, sections []model.Section) *model.Result {
	stats := make([]model.SectionStat, 0, len(sections))
	statIdx := make(map[string]int, len(sections))
	for _, s := range sections {
		statIdx[s.Name] = len(stats)
		stats = append(stats, model.SectionStat{SectionName: s.Name})
	}

	result := &model.Result{
		AttemptID:  attempt.ID,
		UserID:     attempt.UserID,
		MockTestID: attempt.MockTestID,
	}

	for _, q := range questions {
		idx, ok := statIdx[q.SectionName]
		if !ok {
			// Question references a section missing from the test
			// definition. Bucket it anyway so its marks are not lost.
			idx = len(stats)
			statIdx[q.SectionName] = idx
			stats = append(stats, model.SectionStat{SectionName: q.SectionName})
		}
		stat := &stats[idx]

		resp, answered := attempt.Responses[q.ID]
		if !answered || resp.SelectedOptionIndex == nil {
			result.TotalUnattempted++
			stat.Unattempted++
			continue
		}

		if *resp.SelectedOptionIndex == q.CorrectOptionIndex {
			result.Score += q.Marks
			result.TotalCorrect++
			stat.Score += q.Marks
			stat.Correct++
		} else {
			result.Score -= q.NegativeMarks
			result.TotalWrong++
			stat.Score -= q.NegativeMarks
			stat.Wrong++
		}
	}

	result.SectionAnalysis = stats
	return result
}
