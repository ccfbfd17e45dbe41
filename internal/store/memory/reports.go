package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/orlandoalexander/educatch/internal/model"
)

func (r *repo) EnsureReports(_ context.Context) (int, error) {
	has := r.reportsByOccurrence()

	missing := make([]int64, 0)
	for id := range r.st.occurrences {
		if _, ok := has[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)

	for _, occurrenceID := range missing {
		r.st.seq.report++
		r.st.reports[r.st.seq.report] = model.Report{
			ID:           r.st.seq.report,
			OccurrenceID: occurrenceID,
			Status:       model.ReportEmpty,
		}
	}
	return len(missing), nil
}

func (r *repo) GetReport(_ context.Context, id int64) (*model.Report, error) {
	rep, ok := r.st.reports[id]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

func (r *repo) GetReportByOccurrence(_ context.Context, occurrenceID int64) (*model.Report, error) {
	for _, rep := range r.st.reports {
		if rep.OccurrenceID == occurrenceID {
			return &rep, nil
		}
	}
	return nil, nil
}

func (r *repo) MoveReport(_ context.Context, reportID, occurrenceID int64) error {
	rep, ok := r.st.reports[reportID]
	if !ok {
		return fmt.Errorf("move report %d: no rows", reportID)
	}
	for _, other := range r.st.reports {
		if other.OccurrenceID == occurrenceID && other.ID != reportID {
			return fmt.Errorf("move report %d: occurrence %d already has report %d", reportID, occurrenceID, other.ID)
		}
	}
	rep.OccurrenceID = occurrenceID
	r.st.reports[reportID] = rep
	return nil
}

func (r *repo) UpdateReport(_ context.Context, report *model.Report) error {
	rep, ok := r.st.reports[report.ID]
	if !ok {
		return fmt.Errorf("update report %d: no rows", report.ID)
	}
	rep.Status = report.Status
	rep.SafeguardingConcern = report.SafeguardingConcern
	r.st.reports[report.ID] = rep
	return nil
}

func (r *repo) ListAnswers(_ context.Context, reportID int64) ([]model.ReportAnswer, error) {
	var out []model.ReportAnswer
	for key, a := range r.st.answers {
		if key.reportID == reportID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.ReportAnswer) int { return cmp.Compare(a.QuestionID, b.QuestionID) })
	return out, nil
}

func (r *repo) SaveAnswer(_ context.Context, answer model.ReportAnswer) error {
	if _, ok := r.st.reports[answer.ReportID]; !ok {
		return fmt.Errorf("save answer: report %d does not exist", answer.ReportID)
	}
	r.st.answers[answerKey{answer.ReportID, answer.QuestionID}] = answer
	return nil
}

func (r *repo) DeleteAnswer(_ context.Context, reportID, questionID int64) error {
	delete(r.st.answers, answerKey{reportID, questionID})
	return nil
}

func (r *repo) ListQuestions(_ context.Context) ([]model.ReportQuestion, error) {
	out := append([]model.ReportQuestion(nil), r.st.questions...)
	slices.SortFunc(out, func(a, b model.ReportQuestion) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}
