package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
)

// SeriesEditorSuite десять еженедельных занятий с 1 января по 4 марта 2024
type SeriesEditorSuite struct {
	suite.Suite
	f      *fixture
	lesson *model.Lesson
	occs   []*model.Occurrence
}

func TestSeriesEditorSuite(t *testing.T) {
	suite.Run(t, new(SeriesEditorSuite))
}

func (s *SeriesEditorSuite) SetupTest() {
	s.f = newFixture(s.T(), date(2024, 1, 1, 8, 0))
	s.lesson = s.f.lesson(date(2024, 1, 1, 10, 0), time.Hour, "FREQ=WEEKLY;INTERVAL=1;UNTIL=20240304T100000Z")
	s.occs = s.f.occurrences(s.lesson.ID)
	s.Require().Len(s.occs, 10)
}

func (s *SeriesEditorSuite) edit(occ *model.Occurrence, scope EditScope, p model.LessonPatch) (*EditResult, error) {
	return s.f.svc.Lessons.EditLesson(ctx, EditLessonInput{
		LessonID:     s.lesson.ID,
		OccurrenceID: occ.ID,
		Scope:        scope,
		Patch:        p,
	})
}

func (s *SeriesEditorSuite) TestForkOnFrequencyChange() {
	fifth := s.occs[4]
	before := s.f.reportOf(fifth.ID)

	answer := "Fractions"
	s.Require().NoError(s.f.svc.Reports.UpdateReports(ctx, model.ReportUpdate{
		ReportIDs: []int64{before.ID},
		Answers:   []model.AnswerInput{{QuestionID: 1, Value: &answer}},
	}))

	res, err := s.edit(fifth, ScopeModify, model.LessonPatch{
		Rule: recurrence.MustParse("FREQ=WEEKLY;INTERVAL=2;UNTIL=20240304T100000Z"),
	})
	s.Require().NoError(err)
	s.True(res.Forked)
	s.NotEqual(s.lesson.ID, res.LessonID)

	original := s.f.getLesson(s.lesson.ID)
	s.Equal(starts(s.occs[:4]), starts(s.f.occurrences(s.lesson.ID)))
	s.Equal(date(2024, 1, 22, 0, 0), *original.ExtendedUntil)
	s.Equal(date(2024, 1, 22, 10, 0), *original.Rule.Until)

	forked := s.f.occurrences(res.LessonID)
	s.Equal([]time.Time{
		date(2024, 1, 29, 10, 0),
		date(2024, 2, 12, 10, 0),
		date(2024, 2, 26, 10, 0),
	}, starts(forked))
	s.Equal(res.OccurrenceID, forked[0].ID)

	detail, err := s.f.svc.Reports.LessonReport(ctx, res.OccurrenceID)
	s.Require().NoError(err)
	s.Equal(before.ID, detail.Report.ID)
	s.Equal(model.ReportIncomplete, detail.Report.Status)
	s.Require().NotEmpty(detail.Answers)
	s.Equal("Fractions", detail.Answers[0].Value)

	_, err = s.f.svc.Reports.LessonReport(ctx, fifth.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *SeriesEditorSuite) TestForkOnTutorChange() {
	res, err := s.edit(s.occs[2], ScopeModify, model.LessonPatch{TutorID: ptr(int64(2))})
	s.Require().NoError(err)
	s.True(res.Forked)

	forked := s.f.getLesson(res.LessonID)
	s.Equal(int64(2), forked.TutorID)
	s.Len(s.f.occurrences(res.LessonID), 8)
	s.Len(s.f.occurrences(s.lesson.ID), 2)

	for _, o := range s.f.occurrences(res.LessonID) {
		inv := s.f.invoice(*o.InvoiceID)
		s.Equal(int64(2), inv.TutorID)
		s.Equal(WeekOf(o.StartTime), inv.Week)
	}
}

func (s *SeriesEditorSuite) TestStructuralEditAtHeadReanchors() {
	first := s.occs[0]
	report := s.f.reportOf(first.ID)

	res, err := s.edit(first, ScopeModify, model.LessonPatch{StudentID: ptr(int64(2))})
	s.Require().NoError(err)
	s.False(res.Forked)
	s.Equal(s.lesson.ID, res.LessonID)
	s.Equal(first.ID, res.OccurrenceID)

	s.Equal(int64(2), s.f.getLesson(s.lesson.ID).StudentID)
	occs := s.f.occurrences(s.lesson.ID)
	s.Len(occs, 10)
	s.Equal(first.ID, occs[0].ID)
	s.Equal(report.ID, s.f.reportOf(first.ID).ID)
}

func (s *SeriesEditorSuite) TestDateMoveForks() {
	res, err := s.edit(s.occs[4], ScopeModify, model.LessonPatch{StartTime: ptr(date(2024, 1, 31, 10, 0))})
	s.Require().NoError(err)
	s.True(res.Forked)
	s.Equal(date(2024, 1, 31, 10, 0), s.f.occurrences(res.LessonID)[0].StartTime)
}

func (s *SeriesEditorSuite) TestTimeOfDayShift() {
	res, err := s.edit(s.occs[2], ScopeModify, model.LessonPatch{
		StartTime: ptr(date(2024, 1, 15, 11, 0)),
		EndTime:   ptr(date(2024, 1, 15, 12, 30)),
	})
	s.Require().NoError(err)
	s.False(res.Forked)

	occs := s.f.occurrences(s.lesson.ID)
	s.Require().Len(occs, 10)
	s.Equal(10, occs[1].StartTime.Hour())
	for _, o := range occs[2:] {
		s.Equal(11, o.StartTime.Hour())
		s.Equal(90*time.Minute, o.EndTime.Sub(o.StartTime))
	}
	s.Equal(date(2024, 1, 1, 11, 0), s.f.getLesson(s.lesson.ID).StartTime)
}

func (s *SeriesEditorSuite) TestShrinkUntil() {
	res, err := s.edit(s.occs[1], ScopeModify, model.LessonPatch{
		Rule: recurrence.MustParse("FREQ=WEEKLY;UNTIL=20240115T100000Z"),
	})
	s.Require().NoError(err)
	s.True(res.Truncated)
	s.Len(s.f.occurrences(s.lesson.ID), 3)
	s.Equal(date(2024, 1, 15, 0, 0), *s.f.getLesson(s.lesson.ID).ExtendedUntil)
}

func (s *SeriesEditorSuite) TestExtendUntil() {
	_, err := s.edit(s.occs[0], ScopeModify, model.LessonPatch{
		Rule: recurrence.MustParse("FREQ=WEEKLY;UNTIL=20240318T100000Z"),
	})
	s.Require().NoError(err)

	occs := s.f.occurrences(s.lesson.ID)
	s.Len(occs, 12)
	s.Equal(date(2024, 3, 18, 10, 0), occs[11].StartTime)
}

func (s *SeriesEditorSuite) TestRemoveRuleEndsSeries() {
	_, err := s.edit(s.occs[5], ScopeModify, model.LessonPatch{RemoveRule: true})
	s.Require().NoError(err)
	s.Len(s.f.occurrences(s.lesson.ID), 6)
}

func (s *SeriesEditorSuite) TestDeleteTruncates() {
	res, err := s.edit(s.occs[4], ScopeDelete, model.LessonPatch{})
	s.Require().NoError(err)
	s.True(res.Truncated)
	s.Equal(starts(s.occs[:4]), starts(s.f.occurrences(s.lesson.ID)))
	s.Equal(date(2024, 1, 22, 0, 0), *s.f.getLesson(s.lesson.ID).ExtendedUntil)
}

func (s *SeriesEditorSuite) TestDeleteAtHeadRemovesLesson() {
	res, err := s.edit(s.occs[0], ScopeDelete, model.LessonPatch{})
	s.Require().NoError(err)
	s.True(res.Deleted)
	s.Nil(s.f.getLesson(s.lesson.ID))
	s.Empty(s.f.occurrences(s.lesson.ID))
}

func (s *SeriesEditorSuite) TestOccurrenceOfAnotherLesson() {
	other := s.f.lesson(date(2024, 1, 2, 10, 0), time.Hour, "")
	foreign := s.f.occurrences(other.ID)[0]

	_, err := s.edit(foreign, ScopeModify, model.LessonPatch{Title: ptr("x")})
	s.ErrorIs(err, ErrConsistency)
}

func (s *SeriesEditorSuite) TestInvalidPatch() {
	_, err := s.edit(s.occs[0], ScopeModify, model.LessonPatch{
		Rule:       recurrence.MustParse("FREQ=WEEKLY"),
		RemoveRule: true,
	})
	s.ErrorIs(err, ErrValidation)

	_, err = s.edit(s.occs[0], ScopeModify, model.LessonPatch{EndTime: ptr(date(2024, 1, 1, 9, 0))})
	s.ErrorIs(err, ErrValidation)

	_, err = s.edit(s.occs[0], ScopeModify, model.LessonPatch{TutorID: ptr(int64(42))})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.f.svc.Lessons.EditLesson(ctx, EditLessonInput{LessonID: s.lesson.ID, OccurrenceID: s.occs[0].ID, Scope: "MOVE"})
	s.ErrorIs(err, ErrValidation)
}

func (s *SeriesEditorSuite) TestSubmittedInvoiceReopensOnEdit() {
	s.f.now = date(2024, 1, 10, 12, 0)
	first := s.occs[0]
	s.f.submit(s.f.reportOf(first.ID).ID)

	_, err := s.f.svc.Invoices.UpdateInvoices(ctx, model.InvoicePatch{IDs: []int64{*first.InvoiceID}, Status: model.InvoiceSubmitted})
	s.Require().NoError(err)

	_, err = s.edit(s.occs[0], ScopeModify, model.LessonPatch{
		StartTime: ptr(date(2024, 1, 1, 9, 0)),
		EndTime:   ptr(date(2024, 1, 1, 10, 0)),
	})
	s.Require().NoError(err)
	s.Equal(model.InvoiceIncomplete, s.f.invoice(*first.InvoiceID).Status)
}

func (s *SeriesEditorSuite) TestSingleLessonGainsRule() {
	single := s.f.lesson(date(2024, 1, 2, 15, 0), time.Hour, "")
	occ := s.f.occurrences(single.ID)[0]

	_, err := s.f.svc.Lessons.EditLesson(ctx, EditLessonInput{
		LessonID:     single.ID,
		OccurrenceID: occ.ID,
		Scope:        ScopeModify,
		Patch:        model.LessonPatch{Rule: recurrence.MustParse("FREQ=WEEKLY;UNTIL=20240123T150000Z")},
	})
	s.Require().NoError(err)

	occs := s.f.occurrences(single.ID)
	s.Len(occs, 4)
	s.Equal(occ.ID, occs[0].ID)
}

func (s *SeriesEditorSuite) TestDeleteSingleCancels() {
	single := s.f.lesson(date(2024, 1, 2, 15, 0), time.Hour, "")
	occ := s.f.occurrences(single.ID)[0]

	res, err := s.f.svc.Lessons.EditLesson(ctx, EditLessonInput{LessonID: single.ID, OccurrenceID: occ.ID, Scope: ScopeDelete})
	s.Require().NoError(err)
	s.True(res.Cancelled)

	list, err := s.f.svc.Lessons.ListOccurrences(ctx, OccurrenceQuery{StudentID: ptr(int64(1)), From: ptr(date(2024, 1, 2, 0, 0)), To: ptr(date(2024, 1, 3, 0, 0))})
	s.Require().NoError(err)
	s.Empty(list.Occurrences)
}
