package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orlandoalexander/educatch/internal/model"
)

func TestUpdateInvoicesTransitions(t *testing.T) {
	f := newFixture(t, date(2024, 1, 10, 12, 0))
	l := f.lesson(date(2024, 1, 2, 10, 0), time.Hour, "")
	occ := f.occurrences(l.ID)[0]
	id := *occ.InvoiceID

	update := func(status model.InvoiceStatus) error {
		_, err := f.svc.Invoices.UpdateInvoices(ctx, model.InvoicePatch{IDs: []int64{id}, Status: status})
		return err
	}

	assert.Equal(t, model.InvoiceIncomplete, f.invoice(id).Status)
	assert.ErrorIs(t, update(model.InvoiceSubmitted), ErrValidation)
	assert.ErrorIs(t, update(model.InvoiceIncomplete), ErrValidation)

	f.submit(f.reportOf(occ.ID).ID)
	assert.Equal(t, model.InvoiceReady, f.invoice(id).Status)
	assert.ErrorIs(t, update(model.InvoicePaid), ErrValidation)

	require.NoError(t, update(model.InvoiceSubmitted))
	require.NoError(t, update(model.InvoicePaid))
	assert.Equal(t, model.InvoicePaid, f.invoice(id).Status)

	require.NoError(t, update(model.InvoiceReady))
	assert.Equal(t, model.InvoiceReady, f.invoice(id).Status)

	_, err := f.svc.Invoices.UpdateInvoices(ctx, model.InvoicePatch{IDs: []int64{404}, Status: model.InvoicePaid})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Invoices.UpdateInvoices(ctx, model.InvoicePatch{Status: model.InvoicePaid})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListInvoicesByWeek(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1, 8, 0))
	f.lesson(date(2024, 1, 1, 10, 0), time.Hour, "FREQ=WEEKLY;UNTIL=20240129T100000Z")

	all, err := f.svc.Invoices.ListInvoices(ctx, InvoiceQuery{TutorID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	some, err := f.svc.Invoices.ListInvoices(ctx, InvoiceQuery{
		TutorID:  ptr(int64(1)),
		FromWeek: ptr(date(2024, 1, 10, 0, 0)),
		ToWeek:   ptr(date(2024, 1, 17, 0, 0)),
	})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, date(2024, 1, 8, 0, 0), some[0].Week)
	assert.Equal(t, date(2024, 1, 15, 0, 0), some[1].Week)
	for _, inv := range some {
		assert.Equal(t, model.InvoiceUpcoming, inv.Status)
	}
}

func TestInvoiceLessons(t *testing.T) {
	f := newFixture(t, date(2024, 1, 10, 12, 0))
	first := f.lesson(date(2024, 1, 2, 10, 0), time.Hour, "")
	_, err := f.svc.Lessons.CreateLesson(ctx, CreateLessonInput{
		Title:      "English",
		StartTime:  date(2024, 1, 3, 10, 0),
		EndTime:    date(2024, 1, 3, 11, 30),
		TutorID:    1,
		StudentID:  2,
		SubjectID:  1,
		LocationID: 1,
	})
	require.NoError(t, err)

	occ := f.occurrences(first.ID)[0]
	f.submit(f.reportOf(occ.ID).ID)

	sum, err := f.svc.Invoices.InvoiceLessons(ctx, *occ.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "Alex", sum.Tutor)
	require.Len(t, sum.Lines, 2)

	assert.Equal(t, "Sam", sum.Lines[0].Student)
	assert.True(t, decimal.NewFromInt(1).Equal(sum.Lines[0].Hours))
	assert.True(t, decimal.NewFromInt(30).Equal(sum.Lines[0].Amount))
	assert.Equal(t, model.ReportSubmitted, sum.Lines[0].ReportStatus)

	assert.Equal(t, "Jordan", sum.Lines[1].Student)
	assert.True(t, decimal.RequireFromString("1.5").Equal(sum.Lines[1].Hours))
	assert.True(t, decimal.NewFromInt(45).Equal(sum.Lines[1].Amount))
	assert.Equal(t, model.ReportEmpty, sum.Lines[1].ReportStatus)

	assert.True(t, decimal.RequireFromString("2.5").Equal(sum.Hours))
	assert.True(t, decimal.NewFromInt(75).Equal(sum.Amount))

	_, err = f.svc.Invoices.InvoiceLessons(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceHoursPreferActualTimes(t *testing.T) {
	eff := model.Effective{
		StartTime:   date(2024, 1, 2, 10, 0),
		EndTime:     date(2024, 1, 2, 11, 0),
		ActualStart: ptr(date(2024, 1, 2, 10, 0)),
		ActualEnd:   ptr(date(2024, 1, 2, 10, 40)),
	}
	assert.True(t, decimal.RequireFromString("0.67").Equal(hours(eff)))
}

func TestAggregateStatus(t *testing.T) {
	assert.Equal(t, model.ReportEmpty, aggregateStatus(nil))
	assert.Equal(t, model.ReportSubmitted, aggregateStatus([]model.ReportStatus{model.ReportSubmitted, model.ReportSubmitted}))
	assert.Equal(t, model.ReportEmpty, aggregateStatus([]model.ReportStatus{model.ReportEmpty, model.ReportEmpty}))
	assert.Equal(t, model.ReportIncomplete, aggregateStatus([]model.ReportStatus{model.ReportSubmitted, model.ReportEmpty}))
}


func TestReadsSweepAfterWeekRollover(t *testing.T) {
	f := newFixture(t, date(2024, 1, 10, 8, 0))
	l := f.lesson(date(2024, 1, 11, 10, 0), time.Hour, "")
	occ := f.occurrences(l.ID)[0]
	require.Equal(t, model.InvoiceUpcoming, f.invoice(*occ.InvoiceID).Status)

	f.now = date(2024, 1, 16, 9, 0)
	sum, err := f.svc.Invoices.InvoiceLessons(ctx, *occ.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceIncomplete, sum.Invoice.Status)

	f.submit(f.reportOf(occ.ID).ID)
	f.tx(func(u *unit) {
		require.NoError(t, u.repo.UpdateInvoiceStatus(ctx, []int64{*occ.InvoiceID}, model.InvoiceIncomplete))
	})
	_, err = f.svc.Reports.ListReports(ctx, ReportQuery{TutorID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceReady, f.invoice(*occ.InvoiceID).Status)

	f.tx(func(u *unit) {
		require.NoError(t, u.repo.UpdateInvoiceStatus(ctx, []int64{*occ.InvoiceID}, model.InvoiceIncomplete))
	})
	_, err = f.svc.Reports.WeeklyReport(ctx, *occ.InvoiceID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceReady, f.invoice(*occ.InvoiceID).Status)
}
