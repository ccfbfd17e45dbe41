package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/overlay"
)

// ReportService отчёты о занятиях
type ReportService struct {
	*engine
}

type ReportQuery struct {
	TutorID   *int64
	StudentID *int64
	InvoiceID *int64
}

// WeeklyGroup отчёты одного ученика за неделю одного счёта
type WeeklyGroup struct {
	InvoiceID     int64              `json:"invoice_id"`
	Week          time.Time          `json:"week"`
	StudentID     int64              `json:"student_id"`
	Status        model.ReportStatus `json:"status"`
	OccurrenceIDs []int64            `json:"occurrence_ids"`
}

type ReportList struct {
	Lessons []model.Effective `json:"lessons"`
	Weekly  []WeeklyGroup     `json:"weekly"`
}

// ListReports отчёты уже начавшихся занятий и их недельная группировка
func (s *ReportService) ListReports(ctx context.Context, q ReportQuery) (*ReportList, error) {
	now := s.now()
	out := &ReportList{}

	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.ledger.Sweep(ctx); err != nil {
			return err
		}
		rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{
			TutorID:   q.TutorID,
			StudentID: q.StudentID,
			InvoiceID: q.InvoiceID,
			To:        &now,
		})
		if err != nil {
			return fmt.Errorf("list occurrences: %w", err)
		}

		type key struct{ invoice, student int64 }
		groups := make(map[key]*WeeklyGroup)
		statuses := make(map[key][]model.ReportStatus)

		for _, eff := range overlay.Visible(rows) {
			if eff.ReportID == nil {
				continue
			}
			out.Lessons = append(out.Lessons, eff)
			if eff.InvoiceID == nil {
				continue
			}
			k := key{invoice: *eff.InvoiceID, student: eff.StudentID}
			g, ok := groups[k]
			if !ok {
				g = &WeeklyGroup{InvoiceID: k.invoice, Week: WeekOf(eff.StartTime), StudentID: k.student}
				groups[k] = g
			}
			g.OccurrenceIDs = append(g.OccurrenceIDs, eff.OccurrenceID)
			statuses[k] = append(statuses[k], eff.ReportStatus)
		}

		for k, g := range groups {
			g.Status = aggregateStatus(statuses[k])
			out.Weekly = append(out.Weekly, *g)
		}
		slices.SortFunc(out.Weekly, func(a, b WeeklyGroup) int {
			if c := a.Week.Compare(b.Week); c != 0 {
				return c
			}
			if c := cmp.Compare(a.InvoiceID, b.InvoiceID); c != 0 {
				return c
			}
			return cmp.Compare(a.StudentID, b.StudentID)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type AnswerView struct {
	Question model.ReportQuestion `json:"question"`
	Value    string               `json:"value"`
	Answered bool                 `json:"answered"`
}

type ReportDetail struct {
	Report     model.Report    `json:"report"`
	Occurrence model.Effective `json:"occurrence"`
	Answers    []AnswerView    `json:"answers"`
}

func (s *ReportService) GetReport(ctx context.Context, id int64) (*ReportDetail, error) {
	var out *ReportDetail
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		rep, err := u.repo.GetReport(ctx, id)
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		if rep == nil {
			return notFound("report", id)
		}
		out, err = s.detail(ctx, u, rep)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LessonReport отчёт конкретного занятия
func (s *ReportService) LessonReport(ctx context.Context, occurrenceID int64) (*ReportDetail, error) {
	var out *ReportDetail
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		rep, err := u.repo.GetReportByOccurrence(ctx, occurrenceID)
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		if rep == nil {
			return notFound("report for occurrence", occurrenceID)
		}
		out, err = s.detail(ctx, u, rep)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type WeeklyReport struct {
	InvoiceID int64              `json:"invoice_id"`
	StudentID int64              `json:"student_id"`
	Status    model.ReportStatus `json:"status"`
	Reports   []ReportDetail     `json:"reports"`
}

// WeeklyReport все отчёты ученика по занятиям одного счёта
func (s *ReportService) WeeklyReport(ctx context.Context, invoiceID, studentID int64) (*WeeklyReport, error) {
	out := &WeeklyReport{InvoiceID: invoiceID, StudentID: studentID}
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.ledger.Sweep(ctx); err != nil {
			return err
		}
		inv, err := u.repo.GetInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if inv == nil {
			return notFound("invoice", invoiceID)
		}

		rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{InvoiceID: &invoiceID, StudentID: &studentID})
		if err != nil {
			return fmt.Errorf("list occurrences: %w", err)
		}

		var statuses []model.ReportStatus
		for _, eff := range overlay.Visible(rows) {
			if eff.ReportID == nil {
				continue
			}
			rep, err := u.repo.GetReport(ctx, *eff.ReportID)
			if err != nil {
				return fmt.Errorf("get report: %w", err)
			}
			if rep == nil {
				continue
			}
			d, err := s.detail(ctx, u, rep)
			if err != nil {
				return err
			}
			out.Reports = append(out.Reports, *d)
			statuses = append(statuses, rep.Status)
		}
		out.Status = aggregateStatus(statuses)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReportService) detail(ctx context.Context, u *unit, rep *model.Report) (*ReportDetail, error) {
	rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{OccurrenceIDs: []int64{rep.OccurrenceID}, IncludeCancelled: true})
	if err != nil {
		return nil, fmt.Errorf("get occurrence row: %w", err)
	}
	if len(rows) == 0 {
		return nil, consistencyf("report %d points at missing occurrence %d", rep.ID, rep.OccurrenceID)
	}

	questions, err := u.repo.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := u.repo.ListAnswers(ctx, rep.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	values := make(map[int64]string, len(answers))
	for _, a := range answers {
		values[a.QuestionID] = a.Value
	}

	d := &ReportDetail{Report: *rep, Occurrence: overlay.Apply(rows[0])}
	for _, q := range questions {
		v, answered := values[q.ID]
		if q.Hidden && !answered {
			continue
		}
		d.Answers = append(d.Answers, AnswerView{Question: q, Value: v, Answered: answered})
	}
	return d, nil
}

const maxAnswerLength = 5000

// UpdateReports меняет статус отчётов; ответы принимаются только для одного отчёта.
// Ответ на вопрос о безопасности дублируется в флаг отчёта.
func (s *ReportService) UpdateReports(ctx context.Context, in model.ReportUpdate) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if len(in.Answers) > 0 && len(in.ReportIDs) != 1 {
		return validationf("answers can only be saved for a single report")
	}

	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		questions, err := u.repo.ListQuestions(ctx)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		byID := make(map[int64]model.ReportQuestion, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}

		for _, id := range in.ReportIDs {
			rep, err := u.repo.GetReport(ctx, id)
			if err != nil {
				return fmt.Errorf("get report: %w", err)
			}
			if rep == nil {
				return notFound("report", id)
			}

			for _, a := range in.Answers {
				q, ok := byID[a.QuestionID]
				if !ok {
					return notFound("question", a.QuestionID)
				}
				if a.Value == nil || strings.TrimSpace(*a.Value) == "" {
					if err := u.repo.DeleteAnswer(ctx, rep.ID, q.ID); err != nil {
						return fmt.Errorf("delete answer: %w", err)
					}
					if q.ID == s.cfg.SafeguardingQuestionID {
						rep.SafeguardingConcern = false
					}
					continue
				}

				value, err := normalizeAnswer(q, *a.Value)
				if err != nil {
					return err
				}
				if err := u.repo.SaveAnswer(ctx, model.ReportAnswer{ReportID: rep.ID, QuestionID: q.ID, Value: value}); err != nil {
					return fmt.Errorf("save answer: %w", err)
				}
				if q.ID == s.cfg.SafeguardingQuestionID {
					rep.SafeguardingConcern = value == "true"
				}
			}

			switch {
			case in.Status != nil:
				rep.Status = *in.Status
			case len(in.Answers) > 0 && rep.Status == model.ReportEmpty:
				rep.Status = model.ReportIncomplete
			}

			if err := u.repo.UpdateReport(ctx, rep); err != nil {
				return fmt.Errorf("update report: %w", err)
			}
			if rep.SafeguardingConcern {
				s.logger.Warn("Safeguarding concern raised", zap.Int64("report_id", rep.ID), zap.Int64("occurrence_id", rep.OccurrenceID))
			}
		}

		_, err = u.ledger.Sweep(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Reports updated", zap.Int64s("report_ids", in.ReportIDs), zap.Int("answers", len(in.Answers)))
	return nil
}

// normalizeAnswer проверяет ответ по типу вопроса и приводит к хранимому виду
func normalizeAnswer(q model.ReportQuestion, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch q.Type {
	case model.QuestionBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", validationf("question %d expects yes or no, got %q", q.ID, raw)
		}
		return strconv.FormatBool(b), nil
	case model.QuestionNumber:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return "", validationf("question %d expects a number, got %q", q.ID, raw)
		}
		return d.String(), nil
	case model.QuestionOption:
		if !slices.Contains(q.Options, raw) {
			return "", validationf("question %d has no option %q", q.ID, raw)
		}
		return raw, nil
	}
	if len(raw) > maxAnswerLength {
		return "", validationf("answer to question %d is too long", q.ID)
	}
	return raw, nil
}
