package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/overlay"
)

func (r *repo) InsertOccurrences(_ context.Context, occurrences []*model.Occurrence) (int, error) {
	existing := make(map[int64]map[int64]struct{})
	for _, o := range r.st.occurrences {
		if existing[o.LessonID] == nil {
			existing[o.LessonID] = make(map[int64]struct{})
		}
		existing[o.LessonID][o.StartTime.UnixNano()] = struct{}{}
	}

	inserted := 0
	for _, o := range occurrences {
		byStart := existing[o.LessonID]
		if byStart == nil {
			byStart = make(map[int64]struct{})
			existing[o.LessonID] = byStart
		}
		if _, dup := byStart[o.StartTime.UnixNano()]; dup {
			continue
		}
		r.st.seq.occurrence++
		o.ID = r.st.seq.occurrence
		r.st.occurrences[o.ID] = cloneOccurrence(*o)
		byStart[o.StartTime.UnixNano()] = struct{}{}
		inserted++
	}
	return inserted, nil
}

func (r *repo) InsertOccurrence(_ context.Context, occurrence *model.Occurrence) error {
	for _, o := range r.st.occurrences {
		if o.LessonID == occurrence.LessonID && o.StartTime.Equal(occurrence.StartTime) {
			return fmt.Errorf("insert occurrence: lesson %d already has %s", o.LessonID, o.StartTime)
		}
	}
	r.st.seq.occurrence++
	occurrence.ID = r.st.seq.occurrence
	r.st.occurrences[occurrence.ID] = cloneOccurrence(*occurrence)
	return nil
}

func (r *repo) GetOccurrence(_ context.Context, id int64) (*model.Occurrence, error) {
	o, ok := r.st.occurrences[id]
	if !ok {
		return nil, nil
	}
	o = cloneOccurrence(o)
	return &o, nil
}

func (r *repo) ListLessonOccurrences(_ context.Context, lessonID int64) ([]*model.Occurrence, error) {
	var out []*model.Occurrence
	for _, o := range r.st.occurrences {
		if o.LessonID == lessonID {
			c := cloneOccurrence(o)
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Occurrence) int { return a.StartTime.Compare(b.StartTime) })
	return out, nil
}

func (r *repo) UpdateOccurrence(_ context.Context, occurrence *model.Occurrence) error {
	if _, ok := r.st.occurrences[occurrence.ID]; !ok {
		return fmt.Errorf("update occurrence %d: no rows", occurrence.ID)
	}
	r.st.occurrences[occurrence.ID] = cloneOccurrence(*occurrence)
	return nil
}

func (r *repo) DeleteOccurrences(_ context.Context, ids []int64) error {
	set := idSet(ids)
	for id := range set {
		delete(r.st.occurrences, id)
		delete(r.st.exceptions, id)
	}
	for id, rep := range r.st.reports {
		if _, ok := set[rep.OccurrenceID]; !ok {
			continue
		}
		delete(r.st.reports, id)
		for key := range r.st.answers {
			if key.reportID == id {
				delete(r.st.answers, key)
			}
		}
	}
	return nil
}

func (r *repo) ListOccurrenceRows(_ context.Context, filter model.RowFilter) ([]model.OccurrenceRow, error) {
	reports := r.reportsByOccurrence()

	type ranked struct {
		row model.OccurrenceRow
		eff model.Effective
	}
	var matched []ranked
	for _, o := range r.st.occurrences {
		row := r.row(o, reports)
		eff := overlay.Apply(row)
		if !overlay.Match(eff, filter) {
			continue
		}
		matched = append(matched, ranked{row: row, eff: eff})
	}

	slices.SortFunc(matched, func(a, b ranked) int {
		if c := a.eff.StartTime.Compare(b.eff.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.eff.OccurrenceID, b.eff.OccurrenceID)
	})

	out := make([]model.OccurrenceRow, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.row)
	}
	return out, nil
}

func (r *repo) row(o model.Occurrence, reports map[int64]model.Report) model.OccurrenceRow {
	row := model.OccurrenceRow{
		Lesson:     cloneLesson(r.st.lessons[o.LessonID]),
		Occurrence: cloneOccurrence(o),
	}
	if e, ok := r.st.exceptions[o.ID]; ok {
		e = cloneException(e)
		row.Exception = &e
	}
	if rep, ok := reports[o.ID]; ok {
		id := rep.ID
		row.ReportID = &id
		row.ReportStatus = rep.Status
	}
	return row
}

func (r *repo) reportsByOccurrence() map[int64]model.Report {
	out := make(map[int64]model.Report, len(r.st.reports))
	for _, rep := range r.st.reports {
		out[rep.OccurrenceID] = rep
	}
	return out
}

func (r *repo) GetException(_ context.Context, occurrenceID int64) (*model.Exception, error) {
	e, ok := r.st.exceptions[occurrenceID]
	if !ok {
		return nil, nil
	}
	e = cloneException(e)
	return &e, nil
}

func (r *repo) SaveException(_ context.Context, exception *model.Exception) error {
	if _, ok := r.st.occurrences[exception.OccurrenceID]; !ok {
		return fmt.Errorf("save exception: occurrence %d does not exist", exception.OccurrenceID)
	}
	if current, ok := r.st.exceptions[exception.OccurrenceID]; ok {
		exception.ID = current.ID
	} else {
		r.st.seq.exception++
		exception.ID = r.st.seq.exception
	}
	r.st.exceptions[exception.OccurrenceID] = cloneException(*exception)
	return nil
}
