package recurrence

import (
	"iter"
	"time"
)

// MaxWindowsPerPass ограничивает один проход экспандера
const MaxWindowsPerPass = 5000

// Window временное окно одного занятия
type Window struct {
	Start time.Time
	End   time.Time
}

// Day обрезает момент до календарной даты в UTC
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Expand лениво выдаёт окна серии, начиная с anchor.
// В выдачу попадают окна, дата начала которых строго после after (если задан)
// и не позже through. UNTIL правила дополнительно ограничивает through.
// Без правила или с неизвестной частотой выдаётся только anchor.
func Expand(anchor Window, rule *Rule, after *time.Time, through time.Time) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		bound := Day(through)
		if rule != nil && rule.Until != nil && Day(*rule.Until).Before(bound) {
			bound = Day(*rule.Until)
		}

		inRange := func(w Window) bool {
			d := Day(w.Start)
			if after != nil && !d.After(Day(*after)) {
				return false
			}
			return !d.After(bound)
		}

		if rule == nil || !rule.Known() {
			if inRange(anchor) {
				yield(anchor)
			}
			return
		}

		duration := anchor.End.Sub(anchor.Start)
		step := rule.Step()
		emitted := 0

		for k := skip(anchor.Start, rule.Frequency, step, after); ; k++ {
			start := shift(anchor.Start, rule.Frequency, k*step)
			if Day(start).After(bound) {
				return
			}
			w := Window{Start: start, End: start.Add(duration)}
			if !inRange(w) {
				continue
			}
			if !yield(w) {
				return
			}
			emitted++
			if emitted >= MaxWindowsPerPass {
				return
			}
		}
	}
}

// Collect собирает все окна прохода
func Collect(seq iter.Seq[Window]) []Window {
	var out []Window
	for w := range seq {
		out = append(out, w)
	}
	return out
}

// shift сдвигает anchor на n периодов; всегда считается от anchor, а не накопительно
func shift(anchor time.Time, freq Frequency, n int) time.Time {
	switch freq {
	case Daily:
		return anchor.AddDate(0, 0, n)
	case Weekly:
		return anchor.AddDate(0, 0, 7*n)
	case Monthly:
		return addMonths(anchor, n)
	}
	return anchor
}

// addMonths сохраняет день месяца, прижимая его к последнему дню
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// skip возвращает номер шага, с которого имеет смысл продолжать после after
func skip(anchor time.Time, freq Frequency, step int, after *time.Time) int {
	if after == nil {
		return 0
	}
	from, to := Day(anchor), Day(*after)
	if !to.After(from) {
		return 0
	}

	var periods int
	switch freq {
	case Daily:
		periods = int(to.Sub(from).Hours()/24) / step
	case Weekly:
		periods = int(to.Sub(from).Hours()/24) / (7 * step)
	case Monthly:
		months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
		periods = months / step
	}
	// шаг назад на случай сдвига часового пояса и прижатия к концу месяца
	if periods > 0 {
		periods--
	}
	return periods
}
