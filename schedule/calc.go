package schedule

import (
	"fmt"
	"time"

	"caseflow-export/store"
)

// Défauts quand l'ancre de cadence n'est pas renseignée.
const (
	defaultDayOfWeek  = 1 // lundi (convention time.Weekday, 0 = dimanche)
	defaultDayOfMonth = 1
)

// NextRun : prochain déclenchement STRICTEMENT postérieur à ref. Fonction
// pure ; l'arithmétique se fait dans le fuseau du schedule (timezone IANA,
// UTC si vide). Rollover de mois correct, mois courts inclus.
func NextRun(t store.ScheduleType, timeOfDay string, dayOfWeek, dayOfMonth *int, timezone string, ref time.Time) (time.Time, error) {
	hh, mm, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown timezone %q", timezone)
		}
		loc = l
	}
	ref = ref.In(loc)

	switch t {
	case store.ScheduleDaily:
		cand := time.Date(ref.Year(), ref.Month(), ref.Day(), hh, mm, 0, 0, loc)
		if !cand.After(ref) {
			cand = cand.AddDate(0, 0, 1)
		}
		return cand, nil

	case store.ScheduleWeekly:
		dow := defaultDayOfWeek
		if dayOfWeek != nil {
			dow = *dayOfWeek
		}
		if dow < 0 || dow > 6 {
			return time.Time{}, fmt.Errorf("day of week %d out of range [0,6]", dow)
		}
		offset := (dow - int(ref.Weekday()) + 7) % 7
		cand := time.Date(ref.Year(), ref.Month(), ref.Day(), hh, mm, 0, 0, loc).AddDate(0, 0, offset)
		if !cand.After(ref) {
			cand = cand.AddDate(0, 0, 7)
		}
		return cand, nil

	case store.ScheduleMonthly:
		dom := defaultDayOfMonth
		if dayOfMonth != nil {
			dom = *dayOfMonth
		}
		if dom < 1 || dom > 31 {
			return time.Time{}, fmt.Errorf("day of month %d out of range [1,31]", dom)
		}
		cand := monthlyAt(ref.Year(), ref.Month(), dom, hh, mm, loc)
		if !cand.After(ref) {
			// mois suivant, jour clampé à la longueur du mois
			first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
			cand = monthlyAt(first.Year(), first.Month(), dom, hh, mm, loc)
		}
		return cand, nil
	}
	return time.Time{}, fmt.Errorf("unknown schedule type %q", t)
}

func monthlyAt(year int, month time.Month, dom, hh, mm int, loc *time.Location) time.Time {
	if last := daysInMonth(year, month); dom > last {
		dom = last
	}
	return time.Date(year, month, dom, hh, mm, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseTimeOfDay(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q (expected HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidateTiming : contrôle synchrone de la cadence à la création/édition.
func ValidateTiming(t store.ScheduleType, timeOfDay string, dayOfWeek, dayOfMonth *int, timezone string) error {
	_, err := NextRun(t, timeOfDay, dayOfWeek, dayOfMonth, timezone, time.Now())
	return err
}
