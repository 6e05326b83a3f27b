package appointment

import (
	"time"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseClock reads an HH:MM wall clock time.
func ParseClock(hm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return 0, httperr.ErrBusinessf("invalid_time", "%q is not HH:MM", hm)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ValidateWorkingDay checks that the day has a positive span and that a
// lunch break, when set, falls inside it.
func ValidateWorkingDay(wh models.WorkingHours) error {
	if wh.Weekday < 0 || wh.Weekday > 6 {
		return httperr.ErrBusinessf("invalid_weekday", "weekday must be 0 (Sunday) to 6")
	}
	if !wh.Active {
		return nil
	}

	start, err := ParseClock(wh.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(wh.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return httperr.ErrBusinessf("invalid_working_hours", "end_time must be after start_time")
	}

	if (wh.LunchStart == "") != (wh.LunchEnd == "") {
		return httperr.ErrBusinessf("invalid_working_hours", "lunch_start and lunch_end go together")
	}
	if wh.LunchStart != "" {
		ls, err := ParseClock(wh.LunchStart)
		if err != nil {
			return err
		}
		le, err := ParseClock(wh.LunchEnd)
		if err != nil {
			return err
		}
		if le <= ls || ls < start || le > end {
			return httperr.ErrBusinessf("invalid_working_hours", "lunch must fall inside the working day")
		}
	}
	return nil
}

// FreeSlots splits the working day that starts at midnight of day into
// Slot sized windows, dropping the lunch break and every window that
// overlaps a busy appointment. busy must be sorted ascending.
func FreeSlots(day time.Time, wh models.WorkingHours, busy []time.Time) []TimeSlot {
	slots := []TimeSlot{}
	if !wh.Active {
		return slots
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	at := func(hm string) time.Time {
		d, _ := ParseClock(hm)
		return midnight.Add(d)
	}

	dayStart, dayEnd := at(wh.StartTime), at(wh.EndTime)

	hasLunch := wh.LunchStart != "" && wh.LunchEnd != ""
	var lunchStart, lunchEnd time.Time
	if hasLunch {
		lunchStart, lunchEnd = at(wh.LunchStart), at(wh.LunchEnd)
	}

	idx := 0
	for cur := dayStart; !cur.Add(Slot).After(dayEnd); cur = cur.Add(Slot) {
		slotStart, slotEnd := cur, cur.Add(Slot)

		if hasLunch && slotStart.Before(lunchEnd) && slotEnd.After(lunchStart) {
			continue
		}

		// skip appointments that ended before this window
		for idx < len(busy) && !busy[idx].Add(Slot).After(slotStart) {
			idx++
		}

		if idx < len(busy) && busy[idx].Before(slotEnd) {
			continue
		}

		slots = append(slots, TimeSlot{
			Start: slotStart.Format("15:04"),
			End:   slotEnd.Format("15:04"),
		})
	}
	return slots
}
