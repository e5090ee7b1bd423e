package schedule

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const icsFloatingLayout = "20060102T150405"

var rruleDays = [...]string{"", "MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// Calendar renders the doctor's active entries as an iCalendar document with
// one weekly recurring event per entry. Times are floating wall-clock times
// anchored on the current week.
func (s *Service) Calendar(ctx context.Context, doctorID uuid.UUID) (string, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return "", err
	}
	entries, err := s.allActive(ctx, doctorID)
	if err != nil {
		return "", err
	}
	return renderCalendar(doctorID, entries, s.now()), nil
}

func (s *Service) allActive(ctx context.Context, doctorID uuid.UUID) ([]*Entry, error) {
	const pageSize = 200
	f := ListFilter{ActiveOnly: true}
	var all []*Entry
	for offset := 0; ; offset += pageSize {
		items, total, err := s.store.ListByDoctor(ctx, doctorID, f, pageSize, offset)
		if err != nil {
			return nil, persistenceErr("list", err)
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

func renderCalendar(doctorID uuid.UUID, entries []*Entry, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//cmd//doctor-schedule//EN")
	cal.SetName(fmt.Sprintf("Doctor %s schedule", doctorID))

	monday := weekStart(now)
	for _, e := range entries {
		day := monday.AddDate(0, 0, int(e.Slot.Weekday)-1)
		start := day.Add(time.Duration(e.Slot.Start) * time.Second)
		end := day.Add(time.Duration(e.Slot.End) * time.Second)

		event := cal.AddEvent(e.ID.String() + "@doctor-schedule")
		event.SetDtStampTime(now)
		event.SetCreatedTime(e.CreatedAt)
		event.SetModifiedAt(e.ModifiedAt)
		event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsFloatingLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsFloatingLayout))
		event.SetProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;BYDAY="+rruleDays[e.Slot.Weekday])
		event.SetSummary(fmt.Sprintf("Clinic hours %s-%s", e.Slot.Start, e.Slot.End))
		event.SetLocation(e.ClinicID.String())
	}
	return cal.Serialize()
}

// weekStart returns midnight of the Monday on or before t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
