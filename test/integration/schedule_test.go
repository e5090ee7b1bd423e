//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cmd/doctor/internal/domain/schedule"
)

var testClinic = uuid.MustParse("6f1c7f0e-7d1a-4a43-9d43-1f7b3c1b2a10")

func slotRequest(weekday, start, end string) *schedule.Request {
	return &schedule.Request{ClinicID: testClinic, Weekday: weekday, StartTime: start, EndTime: end}
}

func createDoctor(t *testing.T, svc services, email string) uuid.UUID {
	t.Helper()
	d, err := svc.doctors.Create(context.Background(), "admin-1", doctorRequest("Asha", "Rao", email))
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return d.ID
}

func TestScheduleCRUD(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	doctorID := createDoctor(t, svc, "sched@example.com")

	morning, err := svc.schedules.Create(ctx, "staff-1", doctorID, slotRequest("Monday", "09:00", "12:00"))
	if err != nil {
		t.Fatalf("create morning: %v", err)
	}

	t.Run("AdjacentSlotIsAdmitted", func(t *testing.T) {
		if _, err := svc.schedules.Create(ctx, "staff-1", doctorID, slotRequest("mon", "12:00", "14:00")); err != nil {
			t.Fatalf("expected touching slot to be admitted: %v", err)
		}
	})

	t.Run("OverlapIsRejected", func(t *testing.T) {
		_, err := svc.schedules.Create(ctx, "staff-1", doctorID, slotRequest("Monday", "11:30", "12:30"))
		var conflict *schedule.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if conflict.Existing == nil || conflict.Existing.ID != morning.ID {
			t.Errorf("expected conflict with %s, got %+v", morning.ID, conflict.Existing)
		}
	})

	t.Run("OtherWeekdayIsIndependent", func(t *testing.T) {
		if _, err := svc.schedules.Create(ctx, "staff-1", doctorID, slotRequest("Tuesday", "09:00", "12:00")); err != nil {
			t.Fatalf("create tuesday: %v", err)
		}
	})

	t.Run("EditExcludesItself", func(t *testing.T) {
		edited, err := svc.schedules.Edit(ctx, "staff-2", doctorID, morning.ID, slotRequest("Monday", "08:00", "11:00"))
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		got, err := svc.schedules.Get(ctx, doctorID, morning.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Slot != edited.Slot || got.ModifiedBy != "staff-2" || got.CreatedBy != "staff-1" {
			t.Errorf("edit not persisted: %+v", got)
		}
	})

	t.Run("InactiveEntriesDoNotBlock", func(t *testing.T) {
		inactive := false
		req := slotRequest("Monday", "09:00", "10:00")
		req.Active = &inactive
		e, err := svc.schedules.Create(ctx, "staff-1", doctorID, req)
		if err != nil {
			t.Fatalf("create inactive: %v", err)
		}

		_, err = svc.schedules.Edit(ctx, "staff-1", doctorID, e.ID, slotRequest("Monday", "09:00", "10:00"))
		if !errors.Is(err, schedule.ErrScheduleConflict) {
			t.Errorf("expected activating an overlapping entry to conflict, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		items, total, err := svc.schedules.List(ctx, doctorID, schedule.ListFilter{Weekday: schedule.Monday, ActiveOnly: true}, 10, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 2 || len(items) != 2 {
			t.Fatalf("expected 2 active monday entries, got %d (total %d)", len(items), total)
		}
		if items[0].Slot.Start >= items[1].Slot.Start {
			t.Errorf("expected entries ordered by start time")
		}
	})

	t.Run("Availability", func(t *testing.T) {
		a, err := svc.schedules.CheckAvailability(ctx, doctorID, "Monday", "10:30", "11:30", nil)
		if err != nil {
			t.Fatalf("availability: %v", err)
		}
		if a.Available || a.Conflict == nil || a.Conflict.ID != morning.ID {
			t.Errorf("expected conflict with morning entry, got %+v", a)
		}

		a, err = svc.schedules.CheckAvailability(ctx, doctorID, "Monday", "10:30", "11:30", &morning.ID)
		if err != nil {
			t.Fatalf("availability: %v", err)
		}
		if !a.Available {
			t.Errorf("expected slot to be free when excluding the morning entry, got %+v", a.Conflict)
		}
	})

	t.Run("UnknownDoctor", func(t *testing.T) {
		_, err := svc.schedules.Create(ctx, "staff-1", uuid.New(), slotRequest("Monday", "09:00", "10:00"))
		if !errors.Is(err, schedule.ErrDoctorNotFound) {
			t.Errorf("expected ErrDoctorNotFound, got %v", err)
		}
	})
}

// Concurrent writers for the same doctor and weekday must not both pass the
// overlap check.
func TestScheduleConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	doctorID := createDoctor(t, svc, "race@example.com")

	const writers = 12
	var wg sync.WaitGroup
	errs := make([]error, writers)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// all windows overlap 10:00-10:30
			begin := fmt.Sprintf("09:%02d", i*2)
			_, errs[i] = svc.schedules.Create(ctx, fmt.Sprintf("staff-%d", i), doctorID,
				slotRequest("Wednesday", begin, "10:30"))
		}(i)
	}
	close(start)
	wg.Wait()

	admitted := 0
	for i, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, schedule.ErrScheduleConflict):
		default:
			t.Errorf("writer %d: unexpected error %v", i, err)
		}
	}
	if admitted != 1 {
		t.Fatalf("expected exactly one admitted entry, got %d", admitted)
	}

	items, total, err := svc.schedules.List(ctx, doctorID, schedule.ListFilter{Weekday: schedule.Wednesday}, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected one stored entry, got %d", total)
	}
}

// Writes that skip the service's overlap check are still stopped by the
// table's exclusion constraint.
func TestScheduleStoreConstraint(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	doctorID := createDoctor(t, svc, "store@example.com")
	store := schedule.NewStorePG(globalPool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := func(start, end schedule.TimeOfDay, active bool) *schedule.Entry {
		return &schedule.Entry{
			ID:         uuid.New(),
			DoctorID:   doctorID,
			ClinicID:   testClinic,
			Slot:       schedule.TimeSlot{Weekday: schedule.Friday, Start: start, End: end},
			Active:     active,
			CreatedAt:  now,
			CreatedBy:  "test",
			ModifiedAt: now,
			ModifiedBy: "test",
		}
	}

	if err := store.Create(ctx, entry(schedule.NewTimeOfDay(9, 0, 0), schedule.NewTimeOfDay(11, 0, 0), true)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := store.Create(ctx, entry(schedule.NewTimeOfDay(10, 0, 0), schedule.NewTimeOfDay(12, 0, 0), true))
	if !errors.Is(err, schedule.ErrPersistenceConflict) {
		t.Errorf("expected ErrPersistenceConflict, got %v", err)
	}

	if err := store.Create(ctx, entry(schedule.NewTimeOfDay(11, 0, 0), schedule.NewTimeOfDay(12, 0, 0), true)); err != nil {
		t.Errorf("touching range should be accepted: %v", err)
	}
	if err := store.Create(ctx, entry(schedule.NewTimeOfDay(9, 30, 0), schedule.NewTimeOfDay(10, 30, 0), false)); err != nil {
		t.Errorf("inactive overlap should be accepted: %v", err)
	}
}
