package scheduler_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/scheduler"
)

func date(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tod(s string) domain.TimeOfDay { return domain.MustTimeOfDay(s) }

func TestAddSlot_RejectsDuplicateDate(t *testing.T) {
	today := date("2024-05-01")

	slots, err := scheduler.AddSlot(nil, today)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, domain.TimeSlot{Date: today}, slots[0])

	again, err := scheduler.AddSlot(slots, today)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleDuplicateDate))
	assert.Len(t, again, 1)
	assert.Len(t, slots, 1)
}

func TestRemoveSlot(t *testing.T) {
	slots := []domain.TimeSlot{
		{Date: date("2024-05-01")},
		{Date: date("2024-05-02"), Approved: true},
		{Date: date("2024-05-03")},
	}

	t.Run("preserva a ordem dos demais", func(t *testing.T) {
		out, err := scheduler.RemoveSlot(slots, 0, false)
		require.NoError(t, err)
		assert.Equal(t, []domain.Date{date("2024-05-02"), date("2024-05-03")},
			[]domain.Date{out[0].Date, out[1].Date})
		assert.Len(t, slots, 3)
	})

	t.Run("aprovado bloqueado para não admin", func(t *testing.T) {
		out, err := scheduler.RemoveSlot(slots, 1, false)
		assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked))
		assert.Equal(t, slots, out)
	})

	t.Run("admin remove aprovado", func(t *testing.T) {
		out, err := scheduler.RemoveSlot(slots, 1, true)
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("índice inválido", func(t *testing.T) {
		_, err := scheduler.RemoveSlot(slots, 7, true)
		assert.IsType(t, &apperror.ValidationError{}, err)
	})
}

func TestSetStartTime_ResetsEnd(t *testing.T) {
	slots := []domain.TimeSlot{{Date: date("2024-05-01"), StartTime: tod("09:00"), EndTime: tod("12:00")}}

	out, err := scheduler.SetStartTime(slots, 0, tod("10:00"), false)
	require.NoError(t, err)
	assert.Equal(t, "10:00", out[0].StartTime.String())
	assert.True(t, out[0].EndTime.IsZero())
	assert.Equal(t, "12:00", slots[0].EndTime.String())
}

func TestSetEndTime(t *testing.T) {
	slots := []domain.TimeSlot{{Date: date("2024-05-01"), StartTime: tod("09:00")}}

	for _, end := range []string{"08:30", "09:00"} {
		out, err := scheduler.SetEndTime(slots, 0, tod(end), false)
		assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleInvalidRange), end)
		assert.True(t, out[0].EndTime.IsZero())
	}

	out, err := scheduler.SetEndTime(slots, 0, tod("09:30"), false)
	require.NoError(t, err)
	assert.Equal(t, "09:30", out[0].EndTime.String())
}

func TestSetEndTime_WithoutStartIsInvalidRange(t *testing.T) {
	slots := []domain.TimeSlot{{Date: date("2024-05-01")}}

	out, err := scheduler.SetEndTime(slots, 0, tod("10:00"), false)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleInvalidRange))
	var se *apperror.ScheduleError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Index)
	assert.True(t, out[0].EndTime.IsZero())
}

func TestLockedSlotRejectsNonAdminMutations(t *testing.T) {
	slots := []domain.TimeSlot{{Date: date("2024-05-01"), StartTime: tod("09:00"), Approved: true}}

	_, err := scheduler.SetStartTime(slots, 0, tod("10:00"), false)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked))

	_, err = scheduler.SetEndTime(slots, 0, tod("11:00"), false)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked))

	out, err := scheduler.SetEndTime(slots, 0, tod("11:00"), true)
	require.NoError(t, err)
	assert.Equal(t, "11:00", out[0].EndTime.String())
}

func TestSetApproval_AdminOnly(t *testing.T) {
	slots := []domain.TimeSlot{{Date: date("2024-05-01"), Approved: true}}

	_, err := scheduler.SetApproval(slots, 0, false, false)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	out, err := scheduler.SetApproval(slots, 0, false, true)
	require.NoError(t, err)
	assert.False(t, out[0].Approved)
}

func TestComputeDuration(t *testing.T) {
	h, m, err := scheduler.ComputeDuration(tod("09:15"), tod("17:45"))
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 30, m)
	assert.Equal(t, "8h 30min", scheduler.FormatDuration(h, m))

	_, _, err = scheduler.ComputeDuration(tod("22:00"), tod("01:00"))
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleInvalidRange))
}

func TestAvailableEndTimes(t *testing.T) {
	times := slices.Collect(scheduler.AvailableEndTimes(tod("09:00")))

	require.NotEmpty(t, times)
	assert.Equal(t, "09:30", times[0].String())
	assert.Equal(t, "23:30", times[len(times)-1].String())
	for i, tm := range times {
		assert.True(t, tod("09:00").Before(tm))
		if i > 0 {
			assert.Equal(t, 30, tm.Minutes()-times[i-1].Minutes())
		}
	}

	again := slices.Collect(scheduler.AvailableEndTimes(tod("09:00")))
	assert.Equal(t, times, again)

	assert.Empty(t, slices.Collect(scheduler.AvailableEndTimes(tod("23:30"))))
	assert.Empty(t, slices.Collect(scheduler.AvailableEndTimes(domain.TimeOfDay{})))
}

func TestStartTimeOptions(t *testing.T) {
	opts := scheduler.StartTimeOptions()
	assert.Len(t, opts, 48)
	assert.Equal(t, "00:00", opts[0].String())
	assert.Equal(t, "23:30", opts[47].String())
}

func TestValidateSlots(t *testing.T) {
	err := scheduler.ValidateSlots(nil)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleMissingSlot))

	err = scheduler.ValidateSlots([]domain.TimeSlot{{Date: date("2024-05-01")}})
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleMissingStartTime))

	err = scheduler.ValidateSlots([]domain.TimeSlot{
		{Date: date("2024-05-01"), StartTime: tod("10:00"), EndTime: tod("09:00")},
		{Date: date("2024-05-02")},
	})
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleMissingStartTime), "início ausente vence")

	assert.NoError(t, scheduler.ValidateSlots([]domain.TimeSlot{
		{Date: date("2024-05-01"), StartTime: tod("09:00")},
		{Date: date("2024-05-02"), StartTime: tod("09:00"), EndTime: tod("10:00")},
	}))
}

func TestReconcile(t *testing.T) {
	approved := domain.TimeSlot{Date: date("2024-05-01"), StartTime: tod("09:00"), EndTime: tod("12:00"), Approved: true}
	open := domain.TimeSlot{Date: date("2024-05-02"), StartTime: tod("13:00")}
	prev := []domain.TimeSlot{approved, open}

	t.Run("não admin altera horário livre", func(t *testing.T) {
		changed := open
		changed.EndTime = tod("15:00")
		out, err := scheduler.Reconcile(prev, []domain.TimeSlot{approved, changed}, false)
		require.NoError(t, err)
		assert.Equal(t, "15:00", out[1].EndTime.String())
	})

	t.Run("não admin remove aprovado", func(t *testing.T) {
		_, err := scheduler.Reconcile(prev, []domain.TimeSlot{open}, false)
		assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked))
	})

	t.Run("não admin altera aprovado", func(t *testing.T) {
		moved := approved
		moved.StartTime = tod("08:00")
		_, err := scheduler.Reconcile(prev, []domain.TimeSlot{moved, open}, false)
		assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked))
	})

	t.Run("não admin aprova", func(t *testing.T) {
		selfApproved := open
		selfApproved.Approved = true
		_, err := scheduler.Reconcile(prev, []domain.TimeSlot{approved, selfApproved}, false)
		assert.IsType(t, &apperror.PermissionDeniedError{}, err)
	})

	t.Run("datas duplicadas", func(t *testing.T) {
		dup := open
		dup.Date = approved.Date
		_, err := scheduler.Reconcile(prev, []domain.TimeSlot{approved, dup}, true)
		assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleDuplicateDate))
	})

	t.Run("admin desaprova", func(t *testing.T) {
		unapproved := approved
		unapproved.Approved = false
		out, err := scheduler.Reconcile(prev, []domain.TimeSlot{unapproved, open}, true)
		require.NoError(t, err)
		assert.False(t, out[0].Approved)
	})
}
