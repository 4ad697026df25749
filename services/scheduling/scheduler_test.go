package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remindly/models"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler("client-under-test", zap.NewNop())
	t.Cleanup(s.close)
	return s
}

func nextDue(t *testing.T, s *Scheduler, timeout time.Duration) (models.NotificationInfo, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.NextDueNotification(ctx)
}

func TestRegisterUniqueKindReplacesExisting(t *testing.T) {
	s := newTestScheduler(t)

	first := models.NewReminder(models.KindWater, time.Now().Add(time.Hour), true)
	second := models.NewReminder(models.KindWater, time.Now().Add(2*time.Hour), true)
	s.RegisterOrCancel(first)
	s.RegisterOrCancel(second)

	armed := s.ListArmed()
	require.Len(t, armed, 1)
	assert.Equal(t, second.TriggerTime, armed[0].TriggerTime)
}

func TestNonUniqueRemindersCoexist(t *testing.T) {
	s := newTestScheduler(t)

	morning, err := models.ParseReminder(models.KindMedication, "08:00", true)
	require.NoError(t, err)
	evening, err := models.ParseReminder(models.KindMedication, "20:00", true)
	require.NoError(t, err)
	s.RegisterOrCancel(morning)
	s.RegisterOrCancel(evening)
	assert.Len(t, s.ListArmed(), 2)

	// Canceling one leaves the other armed.
	cancelMorning := morning
	cancelMorning.Remind = false
	s.RegisterOrCancel(cancelMorning)

	armed := s.ListArmed()
	require.Len(t, armed, 1)
	assert.Equal(t, evening.Identity(), armed[0].Identity())
}

func TestCancelUnarmedReminderIsNoop(t *testing.T) {
	s := newTestScheduler(t)

	r := models.NewReminder(models.KindBloodPressure, time.Now().Add(time.Hour), false)
	s.RegisterOrCancel(r)
	assert.Empty(t, s.ListArmed())
}

func TestOneShotReminderConsumedOnFire(t *testing.T) {
	s := newTestScheduler(t)

	// Fires AppointmentLead before the stored instant, i.e. almost at once.
	appt := models.NewReminder(models.KindAppointment,
		time.Now().Add(models.AppointmentLead+30*time.Millisecond), true)
	s.RegisterOrCancel(appt)
	require.Len(t, s.ListArmed(), 1)

	info, err := nextDue(t, s, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.KindAppointment.NotificationText(), info.Message)
	assert.True(t, info.HighPriority)
	assert.Empty(t, s.ListArmed())
}

func TestRecurringReminderStaysArmedAfterFire(t *testing.T) {
	s := newTestScheduler(t)

	water := models.NewReminder(models.KindWater, time.Now().Add(30*time.Millisecond), true)
	s.RegisterOrCancel(water)

	info, err := nextDue(t, s, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.KindWater.NotificationText(), info.Message)
	assert.False(t, info.HighPriority)
	assert.Len(t, s.ListArmed(), 1)
}

func TestNextDueNotificationFIFOAcrossKinds(t *testing.T) {
	s := newTestScheduler(t)

	water := models.NewReminder(models.KindWater, time.Now().Add(30*time.Millisecond), true)
	bp := models.NewReminder(models.KindBloodPressure, time.Now().Add(150*time.Millisecond), true)
	s.RegisterOrCancel(water)
	s.RegisterOrCancel(bp)

	first, err := nextDue(t, s, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.KindWater.NotificationText(), first.Message)

	second, err := nextDue(t, s, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.KindBloodPressure.NotificationText(), second.Message)
}

func TestNextDueNotificationBlocksUntilDue(t *testing.T) {
	s := newTestScheduler(t)

	type result struct {
		info models.NotificationInfo
		err  error
	}
	got := make(chan result, 1)
	go func() {
		info, err := nextDue(t, s, 2*time.Second)
		got <- result{info, err}
	}()

	select {
	case <-got:
		t.Fatal("NextDueNotification returned with nothing due")
	case <-time.After(50 * time.Millisecond):
	}

	s.RegisterOrCancel(models.NewReminder(models.KindWater, time.Now(), true))

	select {
	case r := <-got:
		require.NoError(t, r.err)
		assert.Equal(t, models.KindWater.NotificationText(), r.info.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("NextDueNotification did not wake after fire")
	}
}

func TestNextDueNotificationHonorsContext(t *testing.T) {
	s := newTestScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.NextDueNotification(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDuplicateFireEnqueuedOnce(t *testing.T) {
	s := newTestScheduler(t)

	water := models.NewReminder(models.KindWater, time.Now().Add(time.Hour), true)
	s.RegisterOrCancel(water)

	id := water.Identity()
	s.mu.Lock()
	entry, ok := s.index.Get(id)
	s.mu.Unlock()
	require.True(t, ok)

	// Two fire events before the first notification is drained.
	s.onFire(id, entry)
	s.onFire(id, entry)

	_, err := nextDue(t, s, time.Second)
	require.NoError(t, err)
	_, err = nextDue(t, s, 100*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelStopsFutureFires(t *testing.T) {
	s := newTestScheduler(t)

	water := models.NewReminder(models.KindWater, time.Now().Add(80*time.Millisecond), true)
	s.RegisterOrCancel(water)

	canceled := water
	canceled.Remind = false
	s.RegisterOrCancel(canceled)
	assert.Empty(t, s.ListArmed())

	_, err := nextDue(t, s, 300*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
