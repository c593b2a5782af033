package reminder

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memAppointmentStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]models.Appointment
}

func newMemAppointmentStore(appointments ...models.Appointment) *memAppointmentStore {
	s := &memAppointmentStore{appointments: make(map[uuid.UUID]models.Appointment)}
	for _, a := range appointments {
		s.appointments[a.ID] = a
	}
	return s
}

func (s *memAppointmentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

// memReminderStore mimics the repository's guarded UPDATEs with a mutex, so
// Claim behaves like the database's compare-and-set under concurrency.
type memReminderStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.AppointmentReminder
}

func newMemReminderStore() *memReminderStore {
	return &memReminderStore{items: make(map[uuid.UUID]*models.AppointmentReminder)}
}

func (s *memReminderStore) Create(ctx context.Context, reminder *models.AppointmentReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	reminder.UpdatedAt = time.Now()
	cp := *reminder
	s.items[reminder.ID] = &cp
	return nil
}

func (s *memReminderStore) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]models.AppointmentReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AppointmentReminder
	for _, r := range s.items {
		if r.AppointmentID == appointmentID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (s *memReminderStore) FindDue(ctx context.Context, now time.Time, limit int) ([]models.AppointmentReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.AppointmentReminder
	for _, r := range s.items {
		if r.Status == models.ReminderStatusPending && !r.FireAt.After(now) {
			due = append(due, *r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memReminderStore) Claim(ctx context.Context, reminderID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[reminderID]
	if !ok || r.Status != models.ReminderStatusPending {
		return false, nil
	}
	r.Status = models.ReminderStatusProcessing
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *memReminderStore) MarkSent(ctx context.Context, reminderID uuid.UUID) error {
	return s.finish(reminderID, models.ReminderStatusSent)
}

func (s *memReminderStore) MarkFailed(ctx context.Context, reminderID uuid.UUID) error {
	return s.finish(reminderID, models.ReminderStatusFailed)
}

func (s *memReminderStore) finish(reminderID uuid.UUID, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[reminderID]
	if !ok || r.Status != models.ReminderStatusProcessing {
		return gorm.ErrRecordNotFound
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return nil
}

func (s *memReminderStore) ReleaseStaleProcessing(ctx context.Context, threshold time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-threshold)
	var n int64
	for _, r := range s.items {
		if r.Status == models.ReminderStatusProcessing && r.UpdatedAt.Before(cutoff) {
			r.Status = models.ReminderStatusPending
			r.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (s *memReminderStore) setStatus(reminderID uuid.UUID, status string, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[reminderID].Status = status
	s.items[reminderID].UpdatedAt = updatedAt
}

func (s *memReminderStore) CancelPendingByAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.items {
		if r.AppointmentID == appointmentID && r.Status == models.ReminderStatusPending {
			r.Status = models.ReminderStatusCancelled
			n++
		}
	}
	return n, nil
}

func (s *memReminderStore) get(reminderID uuid.UUID) models.AppointmentReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.items[reminderID]
}

func (s *memReminderStore) byStatus(status string) []models.AppointmentReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AppointmentReminder
	for _, r := range s.items {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out
}

func newTestScheduler(base time.Time, appointments ...models.Appointment) (*Scheduler, *memReminderStore) {
	store := newMemReminderStore()
	s := NewScheduler(newMemAppointmentStore(appointments...), store)
	s.now = func() time.Time { return base }
	return s, store
}

func scheduledAppointment(at time.Time) models.Appointment {
	return models.Appointment{
		ID:           uuid.New(),
		ContactName:  "Dana Reyes",
		ContactEmail: "dana@example.com",
		ContactPhone: "+15550100",
		ScheduledAt:  at,
		Status:       models.AppointmentStatusScheduled,
	}
}

func TestSchedulerSchedule_FireAtOffsets(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(base.Add(48 * time.Hour))
	s, _ := newTestScheduler(base, appt)

	tmpl := uuid.New()
	results, err := s.Schedule(context.Background(), appt.ID, []Config{
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming24h, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelSMS, Timing: models.ReminderTiming1h, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming15m, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelSMS, Timing: models.ReminderTimingCustom, CustomMinutes: 90, TemplateID: tmpl},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	want := []time.Time{
		appt.ScheduledAt.Add(-24 * time.Hour),
		appt.ScheduledAt.Add(-time.Hour),
		appt.ScheduledAt.Add(-15 * time.Minute),
		appt.ScheduledAt.Add(-90 * time.Minute),
	}
	for i, res := range results {
		require.NoError(t, res.Err, "config %d", i)
		require.NotNil(t, res.Reminder)
		assert.True(t, want[i].Equal(res.Reminder.FireAt), "config %d fire_at", i)
		assert.Equal(t, models.ReminderStatusPending, res.Reminder.Status)
	}
}

func TestSchedulerSchedule_InvalidEntriesArePartial(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(base.Add(2 * time.Hour))
	s, store := newTestScheduler(base, appt)

	tmpl := uuid.New()
	results, err := s.Schedule(context.Background(), appt.ID, []Config{
		{Enabled: true, Channel: "carrier_pigeon", Timing: models.ReminderTiming1h, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelSMS, Timing: models.ReminderTimingCustom, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming24h, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming1h, TemplateID: tmpl},
		{Enabled: false, Channel: models.ChannelEmail, Timing: models.ReminderTiming1h, TemplateID: tmpl},
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	var invalid *InvalidReminderConfigError
	require.ErrorAs(t, results[0].Err, &invalid)
	assert.Equal(t, 0, invalid.Index)

	require.ErrorAs(t, results[1].Err, &invalid)
	assert.Contains(t, invalid.Reason, "custom_minutes")

	// 24h before a 2h-away appointment is already in the past.
	var stale *StaleScheduleError
	require.ErrorAs(t, results[2].Err, &stale)
	assert.True(t, stale.FireAt.Before(base))

	require.NoError(t, results[3].Err)
	require.NotNil(t, results[3].Reminder)

	assert.True(t, results[4].Skipped)
	assert.Nil(t, results[4].Reminder)

	// Exactly one reminder was persisted.
	assert.Len(t, store.byStatus(models.ReminderStatusPending), 1)
}

func TestSchedulerSchedule_RescheduleSupersedes(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(base.Add(48 * time.Hour))
	s, store := newTestScheduler(base, appt)

	tmpl := uuid.New()
	first, err := s.Schedule(context.Background(), appt.ID, []Config{
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming24h, TemplateID: tmpl},
	})
	require.NoError(t, err)
	require.NoError(t, first[0].Err)

	second, err := s.Schedule(context.Background(), appt.ID, []Config{
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming1h, TemplateID: tmpl},
	})
	require.NoError(t, err)
	require.NoError(t, second[0].Err)

	// The first reminder was cancelled, only the new one is pending.
	assert.Equal(t, models.ReminderStatusCancelled, store.get(first[0].Reminder.ID).Status)
	pending := store.byStatus(models.ReminderStatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, second[0].Reminder.ID, pending[0].ID)
}

func TestSchedulerSchedule_CancelledAppointmentRejected(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(base.Add(48 * time.Hour))
	appt.Status = models.AppointmentStatusCancelled
	s, _ := newTestScheduler(base, appt)

	_, err := s.Schedule(context.Background(), appt.ID, []Config{
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming24h, TemplateID: uuid.New()},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestSchedulerCancelForAppointment(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(base.Add(48 * time.Hour))
	s, store := newTestScheduler(base, appt)

	tmpl := uuid.New()
	_, err := s.Schedule(context.Background(), appt.ID, []Config{
		{Enabled: true, Channel: models.ChannelEmail, Timing: models.ReminderTiming24h, TemplateID: tmpl},
		{Enabled: true, Channel: models.ChannelSMS, Timing: models.ReminderTiming1h, TemplateID: tmpl},
	})
	require.NoError(t, err)

	n, err := s.CancelForAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Empty(t, store.byStatus(models.ReminderStatusPending))
}

func TestOffset(t *testing.T) {
	tests := []struct {
		name          string
		timing        string
		customMinutes int
		want          time.Duration
		wantErr       bool
	}{
		{name: "24h", timing: models.ReminderTiming24h, want: 24 * time.Hour},
		{name: "1h", timing: models.ReminderTiming1h, want: time.Hour},
		{name: "15m", timing: models.ReminderTiming15m, want: 15 * time.Minute},
		{name: "custom", timing: models.ReminderTimingCustom, customMinutes: 45, want: 45 * time.Minute},
		{name: "custom without minutes", timing: models.ReminderTimingCustom, wantErr: true},
		{name: "custom negative", timing: models.ReminderTimingCustom, customMinutes: -5, wantErr: true},
		{name: "unknown", timing: "3d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Offset(tt.timing, tt.customMinutes)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
