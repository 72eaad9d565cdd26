package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/internal/repository"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	"github.com/noah-isme/attendance-tracker-api/pkg/events"
)

// memoryAttendanceStore keeps records, stats and streaks in maps and rolls
// every change back when the transaction callback fails.
type memoryAttendanceStore struct {
	records map[string]models.AttendanceRecord
	stats   map[models.AttendanceKey]models.SubjectAttendanceStats
	streaks map[string]models.AttendanceStreak

	failOn string
	txs    int
}

func newMemoryAttendanceStore() *memoryAttendanceStore {
	return &memoryAttendanceStore{
		records: map[string]models.AttendanceRecord{},
		stats:   map[models.AttendanceKey]models.SubjectAttendanceStats{},
		streaks: map[string]models.AttendanceStreak{},
	}
}

func recordKey(userID, classID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", userID, classID, calendar.DateOf(date))
}

func (m *memoryAttendanceStore) WithinTx(ctx context.Context, fn func(repository.AttendanceWriter) error) error {
	m.txs++
	records := make(map[string]models.AttendanceRecord, len(m.records))
	for k, v := range m.records {
		records[k] = v
	}
	stats := make(map[models.AttendanceKey]models.SubjectAttendanceStats, len(m.stats))
	for k, v := range m.stats {
		stats[k] = v
	}
	streaks := make(map[string]models.AttendanceStreak, len(m.streaks))
	for k, v := range m.streaks {
		streaks[k] = v
	}
	if err := fn(&memoryAttendanceTx{store: m}); err != nil {
		m.records, m.stats, m.streaks = records, stats, streaks
		return err
	}
	return nil
}

func (m *memoryAttendanceStore) GetRecord(ctx context.Context, userID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	rec, ok := m.records[recordKey(userID, classID, date)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryAttendanceStore) ListStats(ctx context.Context, userID, classroomID string) ([]models.SubjectAttendanceStats, error) {
	var out []models.SubjectAttendanceStats
	for key, st := range m.stats {
		if key.UserID == userID && (classroomID == "" || key.ClassroomID == classroomID) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out, nil
}

func (m *memoryAttendanceStore) CountPresentDays(ctx context.Context, userID string, from, to time.Time) (int, error) {
	days := map[calendar.Date]struct{}{}
	for _, rec := range m.records {
		if rec.UserID != userID || rec.Status != models.AttendanceStatusPresent {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		days[calendar.DateOf(rec.Date)] = struct{}{}
	}
	return len(days), nil
}

func (m *memoryAttendanceStore) fail(step string) error {
	if m.failOn == step {
		return errors.New("store failure at " + step)
	}
	return nil
}

type memoryAttendanceTx struct {
	store *memoryAttendanceStore
}

func (t *memoryAttendanceTx) GetRecord(ctx context.Context, userID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	return t.store.GetRecord(ctx, userID, classID, date)
}

func (t *memoryAttendanceTx) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if err := t.store.fail("record"); err != nil {
		return nil, err
	}
	key := recordKey(record.UserID, record.ClassID, record.Date)
	stored := *record
	if existing, ok := t.store.records[key]; ok {
		stored.ID = existing.ID
		stored.ClassroomID = existing.ClassroomID
		stored.MarkedAt = existing.MarkedAt
	} else if stored.ID == "" {
		stored.ID = fmt.Sprintf("rec-%d", len(t.store.records)+1)
	}
	t.store.records[key] = stored
	return &stored, nil
}

func (t *memoryAttendanceTx) InsertRecordIfAbsent(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if _, ok := t.store.records[recordKey(record.UserID, record.ClassID, record.Date)]; ok {
		return nil, nil
	}
	return t.UpsertRecord(ctx, record)
}

func (t *memoryAttendanceTx) ListPresentDates(ctx context.Context, userID string) ([]time.Time, error) {
	seen := map[calendar.Date]struct{}{}
	var out []time.Time
	for _, rec := range t.store.records {
		if rec.UserID != userID || rec.Status != models.AttendanceStatusPresent {
			continue
		}
		d := calendar.DateOf(rec.Date)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d.Time())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (t *memoryAttendanceTx) ListRecords(ctx context.Context, key models.AttendanceKey) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range t.store.records {
		if rec.Key() == key {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (t *memoryAttendanceTx) GetStats(ctx context.Context, key models.AttendanceKey) (*models.SubjectAttendanceStats, error) {
	st, ok := t.store.stats[key]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (t *memoryAttendanceTx) PutStats(ctx context.Context, stats *models.SubjectAttendanceStats) error {
	if err := t.store.fail("stats"); err != nil {
		return err
	}
	t.store.stats[stats.Key()] = *stats
	return nil
}

func (t *memoryAttendanceTx) GetStreakForUpdate(ctx context.Context, userID string) (*models.AttendanceStreak, error) {
	st, ok := t.store.streaks[userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (t *memoryAttendanceTx) PutStreak(ctx context.Context, streak *models.AttendanceStreak) error {
	if err := t.store.fail("streak"); err != nil {
		return err
	}
	t.store.streaks[streak.UserID] = *streak
	return nil
}

type fakeClassroomDirectory struct {
	classrooms []models.Classroom
	slots      map[string][]models.ClassSlot
	err        error
}

func (f *fakeClassroomDirectory) ListUserClassrooms(ctx context.Context, userID string) ([]models.Classroom, error) {
	return f.classrooms, f.err
}

func (f *fakeClassroomDirectory) ClassSchedule(ctx context.Context, classroomID string) ([]models.ClassSlot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.slots[classroomID], nil
}

type recordingPublisher struct {
	events []events.AttendanceMarked
	err    error
}

func (p *recordingPublisher) PublishAttendanceMarked(ctx context.Context, event events.AttendanceMarked) error {
	p.events = append(p.events, event)
	return p.err
}
