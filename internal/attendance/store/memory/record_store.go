package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

type dayKey struct {
	userID string
	day    int64
}

func keyOf(userID string, day time.Time) dayKey {
	return dayKey{userID: userID, day: day.Unix()}
}

// RecordStore keeps attendance records in a map keyed by (user, day) with a
// secondary id index. Intended for tests and dev environments.
type RecordStore struct {
	mu    sync.RWMutex
	byKey map[dayKey]store.AttendanceRecord
	byID  map[string]dayKey
	now   func() time.Time
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		byKey: make(map[dayKey]store.AttendanceRecord),
		byID:  make(map[string]dayKey),
		now:   time.Now,
	}
}

func (s *RecordStore) GetByUserAndDate(_ context.Context, userID string, day time.Time) (store.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byKey[keyOf(userID, day)]
	if !ok {
		return store.AttendanceRecord{}, store.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *RecordStore) GetByID(_ context.Context, id string) (store.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byID[id]
	if !ok {
		return store.AttendanceRecord{}, store.ErrNotFound
	}
	return s.byKey[k].Clone(), nil
}

// UpsertByUserAndDate keeps the existing id and CreatedAt when the key is
// already present.
func (s *RecordStore) UpsertByUserAndDate(_ context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	k := keyOf(rec.UserID, rec.Date)
	if existing, ok := s.byKey[k]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	s.byKey[k] = rec.Clone()
	s.byID[rec.ID] = k
	return rec, nil
}

func (s *RecordStore) UpdateByID(_ context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.byID[rec.ID]
	if !ok {
		return store.AttendanceRecord{}, store.ErrNotFound
	}
	existing := s.byKey[k]
	// The natural key is immutable through UpdateByID.
	rec.UserID = existing.UserID
	rec.Date = existing.Date
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = s.now().UTC()

	s.byKey[k] = rec.Clone()
	return rec, nil
}

func (s *RecordStore) ListByDate(_ context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return s.list(day, func(store.AttendanceRecord) bool { return true }), nil
}

func (s *RecordStore) ListOpenWFH(_ context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return s.list(day, func(r store.AttendanceRecord) bool {
		return r.Mode == types.ModeWFH && r.IsOpen()
	}), nil
}

func (s *RecordStore) list(day time.Time, keep func(store.AttendanceRecord) bool) []store.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := day.Unix()
	var out []store.AttendanceRecord
	for k, rec := range s.byKey {
		if k.day != d || !keep(rec) {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
