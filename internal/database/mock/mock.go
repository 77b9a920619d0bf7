// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

type markKey struct {
	studentID int64
	date      string
	slotID    string
}

// MockStore is an in-memory implementation of database.Store. The mark
// triple uniqueness is checked under the store lock, like a unique index.
type MockStore struct {
	mu         sync.RWMutex
	slots      map[string]*database.SlotDefinition
	marks      map[markKey]*database.AttendanceMark
	summaries  map[string]*database.DailySummary
	holidays   map[int64]*database.Holiday
	students   map[int64]*database.Student
	embeddings []database.StoredEmbedding
	nextID     int64

	// Call counters
	SaveSummaryCalls int
	InsertMarkCalls  int

	// Error injection
	ListSlotsError      error
	CountSlotsError     error
	CreateSlotError     error
	UpdateSlotError     error
	InsertMarkError     error
	ListMarksError      error
	SaveSummaryError    error
	GetSummaryError     error
	HolidayError        error
	GetStudentError     error
	CountStudentsError  error
	SaveEmbeddingError  error
	ListEmbeddingsError error
	PingError           error
}

// NewMockStore creates an empty store
func NewMockStore() *MockStore {
	return &MockStore{
		slots:     make(map[string]*database.SlotDefinition),
		marks:     make(map[markKey]*database.AttendanceMark),
		summaries: make(map[string]*database.DailySummary),
		holidays:  make(map[int64]*database.Holiday),
		students:  make(map[int64]*database.Student),
	}
}

var _ database.Store = (*MockStore)(nil)

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddSlot adds a slot to the store
func (m *MockStore) AddSlot(slot database.SlotDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot.SlotID] = &slot
}

// AddStudent adds a student; an empty status means active
func (m *MockStore) AddStudent(student database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if student.Status == "" {
		student.Status = database.StudentStatusActive
	}
	m.students[student.ID] = &student
}

// AddMark stores a mark without any checks
func (m *MockStore) AddMark(mark database.AttendanceMark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mark.ID = m.id()
	m.marks[markKey{mark.StudentID, mark.Date, mark.SlotID}] = &mark
}

// MarkCount returns the number of stored marks
func (m *MockStore) MarkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.marks)
}

// ListSlots returns slots ordered by start time
func (m *MockStore) ListSlots(ctx context.Context, includeInactive bool) ([]database.SlotDefinition, error) {
	if m.ListSlotsError != nil {
		return nil, m.ListSlotsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.SlotDefinition
	for _, s := range m.slots {
		if s.IsActive || includeInactive {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].SlotID < result[j].SlotID
	})
	return result, nil
}

// CountSlots returns the number of slots ever configured
func (m *MockStore) CountSlots(ctx context.Context) (int, error) {
	if m.CountSlotsError != nil {
		return 0, m.CountSlotsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots), nil
}

// CreateSlot inserts a new slot
func (m *MockStore) CreateSlot(ctx context.Context, slot *database.SlotDefinition) error {
	if m.CreateSlotError != nil {
		return m.CreateSlotError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.SlotID]; ok {
		return database.ErrConflict
	}
	stored := *slot
	stored.UpdatedAt = time.Now()
	m.slots[slot.SlotID] = &stored
	return nil
}

// UpdateSlotTimes changes the window of an active slot
func (m *MockStore) UpdateSlotTimes(ctx context.Context, slotID string, start, end database.TimeOfDay) error {
	if m.UpdateSlotError != nil {
		return m.UpdateSlotError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok || !s.IsActive {
		return database.ErrNotFound
	}
	s.StartTime, s.EndTime = start, end
	s.UpdatedAt = time.Now()
	return nil
}

// SetSlotActive activates or deactivates a slot
func (m *MockStore) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	if m.UpdateSlotError != nil {
		return m.UpdateSlotError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return database.ErrNotFound
	}
	s.IsActive = active
	s.UpdatedAt = time.Now()
	return nil
}

// InsertMark stores a mark, rejecting duplicates of the triple. With project
// set, the day's summary is saved atomically with the mark: a SaveSummaryError
// leaves neither stored.
func (m *MockStore) InsertMark(ctx context.Context, mark *database.AttendanceMark, project database.SummaryFunc) (*database.DailySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertMarkCalls++
	if m.InsertMarkError != nil {
		return nil, m.InsertMarkError
	}
	key := markKey{mark.StudentID, mark.Date, mark.SlotID}
	if _, ok := m.marks[key]; ok {
		return nil, database.ErrDuplicateMark
	}

	stored := *mark
	stored.ID = m.nextID + 1
	if project == nil {
		m.nextID++
		m.marks[key] = &stored
		mark.ID = stored.ID
		return nil, nil
	}

	day := m.sortedMarks(func(existing *database.AttendanceMark) bool { return existing.Date == mark.Date })
	day = append(day, stored)
	summary := project(day)
	m.SaveSummaryCalls++
	if m.SaveSummaryError != nil {
		return nil, m.SaveSummaryError
	}

	m.nextID++
	m.marks[key] = &stored
	mark.ID = stored.ID
	m.saveSummaryLocked(summary)
	return summary, nil
}

// GetMark returns the mark for the triple
func (m *MockStore) GetMark(ctx context.Context, studentID int64, date, slotID string) (*database.AttendanceMark, error) {
	if m.ListMarksError != nil {
		return nil, m.ListMarksError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	mark, ok := m.marks[markKey{studentID, date, slotID}]
	if !ok {
		return nil, nil
	}
	result := *mark
	return &result, nil
}

// ListMarksByDate returns the marks of a day
func (m *MockStore) ListMarksByDate(ctx context.Context, date string) ([]database.AttendanceMark, error) {
	return m.listMarks(func(mark *database.AttendanceMark) bool { return mark.Date == date })
}

// ListMarksByStudent returns a student's marks within the inclusive range
func (m *MockStore) ListMarksByStudent(ctx context.Context, studentID int64, from, to string) ([]database.AttendanceMark, error) {
	return m.listMarks(func(mark *database.AttendanceMark) bool {
		return mark.StudentID == studentID && mark.Date >= from && mark.Date <= to
	})
}

func (m *MockStore) listMarks(match func(*database.AttendanceMark) bool) ([]database.AttendanceMark, error) {
	if m.ListMarksError != nil {
		return nil, m.ListMarksError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedMarks(match), nil
}

// sortedMarks expects the caller to hold the lock.
func (m *MockStore) sortedMarks(match func(*database.AttendanceMark) bool) []database.AttendanceMark {
	var result []database.AttendanceMark
	for _, mark := range m.marks {
		if match(mark) {
			result = append(result, *mark)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		if result[i].SlotID != result[j].SlotID {
			return result[i].SlotID < result[j].SlotID
		}
		return result[i].MarkedAt.Before(result[j].MarkedAt)
	})
	return result
}

// SaveSummary overwrites the summary of its date
func (m *MockStore) SaveSummary(ctx context.Context, summary *database.DailySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveSummaryCalls++
	if m.SaveSummaryError != nil {
		return m.SaveSummaryError
	}
	m.saveSummaryLocked(summary)
	return nil
}

func (m *MockStore) saveSummaryLocked(summary *database.DailySummary) {
	stored := *summary
	stored.PresentPerSlot = make(map[string]int, len(summary.PresentPerSlot))
	for k, v := range summary.PresentPerSlot {
		stored.PresentPerSlot[k] = v
	}
	m.summaries[summary.Date] = &stored
}

// GetSummary returns the stored summary, nil if none
func (m *MockStore) GetSummary(ctx context.Context, date string) (*database.DailySummary, error) {
	if m.GetSummaryError != nil {
		return nil, m.GetSummaryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[date]
	if !ok {
		return nil, nil
	}
	result := *s
	return &result, nil
}

// GetHoliday returns the holiday on date
func (m *MockStore) GetHoliday(ctx context.Context, date string) (*database.Holiday, error) {
	if m.HolidayError != nil {
		return nil, m.HolidayError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holidays {
		if h.Date == date {
			result := *h
			return &result, nil
		}
	}
	return nil, nil
}

// ListHolidays returns holidays in the inclusive range ordered by date
func (m *MockStore) ListHolidays(ctx context.Context, from, to string) ([]database.Holiday, error) {
	if m.HolidayError != nil {
		return nil, m.HolidayError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Holiday
	for _, h := range m.holidays {
		if (from == "" || h.Date >= from) && (to == "" || h.Date <= to) {
			result = append(result, *h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// AddHoliday stores a holiday, ErrConflict if the date is taken
func (m *MockStore) AddHoliday(ctx context.Context, holiday *database.Holiday) error {
	if m.HolidayError != nil {
		return m.HolidayError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.holidays {
		if h.Date == holiday.Date {
			return database.ErrConflict
		}
	}
	holiday.ID = m.id()
	holiday.CreatedAt = time.Now()
	stored := *holiday
	m.holidays[holiday.ID] = &stored
	return nil
}

// DeleteHoliday removes a holiday
func (m *MockStore) DeleteHoliday(ctx context.Context, id int64) error {
	if m.HolidayError != nil {
		return m.HolidayError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.holidays, id)
	return nil
}

// GetStudent returns the student, nil if unknown
func (m *MockStore) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	result := *s
	return &result, nil
}

// CountActiveStudents returns the number of active students
func (m *MockStore) CountActiveStudents(ctx context.Context) (int, error) {
	if m.CountStudentsError != nil {
		return 0, m.CountStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.students {
		if s.IsActive() {
			count++
		}
	}
	return count, nil
}

// ListActiveStudents returns the active students ordered by name
func (m *MockStore) ListActiveStudents(ctx context.Context) ([]database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Student
	for _, s := range m.students {
		if s.IsActive() {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SaveStudent inserts or updates a student
func (m *MockStore) SaveStudent(ctx context.Context, student *database.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if student.ID == 0 {
		student.ID = m.id()
	}
	if student.Status == "" {
		student.Status = database.StudentStatusActive
	}
	stored := *student
	m.students[student.ID] = &stored
	return nil
}

// SaveEmbedding stores an embedding
func (m *MockStore) SaveEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	if m.SaveEmbeddingError != nil {
		return m.SaveEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emb.ID = m.id()
	emb.CreatedAt = time.Now()
	m.embeddings = append(m.embeddings, *emb)
	return nil
}

// ListEmbeddings returns all stored embeddings
func (m *MockStore) ListEmbeddings(ctx context.Context) ([]database.StoredEmbedding, error) {
	if m.ListEmbeddingsError != nil {
		return nil, m.ListEmbeddingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredEmbedding, len(m.embeddings))
	copy(result, m.embeddings)
	return result, nil
}

// CountEmbeddings returns the number of stored embeddings
func (m *MockStore) CountEmbeddings(ctx context.Context) (int, error) {
	if m.ListEmbeddingsError != nil {
		return 0, m.ListEmbeddingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.embeddings), nil
}

// Ping returns PingError
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingError
}

// Close does nothing
func (m *MockStore) Close() error {
	return nil
}
