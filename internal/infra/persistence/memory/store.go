// Package memory provides the in-memory transactional store backing all
// campuscore persistence drivers.
package memory

import (
	"context"
	"sync"
	"time"

	"campuscore/pkg/domain"
)

type memoryState struct {
	coordinates map[int64]domain.Coordinates
	locations   map[int64]domain.Location
	persons     map[int64]domain.Person
	groups      map[int64]domain.StudyGroup
	jobs        map[string]domain.ImportJob
	sequences   map[domain.EntityType]int64
}

func newMemoryState() memoryState {
	return memoryState{
		coordinates: make(map[int64]domain.Coordinates),
		locations:   make(map[int64]domain.Location),
		persons:     make(map[int64]domain.Person),
		groups:      make(map[int64]domain.StudyGroup),
		jobs:        make(map[string]domain.ImportJob),
		sequences:   make(map[domain.EntityType]int64),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.coordinates {
		cloned.coordinates[k] = cloneCoordinates(v)
	}
	for k, v := range s.locations {
		cloned.locations[k] = cloneLocation(v)
	}
	for k, v := range s.persons {
		cloned.persons[k] = clonePerson(v)
	}
	for k, v := range s.groups {
		cloned.groups[k] = cloneStudyGroup(v)
	}
	for k, v := range s.jobs {
		cloned.jobs[k] = cloneImportJob(v)
	}
	for k, v := range s.sequences {
		cloned.sequences[k] = v
	}
	return cloned
}

func (s memoryState) nextID(entity domain.EntityType) int64 {
	s.sequences[entity]++
	return s.sequences[entity]
}

func cloneCoordinates(c domain.Coordinates) domain.Coordinates { return c }
func cloneLocation(l domain.Location) domain.Location          { return l }

func clonePerson(p domain.Person) domain.Person {
	cp := p
	cp.EyeColor = clonePtr(p.EyeColor)
	cp.LocationID = clonePtr(p.LocationID)
	cp.Nationality = clonePtr(p.Nationality)
	return cp
}

func cloneStudyGroup(g domain.StudyGroup) domain.StudyGroup {
	cp := g
	cp.StudentsCount = clonePtr(g.StudentsCount)
	cp.FormOfEducation = clonePtr(g.FormOfEducation)
	cp.AverageMark = clonePtr(g.AverageMark)
	cp.GroupAdminID = clonePtr(g.GroupAdminID)
	return cp
}

func cloneImportJob(j domain.ImportJob) domain.ImportJob {
	cp := j
	cp.TotalRecords = clonePtr(j.TotalRecords)
	cp.SuccessCount = clonePtr(j.SuccessCount)
	cp.FinishedAt = clonePtr(j.FinishedAt)
	return cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Store implements domain.PersistentStore entirely in memory. Transactions
// are serialized by the store mutex: fn mutates a private clone of the state
// which replaces the committed state only on success, so check-then-mutate
// sequences inside one transaction cannot interleave with other writers.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

var _ domain.PersistentStore = (*Store)(nil)

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) ([]domain.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return nil, err
	}
	s.state = tx.state
	return tx.changes, nil
}

// View executes fn against a read-only snapshot of committed state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(&view{state: &snapshot})
}

// Close releases store resources. The memory store holds none.
func (s *Store) Close() error { return nil }

// Snapshot captures a point-in-time clone of the store state for external
// persistence. Slices are ordered by id so serialized snapshots are stable.
type Snapshot struct {
	Coordinates []domain.Coordinates        `json:"coordinates"`
	Locations   []domain.Location           `json:"locations"`
	Persons     []domain.Person             `json:"persons"`
	StudyGroups []domain.StudyGroup         `json:"studyGroups"`
	ImportJobs  []domain.ImportJob          `json:"importJobs"`
	Sequences   map[domain.EntityType]int64 `json:"sequences"`
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.state.clone()
	v := view{state: &state}
	return Snapshot{
		Coordinates: v.ListCoordinates(),
		Locations:   v.ListLocations(),
		Persons:     v.ListPersons(),
		StudyGroups: v.ListStudyGroups(),
		ImportJobs:  v.ListImportJobs(),
		Sequences:   state.sequences,
	}
}

// ImportState replaces the store state with the provided snapshot. Sequences
// are advanced past the highest imported id so future inserts never collide.
func (s *Store) ImportState(snapshot Snapshot) {
	state := newMemoryState()
	for _, c := range snapshot.Coordinates {
		state.coordinates[c.ID] = cloneCoordinates(c)
		if c.ID > state.sequences[domain.EntityCoordinates] {
			state.sequences[domain.EntityCoordinates] = c.ID
		}
	}
	for _, l := range snapshot.Locations {
		state.locations[l.ID] = cloneLocation(l)
		if l.ID > state.sequences[domain.EntityLocation] {
			state.sequences[domain.EntityLocation] = l.ID
		}
	}
	for _, p := range snapshot.Persons {
		state.persons[p.ID] = clonePerson(p)
		if p.ID > state.sequences[domain.EntityPerson] {
			state.sequences[domain.EntityPerson] = p.ID
		}
	}
	for _, g := range snapshot.StudyGroups {
		state.groups[g.ID] = cloneStudyGroup(g)
		if g.ID > state.sequences[domain.EntityStudyGroup] {
			state.sequences[domain.EntityStudyGroup] = g.ID
		}
	}
	for _, j := range snapshot.ImportJobs {
		state.jobs[j.ID] = cloneImportJob(j)
	}
	for entity, seq := range snapshot.Sequences {
		if seq > state.sequences[entity] {
			state.sequences[entity] = seq
		}
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
