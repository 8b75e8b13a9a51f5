package memory

import (
	"sort"
	"time"

	"campuscore/pkg/domain"
)

// view exposes read access over a memoryState. Returned values are clones;
// lists are ordered by id ascending (import jobs by creation time, newest
// last) so callers see a deterministic sequence.
type view struct {
	state *memoryState
}

var _ domain.TransactionView = (*view)(nil)

func (v *view) FindCoordinates(id int64) (domain.Coordinates, bool) {
	c, ok := v.state.coordinates[id]
	if !ok {
		return domain.Coordinates{}, false
	}
	return cloneCoordinates(c), true
}

func (v *view) ListCoordinates() []domain.Coordinates {
	out := make([]domain.Coordinates, 0, len(v.state.coordinates))
	for _, c := range v.state.coordinates {
		out = append(out, cloneCoordinates(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) FindLocation(id int64) (domain.Location, bool) {
	l, ok := v.state.locations[id]
	if !ok {
		return domain.Location{}, false
	}
	return cloneLocation(l), true
}

func (v *view) ListLocations() []domain.Location {
	out := make([]domain.Location, 0, len(v.state.locations))
	for _, l := range v.state.locations {
		out = append(out, cloneLocation(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) FindPerson(id int64) (domain.Person, bool) {
	p, ok := v.state.persons[id]
	if !ok {
		return domain.Person{}, false
	}
	return clonePerson(p), true
}

func (v *view) ListPersons() []domain.Person {
	out := make([]domain.Person, 0, len(v.state.persons))
	for _, p := range v.state.persons {
		out = append(out, clonePerson(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) FindStudyGroup(id int64) (domain.StudyGroup, bool) {
	g, ok := v.state.groups[id]
	if !ok {
		return domain.StudyGroup{}, false
	}
	return cloneStudyGroup(g), true
}

func (v *view) ListStudyGroups() []domain.StudyGroup {
	out := make([]domain.StudyGroup, 0, len(v.state.groups))
	for _, g := range v.state.groups {
		out = append(out, cloneStudyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) FindImportJob(id string) (domain.ImportJob, bool) {
	j, ok := v.state.jobs[id]
	if !ok {
		return domain.ImportJob{}, false
	}
	return cloneImportJob(j), true
}

func (v *view) ListImportJobs() []domain.ImportJob {
	out := make([]domain.ImportJob, 0, len(v.state.jobs))
	for _, j := range v.state.jobs {
		out = append(out, cloneImportJob(j))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// transaction represents a mutation set applied to a cloned store state.
type transaction struct {
	state   memoryState
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*transaction)(nil)

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) FindCoordinates(id int64) (domain.Coordinates, bool) {
	return (&view{state: &tx.state}).FindCoordinates(id)
}
func (tx *transaction) ListCoordinates() []domain.Coordinates {
	return (&view{state: &tx.state}).ListCoordinates()
}
func (tx *transaction) FindLocation(id int64) (domain.Location, bool) {
	return (&view{state: &tx.state}).FindLocation(id)
}
func (tx *transaction) ListLocations() []domain.Location {
	return (&view{state: &tx.state}).ListLocations()
}
func (tx *transaction) FindPerson(id int64) (domain.Person, bool) {
	return (&view{state: &tx.state}).FindPerson(id)
}
func (tx *transaction) ListPersons() []domain.Person {
	return (&view{state: &tx.state}).ListPersons()
}
func (tx *transaction) FindStudyGroup(id int64) (domain.StudyGroup, bool) {
	return (&view{state: &tx.state}).FindStudyGroup(id)
}
func (tx *transaction) ListStudyGroups() []domain.StudyGroup {
	return (&view{state: &tx.state}).ListStudyGroups()
}
func (tx *transaction) FindImportJob(id string) (domain.ImportJob, bool) {
	return (&view{state: &tx.state}).FindImportJob(id)
}
func (tx *transaction) ListImportJobs() []domain.ImportJob {
	return (&view{state: &tx.state}).ListImportJobs()
}

// CreateCoordinates stores a new coordinates row within the transaction.
func (tx *transaction) CreateCoordinates(c domain.Coordinates) (domain.Coordinates, error) {
	c.ID = tx.state.nextID(domain.EntityCoordinates)
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.coordinates[c.ID] = cloneCoordinates(c)
	tx.recordChange(domain.Change{Entity: domain.EntityCoordinates, Action: domain.ActionCreated, After: cloneCoordinates(c)})
	return cloneCoordinates(c), nil
}

// UpdateCoordinates mutates a coordinates row using the provided mutator.
func (tx *transaction) UpdateCoordinates(id int64, mutator func(*domain.Coordinates) error) (domain.Coordinates, error) {
	current, ok := tx.state.coordinates[id]
	if !ok {
		return domain.Coordinates{}, domain.NewNotFound(domain.EntityCoordinates, id)
	}
	before := cloneCoordinates(current)
	if err := mutator(&current); err != nil {
		return domain.Coordinates{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.coordinates[id] = cloneCoordinates(current)
	tx.recordChange(domain.Change{Entity: domain.EntityCoordinates, Action: domain.ActionUpdated, Before: before, After: cloneCoordinates(current)})
	return cloneCoordinates(current), nil
}

// DeleteCoordinates removes a coordinates row from the transaction state.
func (tx *transaction) DeleteCoordinates(id int64) error {
	current, ok := tx.state.coordinates[id]
	if !ok {
		return domain.NewNotFound(domain.EntityCoordinates, id)
	}
	delete(tx.state.coordinates, id)
	tx.recordChange(domain.Change{Entity: domain.EntityCoordinates, Action: domain.ActionDeleted, Before: cloneCoordinates(current)})
	return nil
}

// CreateLocation stores a new location row.
func (tx *transaction) CreateLocation(l domain.Location) (domain.Location, error) {
	l.ID = tx.state.nextID(domain.EntityLocation)
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.locations[l.ID] = cloneLocation(l)
	tx.recordChange(domain.Change{Entity: domain.EntityLocation, Action: domain.ActionCreated, After: cloneLocation(l)})
	return cloneLocation(l), nil
}

// UpdateLocation mutates an existing location row.
func (tx *transaction) UpdateLocation(id int64, mutator func(*domain.Location) error) (domain.Location, error) {
	current, ok := tx.state.locations[id]
	if !ok {
		return domain.Location{}, domain.NewNotFound(domain.EntityLocation, id)
	}
	before := cloneLocation(current)
	if err := mutator(&current); err != nil {
		return domain.Location{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.locations[id] = cloneLocation(current)
	tx.recordChange(domain.Change{Entity: domain.EntityLocation, Action: domain.ActionUpdated, Before: before, After: cloneLocation(current)})
	return cloneLocation(current), nil
}

// DeleteLocation removes a location row.
func (tx *transaction) DeleteLocation(id int64) error {
	current, ok := tx.state.locations[id]
	if !ok {
		return domain.NewNotFound(domain.EntityLocation, id)
	}
	delete(tx.state.locations, id)
	tx.recordChange(domain.Change{Entity: domain.EntityLocation, Action: domain.ActionDeleted, Before: cloneLocation(current)})
	return nil
}

// CreatePerson stores a new person row.
func (tx *transaction) CreatePerson(p domain.Person) (domain.Person, error) {
	p.ID = tx.state.nextID(domain.EntityPerson)
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.persons[p.ID] = clonePerson(p)
	tx.recordChange(domain.Change{Entity: domain.EntityPerson, Action: domain.ActionCreated, After: clonePerson(p)})
	return clonePerson(p), nil
}

// UpdatePerson mutates an existing person row.
func (tx *transaction) UpdatePerson(id int64, mutator func(*domain.Person) error) (domain.Person, error) {
	current, ok := tx.state.persons[id]
	if !ok {
		return domain.Person{}, domain.NewNotFound(domain.EntityPerson, id)
	}
	before := clonePerson(current)
	if err := mutator(&current); err != nil {
		return domain.Person{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.persons[id] = clonePerson(current)
	tx.recordChange(domain.Change{Entity: domain.EntityPerson, Action: domain.ActionUpdated, Before: before, After: clonePerson(current)})
	return clonePerson(current), nil
}

// DeletePerson removes a person row.
func (tx *transaction) DeletePerson(id int64) error {
	current, ok := tx.state.persons[id]
	if !ok {
		return domain.NewNotFound(domain.EntityPerson, id)
	}
	delete(tx.state.persons, id)
	tx.recordChange(domain.Change{Entity: domain.EntityPerson, Action: domain.ActionDeleted, Before: clonePerson(current)})
	return nil
}

// CreateStudyGroup stores a new study group row. CreationDate is assigned
// here and never touched again.
func (tx *transaction) CreateStudyGroup(g domain.StudyGroup) (domain.StudyGroup, error) {
	g.ID = tx.state.nextID(domain.EntityStudyGroup)
	g.CreationDate = tx.now
	g.UpdatedAt = tx.now
	tx.state.groups[g.ID] = cloneStudyGroup(g)
	tx.recordChange(domain.Change{Entity: domain.EntityStudyGroup, Action: domain.ActionCreated, After: cloneStudyGroup(g)})
	return cloneStudyGroup(g), nil
}

// UpdateStudyGroup mutates an existing study group row. CreationDate is
// restored after the mutator runs so it stays immutable.
func (tx *transaction) UpdateStudyGroup(id int64, mutator func(*domain.StudyGroup) error) (domain.StudyGroup, error) {
	current, ok := tx.state.groups[id]
	if !ok {
		return domain.StudyGroup{}, domain.NewNotFound(domain.EntityStudyGroup, id)
	}
	before := cloneStudyGroup(current)
	if err := mutator(&current); err != nil {
		return domain.StudyGroup{}, err
	}
	current.ID = id
	current.CreationDate = before.CreationDate
	current.UpdatedAt = tx.now
	tx.state.groups[id] = cloneStudyGroup(current)
	tx.recordChange(domain.Change{Entity: domain.EntityStudyGroup, Action: domain.ActionUpdated, Before: before, After: cloneStudyGroup(current)})
	return cloneStudyGroup(current), nil
}

// DeleteStudyGroup removes a study group row.
func (tx *transaction) DeleteStudyGroup(id int64) error {
	current, ok := tx.state.groups[id]
	if !ok {
		return domain.NewNotFound(domain.EntityStudyGroup, id)
	}
	delete(tx.state.groups, id)
	tx.recordChange(domain.Change{Entity: domain.EntityStudyGroup, Action: domain.ActionDeleted, Before: cloneStudyGroup(current)})
	return nil
}

// CreateImportJob stores a new import job row. The caller supplies the id.
func (tx *transaction) CreateImportJob(j domain.ImportJob) (domain.ImportJob, error) {
	if j.ID == "" {
		return domain.ImportJob{}, domain.NewValidation("id", "import job id must be set")
	}
	if _, exists := tx.state.jobs[j.ID]; exists {
		return domain.ImportJob{}, domain.NewValidation("id", "import job %s already exists", j.ID)
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = tx.now
	}
	tx.state.jobs[j.ID] = cloneImportJob(j)
	tx.recordChange(domain.Change{Entity: domain.EntityImportJob, Action: domain.ActionCreated, After: cloneImportJob(j)})
	return cloneImportJob(j), nil
}

// UpdateImportJob mutates an import job row. Terminal statuses are frozen:
// once COMPLETED or FAILED the row can no longer change.
func (tx *transaction) UpdateImportJob(id string, mutator func(*domain.ImportJob) error) (domain.ImportJob, error) {
	current, ok := tx.state.jobs[id]
	if !ok {
		return domain.ImportJob{}, domain.NewNotFound(domain.EntityImportJob, id)
	}
	before := cloneImportJob(current)
	if before.Status.Terminal() {
		return domain.ImportJob{}, domain.NewValidation("status", "import job %s is already %s", id, before.Status)
	}
	if err := mutator(&current); err != nil {
		return domain.ImportJob{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if current.Status.Terminal() && current.FinishedAt == nil {
		finished := tx.now
		current.FinishedAt = &finished
	}
	tx.state.jobs[id] = cloneImportJob(current)
	tx.recordChange(domain.Change{Entity: domain.EntityImportJob, Action: domain.ActionUpdated, Before: before, After: cloneImportJob(current)})
	return cloneImportJob(current), nil
}
