package domain

import "context"

// TransactionView provides read-only access to a consistent snapshot of
// store state. Within a transaction it reflects uncommitted mutations.
type TransactionView interface {
	FindCoordinates(id int64) (Coordinates, bool)
	ListCoordinates() []Coordinates
	FindLocation(id int64) (Location, bool)
	ListLocations() []Location
	FindPerson(id int64) (Person, bool)
	ListPersons() []Person
	FindStudyGroup(id int64) (StudyGroup, bool)
	ListStudyGroups() []StudyGroup
	FindImportJob(id string) (ImportJob, bool)
	ListImportJobs() []ImportJob
}

// Transaction exposes the domain mutations that a persistence implementation
// must support within an atomic scope. Reads observe the transaction's own
// uncommitted state.
type Transaction interface {
	TransactionView

	CreateCoordinates(Coordinates) (Coordinates, error)
	UpdateCoordinates(id int64, mutator func(*Coordinates) error) (Coordinates, error)
	DeleteCoordinates(id int64) error

	CreateLocation(Location) (Location, error)
	UpdateLocation(id int64, mutator func(*Location) error) (Location, error)
	DeleteLocation(id int64) error

	CreatePerson(Person) (Person, error)
	UpdatePerson(id int64, mutator func(*Person) error) (Person, error)
	DeletePerson(id int64) error

	CreateStudyGroup(StudyGroup) (StudyGroup, error)
	UpdateStudyGroup(id int64, mutator func(*StudyGroup) error) (StudyGroup, error)
	DeleteStudyGroup(id int64) error

	CreateImportJob(ImportJob) (ImportJob, error)
	UpdateImportJob(id string, mutator func(*ImportJob) error) (ImportJob, error)
}

// PersistentStore is a minimal abstraction over durable backends.
// RunInTransaction serializes transactions; fn sees a private clone of the
// state which replaces the committed state only when fn returns nil. The
// returned changes describe the committed mutations in order.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) ([]Change, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
