package database

type EstablishmentRepository interface {
	Upsert(record EstablishmentRecord) (string, error)
	GetAll() ([]Establishment, error)
	GetByID(id string) (*Establishment, error)
	GetByExternalID(externalID string) (*Establishment, error)
	GetCount() (int, error)

	Merge(canonicalID string, memberIDs []string) error
}

type ItemRepository interface {
	ReplaceItems(establishmentID string, items []ItemRecord) error
	GetItems(establishmentID string) ([]Item, error)
	GetItemCount() (int, error)
}

type OutcomeRepository interface {
	Record(runName string, outcome OutcomeRecord) error
	GetOutcomes(runName string) ([]RunOutcome, error)
	GetCompletedInputs(runName string) (map[string]bool, error)
	GetStats() (OutcomeStats, error)
}
