// Package setting provides CRUD operations for setting categories,
// definitions and values. Every write reports to an Observer before it returns.
package setting

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/confetti-go/confetti/internal/db/models"
)

const (
	codeQueryPattern = "code = ?"
	// keyColumn is a reserved word in MySQL and is only used through quoted clauses.
	keyColumn = "key"
)

var (
	// ErrNotFound is returned when a definition or value does not exist.
	ErrNotFound = errors.New("setting not found")
	// ErrCategoryNotFound is returned when a category does not exist.
	ErrCategoryNotFound = errors.New("setting category not found")
	// ErrCategoryInUse is returned when deleting a category still referenced by definitions.
	ErrCategoryInUse = errors.New("setting category is referenced by definitions")
	// ErrConflict is returned when a write would break a uniqueness constraint.
	ErrConflict = errors.New("setting already exists")
	// ErrKeyEmpty is returned when a key or code is empty.
	ErrKeyEmpty = errors.New("setting key cannot be empty")
	// ErrInvalidScope is returned for an unknown scope or a scope/user mismatch.
	ErrInvalidScope = errors.New("invalid setting scope")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Op names the kind of mutation reported to an Observer.
type Op string

const (
	// OpCreated reports an inserted row.
	OpCreated Op = "created"
	// OpUpdated reports a changed row.
	OpUpdated Op = "updated"
	// OpDeleted reports a removed row.
	OpDeleted Op = "deleted"
)

type (
	// ValueEvent describes a mutation of one stored value.
	ValueEvent struct {
		Op         Op
		Definition *models.SettingDefinition
		Value      *models.SettingValue
	}

	// DefinitionEvent describes a mutation of a definition.
	// UserIDs lists every user holding an override for the definition.
	DefinitionEvent struct {
		Op         Op
		Definition *models.SettingDefinition
		// Previous is the state before an update, nil otherwise.
		Previous *models.SettingDefinition
		UserIDs  []uint64
	}

	// Observer is notified about committed mutations.
	Observer interface {
		ValueChanged(ev ValueEvent)
		DefinitionChanged(ev DefinitionEvent)
	}

	// Store reads and writes settings through gorm.
	Store struct {
		db       *gorm.DB
		observer Observer
		// pending holds notifications deferred until the surrounding transaction commits.
		pending *[]func()
	}
)

// New returns a Store. A nil observer disables notifications.
func New(db *gorm.DB, observer Observer) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Store{db: db, observer: observer}, nil
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a database transaction. Notifications raised by
// writes inside fn are delivered after commit and dropped on rollback.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	if s.pending != nil {
		mark := len(*s.pending)

		err := s.db.Transaction(func(tx *gorm.DB) error {
			return fn(&Store{db: tx, observer: s.observer, pending: s.pending})
		})
		if err != nil {
			// the savepoint was rolled back
			*s.pending = (*s.pending)[:mark]
		}

		return err
	}

	var pending []func()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, observer: s.observer, pending: &pending})
	})
	if err != nil {
		return err
	}

	for _, notify := range pending {
		notify()
	}

	return nil
}

func (s *Store) notify(fn func(o Observer)) {
	if s.observer == nil {
		return
	}

	call := func() { fn(s.observer) }

	if s.pending != nil {
		*s.pending = append(*s.pending, call)

		return
	}

	call()
}

func (s *Store) valueChanged(ev ValueEvent) {
	s.notify(func(o Observer) { o.ValueChanged(ev) })
}

func (s *Store) definitionChanged(ev DefinitionEvent) {
	s.notify(func(o Observer) { o.DefinitionChanged(ev) })
}

func byKey(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: keyColumn}, Value: key}
}

func orderByKey() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: keyColumn}}
}

func translate(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}
