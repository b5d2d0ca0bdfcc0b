package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	company interfaces.CompanyStorage
	state   interfaces.StateStorage
	event   interfaces.EventStorage
	runLog  interfaces.RunLogStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		company: NewCompanyStorage(db, logger),
		state:   NewStateStorage(db, logger),
		event:   NewEventStorage(db, logger),
		runLog:  NewRunLogStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// CompanyStorage returns the Company storage interface
func (m *Manager) CompanyStorage() interfaces.CompanyStorage {
	return m.company
}

// StateStorage returns the State storage interface
func (m *Manager) StateStorage() interfaces.StateStorage {
	return m.state
}

// EventStorage returns the Event storage interface
func (m *Manager) EventStorage() interfaces.EventStorage {
	return m.event
}

// RunLogStorage returns the RunLog storage interface
func (m *Manager) RunLogStorage() interfaces.RunLogStorage {
	return m.runLog
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
