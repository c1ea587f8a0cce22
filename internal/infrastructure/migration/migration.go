package migration

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// ErrNotVersioned is returned for down/status/create on a driver that only
// supports automigrate.
var ErrNotVersioned = errors.New("driver has no versioned migrations")

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks goose for mysql and postgres, automigrate for sqlite.
func NewManager(driver string) (*Manager, error) {
	var strategy Strategy
	switch strings.ToLower(driver) {
	case "sqlite":
		strategy = NewGormAutoMigrateStrategy()
	case "mysql", "":
		g, err := NewGooseStrategy("mysql")
		if err != nil {
			return nil, err
		}
		strategy = g
	default:
		g, err := NewGooseStrategy(strings.ToLower(driver))
		if err != nil {
			return nil, err
		}
		strategy = g
	}
	return NewManagerWithStrategy(strategy), nil
}

func NewManagerWithStrategy(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.WithComponent("migration.manager"),
	}
}

// Migrate executes the configured migration strategy
func (m *Manager) Migrate(db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.GetName())

	if err := m.strategy.Migrate(db); err != nil {
		m.logger.Errorw("migration failed", "strategy", m.strategy.GetName(), "error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("database migration completed successfully", "strategy", m.strategy.GetName())
	return nil
}

func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}

func (m *Manager) goose() (*GooseStrategy, error) {
	g, ok := m.strategy.(*GooseStrategy)
	if !ok {
		return nil, ErrNotVersioned
	}
	return g, nil
}

func (m *Manager) Down(db *gorm.DB, steps int) error {
	g, err := m.goose()
	if err != nil {
		return err
	}
	return g.MigrateDown(db, steps)
}

func (m *Manager) Status(db *gorm.DB) error {
	g, err := m.goose()
	if err != nil {
		return err
	}
	return g.Status(db)
}

func (m *Manager) Version(db *gorm.DB) (int64, error) {
	g, err := m.goose()
	if err != nil {
		return 0, err
	}
	return g.GetVersion(db)
}

func (m *Manager) Create(dir, name string) error {
	g, err := m.goose()
	if err != nil {
		return err
	}
	return g.Create(dir, name)
}
