package badger

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// SeedSecrets copies credential-looking environment variables into the
// KV store so operators can rotate them without restarting. Only keys
// ending in _API_KEY or _SECRET are picked up.
func (m *Manager) SeedSecrets(ctx context.Context, environ []string) {
	seeded := 0
	for _, entry := range environ {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		key := parts[0]
		if !strings.HasSuffix(key, "_API_KEY") && !strings.HasSuffix(key, "_SECRET") {
			continue
		}
		if err := m.kv.Set(ctx, key, parts[1], "Seeded from environment"); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Failed to seed secret into KV store")
			continue
		}
		seeded++
	}
	if seeded > 0 {
		m.logger.Debug().Int("count", seeded).Msg("Seeded secrets into KV store")
	}
}
