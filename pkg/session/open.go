package session

import (
	"fmt"

	"grindhub/pkg/config"
)

// Open builds the store named by cfg.Store.
func Open(cfg config.SessionConfig) (Store, error) {
	switch cfg.Store {
	case "", config.StoreMemory:
		return NewMemoryStore(cfg.MaxSessions, cfg.IdleTimeout), nil
	case config.StoreSQLite:
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("session store %q requires db_path", cfg.Store)
		}
		return OpenSQLite(cfg.DBPath, cfg.IdleTimeout)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
