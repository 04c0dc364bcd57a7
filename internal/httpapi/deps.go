package httpapi

import (
	"database/sql"
	"sync/atomic"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/session"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	Boards   *board.Service
	Sessions *session.Manager

	// Atomic store
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// OnConfigReload runs after PUT /config stores a new config.
	OnConfigReload func(config.Config)
}
