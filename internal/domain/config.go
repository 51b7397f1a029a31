package domain

import "time"

// Config holds the access policy knobs shared by usecases and handlers.
type Config struct {
	FQDN            string
	SessionSecret   string
	AdminToken      string
	ScopeMode       ScopeMode
	MinLatency      time.Duration
	StorageTimeout  time.Duration
	SessionTTL      time.Duration
	DefaultMaxUses  int
	DefaultCodeTTL  time.Duration
	GeneratedLength int
}
