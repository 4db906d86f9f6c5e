package repository

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Errors
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories groups the stores of the whp module. Audit is nil when no
// database is configured.
type Repositories struct {
	Sessions SessionStore
	Audit    *ImportAuditRepository
}

// NewRepositories picks the session store from what is available: redis
// when rdb is set, an in-process map otherwise.
func NewRepositories(db *gorm.DB, rdb *redis.Client, opts SessionOptions) *Repositories {
	repos := &Repositories{}
	if rdb != nil {
		repos.Sessions = NewRedisSessionStore(rdb, opts)
	} else {
		repos.Sessions = NewMemorySessionStore(opts)
	}
	if db != nil {
		repos.Audit = NewImportAuditRepository(db)
	}
	return repos
}
