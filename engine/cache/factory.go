package cache

import "fmt"

// Backend names accepted by NewCacheService, matching the config values.
const (
	BackendMemory = "memory"
	BackendLibsql = "libsql"
)

// NewCacheService builds the cache backend selected by configuration. The
// libsql backend persists derived indices between runs; memory is the
// default.
func NewCacheService(backend, dbPath string) (CacheService, error) {
	switch backend {
	case BackendMemory, "":
		return NewInMemoryCacheService(), nil
	case BackendLibsql:
		service, err := NewLibsqlCacheService(dbPath)
		if err != nil {
			return nil, err
		}
		return service, nil
	default:
		return nil, fmt.Errorf("cache backend must be one of [%s %s], given backend is %q", BackendMemory, BackendLibsql, backend)
	}
}
