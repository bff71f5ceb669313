package testsupport

import (
	"testing"

	"worldbuilder/internal/config"
	"worldbuilder/internal/spool"
)

// MustOpenSpool opens the config's event spool for tests and registers cleanup.
func MustOpenSpool(t testing.TB, cfg *config.Config) *spool.Store {
	t.Helper()

	store, err := spool.OpenFromConfig(cfg)
	if err != nil {
		t.Fatalf("spool.OpenFromConfig: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
