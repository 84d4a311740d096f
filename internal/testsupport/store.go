package testsupport

import (
	"context"
	"testing"

	"finmatch/internal/catalog"
	"finmatch/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustImport stores entries in the catalog, failing the test on error.
func MustImport(t testing.TB, store *catalog.Store, entries ...catalog.Entry) {
	t.Helper()

	if _, err := store.Import(context.Background(), entries); err != nil {
		t.Fatalf("import: %v", err)
	}
}
