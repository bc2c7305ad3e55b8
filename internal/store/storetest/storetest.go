// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/rebootlabs/mastery/internal/store"
)

// Open returns a fresh in-memory store private to the test. The database is
// named after the test so parallel tests never share tables.
func Open(t testing.TB) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + url.PathEscape(name) + "?mode=memory&cache=shared"
	s, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
