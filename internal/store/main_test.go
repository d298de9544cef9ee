package store

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package when a test leaves a database open.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
