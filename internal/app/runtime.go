package app

import (
	"os"
	"sync/atomic"
)

// TestModeEnv, when set to "1", makes the binaries return before opening
// connections or listening.
const TestModeEnv = "AUDITORIA360_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether startup side effects should be skipped. The
// environment is read on first use.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads TestModeEnv and returns the new value.
func RefreshTestMode() bool {
	on := os.Getenv(TestModeEnv) == "1"
	testMode.Store(&on)
	return on
}
