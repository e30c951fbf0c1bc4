// Package testing puts the binaries into test mode. Test packages that start
// the router import it for its side effect.
package testing

import (
	"os"
	stdtesting "testing"

	"github.com/auditoria360/auditoria360/internal/app"
)

func init() {
	enable()
}

func enable() {
	_ = os.Setenv(app.TestModeEnv, "1")
	app.RefreshTestMode()
}

// TestMain can be delegated to from packages that need test mode before m.Run.
func TestMain(m *stdtesting.M) {
	enable()
	os.Exit(m.Run())
}
