package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("BOKSLUT_TEST_MODE", "1")
		if os.Getenv("CLOSING_TIMEZONE") == "" {
			_ = os.Setenv("CLOSING_TIMEZONE", "Europe/Stockholm")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
