package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("BOKSLUT_TEST_MODE") == "" {
			_ = os.Setenv("BOKSLUT_TEST_MODE", "1")
		}
	})
}
