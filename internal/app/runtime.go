package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "FIELDSALES_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(testModeEnv))
})

// InTestMode reports whether the binaries should return before dialing
// Postgres or Redis. The environment is read once per process.
func InTestMode() bool {
	return testMode()
}

func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(raw)
	return err == nil && on
}
