// Package testing is blank-imported by test packages that load the runtime
// configuration. It switches the binaries into test mode and fills the
// settings LoadConfig refuses to default.
package testing

import "os"

var defaults = map[string]string{
	"FIELDSALES_TEST_MODE": "1",
	"JWT_SECRET":           "test-secret",
}

func init() {
	for key, value := range defaults {
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, value)
		}
	}
}
