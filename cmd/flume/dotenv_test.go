// ABOUTME: Tests for the .env loader: parsing, quoting, and no-clobber semantics.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDotEnvParsesFormats(t *testing.T) {
	path := writeEnvFile(t, `
# comment
FLUME_TEST_PLAIN=hello
FLUME_TEST_DQ="double quoted"
FLUME_TEST_SQ='single quoted'
export FLUME_TEST_EXPORT=exported
FLUME_TEST_EQ=a=b=c
not-a-pair
`)
	keys := []string{"FLUME_TEST_PLAIN", "FLUME_TEST_DQ", "FLUME_TEST_SQ",
		"FLUME_TEST_EXPORT", "FLUME_TEST_EQ"}
	for _, k := range keys {
		os.Unsetenv(k)
		t.Cleanup(func() { os.Unsetenv(k) })
	}

	loadDotEnv(path)

	tests := map[string]string{
		"FLUME_TEST_PLAIN":  "hello",
		"FLUME_TEST_DQ":     "double quoted",
		"FLUME_TEST_SQ":     "single quoted",
		"FLUME_TEST_EXPORT": "exported",
		"FLUME_TEST_EQ":     "a=b=c",
	}
	for k, want := range tests {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestLoadDotEnvDoesNotClobber(t *testing.T) {
	path := writeEnvFile(t, "FLUME_TEST_KEEP=from_file\n")

	os.Setenv("FLUME_TEST_KEEP", "from_env")
	t.Cleanup(func() { os.Unsetenv("FLUME_TEST_KEEP") })

	loadDotEnv(path)

	if got := os.Getenv("FLUME_TEST_KEEP"); got != "from_env" {
		t.Errorf("existing variable clobbered: %q", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	// Must not panic or error.
	loadDotEnv(filepath.Join(t.TempDir(), "no-such.env"))
}
