package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Name string `envconfig:"NAME" required:"true"`
	Port int    `envconfig:"PORT" default:"8080"`
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewFromFileExportsValues(t *testing.T) {
	path := writeEnvFile(t, "CFGFILE_NAME=from-file\nCFGFILE_PORT=9090\n")
	t.Cleanup(func() {
		os.Unsetenv("CFGFILE_NAME")
		os.Unsetenv("CFGFILE_PORT")
	})

	conf, err := NewFromFile[testConfig](path, "CFGFILE", true)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	if conf.Name != "from-file" || conf.Port != 9090 {
		t.Fatalf("unexpected config: %+v", conf)
	}
}

func TestNewFromFileKeepsProcessEnv(t *testing.T) {
	t.Setenv("CFGWIN_NAME", "from-env")
	path := writeEnvFile(t, "CFGWIN_NAME=from-file\n")

	conf, err := NewFromFile[testConfig](path, "CFGWIN", true)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	if conf.Name != "from-env" {
		t.Fatalf("Name = %q, want from-env", conf.Name)
	}
	if conf.Port != 8080 {
		t.Fatalf("Port = %d, want default 8080", conf.Port)
	}
}

func TestNewFromFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	if _, err := NewFromFile[testConfig](missing, "CFGMISSING", true); err == nil {
		t.Fatal("expected error for a required missing file")
	}

	t.Setenv("CFGMISSING_NAME", "set")
	conf, err := NewFromFile[testConfig](missing, "CFGMISSING", false)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	if conf.Name != "set" {
		t.Fatalf("Name = %q, want set", conf.Name)
	}
}

func TestNewFromFileRequiredField(t *testing.T) {
	if _, err := NewFromFile[testConfig]("", "CFGREQUIRED", false); err == nil {
		t.Fatal("expected error for missing required field")
	}
}
