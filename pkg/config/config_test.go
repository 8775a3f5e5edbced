package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func write(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "kitchen")
	s := &sample{Port: 1}
	if err := Load(write(t, "name: ${SAMPLE_NAME}\n"), s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "kitchen" || s.Port != 1 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	err := Load(write(t, "port: 0\n"), &sample{})
	if err == nil || !strings.Contains(err.Error(), "port must be positive") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if err := Load(write(t, "port: [\n"), &sample{Port: 1}); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadIfExists_Missing(t *testing.T) {
	s := &sample{Port: 8080}
	found, err := LoadIfExists(filepath.Join(t.TempDir(), "nope.yaml"), s)
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if s.Port != 8080 {
		t.Errorf("defaults lost: %+v", s)
	}
}
