package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMarshalMap_StableOrderSkipsEmpty(t *testing.T) {
	got := MarshalMap(map[string]string{
		"MUALIM_ENABLE_CLI":      "true",
		"MUALIM_DEBUG":           "0",
		"MUALIM_TELEGRAM_TOKEN":  "",
		"MUALIM_GEMINI_API_KEYS": "a,b",
	})

	want := "MUALIM_DEBUG=0\nMUALIM_ENABLE_CLI=true\nMUALIM_GEMINI_API_KEYS=a,b\n"
	if got != want {
		t.Errorf("MarshalMap = %q, want %q", got, want)
	}
}

func TestWriteFile_OwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	if err := WriteFile(path, map[string]string{"KEY": "value"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "KEY=value\n" {
		t.Errorf("unexpected content %q", data)
	}
}
