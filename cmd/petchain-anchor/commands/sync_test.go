package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDataFlagInline(t *testing.T) {
	data, err := parseDataFlag(`{"name":"Rabies","dose":2}`)
	if err != nil {
		t.Fatalf("parseDataFlag failed: %v", err)
	}

	m, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("Expected object, got %T", data)
	}
	if m["name"] != "Rabies" {
		t.Errorf("name mismatch: got %v", m["name"])
	}
}

func TestParseDataFlagFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	if err := os.WriteFile(path, []byte(`{"drug":"amoxicillin"}`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := parseDataFlag("@" + path)
	if err != nil {
		t.Fatalf("parseDataFlag failed: %v", err)
	}
	if data.(map[string]any)["drug"] != "amoxicillin" {
		t.Errorf("Unexpected data: %v", data)
	}
}

func TestParseDataFlagErrors(t *testing.T) {
	if _, err := parseDataFlag("not json"); err == nil {
		t.Error("Expected error for invalid JSON")
	}
	if _, err := parseDataFlag("@/nonexistent/file.json"); err == nil {
		t.Error("Expected error for missing file")
	}
}
