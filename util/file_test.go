package util

import (
	"encoding/json"
	"os"
	"path"
	"testing"
)

func TestWriteAndAppend(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "nested", "out.txt")
	if err := WriteToFile(file, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := AppendToFile(file, "c"); err != nil {
		t.Fatal(err)
	}
	bs, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != "a\nb\nc\n" {
		t.Errorf("content = %q", bs)
	}
}

func TestWriteJSON(t *testing.T) {
	file := path.Join(t.TempDir(), "v.json")
	if err := WriteJSON(file, map[string]int{"agents": 3}); err != nil {
		t.Fatal(err)
	}
	bs, _ := os.ReadFile(file)
	out := make(map[string]int)
	if err := json.Unmarshal(bs, &out); err != nil {
		t.Fatal(err)
	}
	if out["agents"] != 3 {
		t.Errorf("agents = %d", out["agents"])
	}
}
