package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// FixturePath returns the path of name inside the package testdata directory.
func FixturePath(name string) string {
	return filepath.Join("testdata", name)
}

// LoadCases decodes the "cases" array of testdata/<name> into a slice of T.
// Numbers are decoded as json.Number so fixtures keep integer precision.
func LoadCases[T any](t testing.TB, name string) []T {
	t.Helper()

	path := FixturePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", path, err)
	}

	var doc struct {
		Cases []T `json:"cases"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("failed to decode fixture %s: %v", path, err)
	}
	if len(doc.Cases) == 0 {
		t.Fatalf("fixture %s has no cases", path)
	}
	return doc.Cases
}
