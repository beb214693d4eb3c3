package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims surrounding whitespace and optionally lowercases.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd finds the project root (the directory holding go.mod) by walking
// up from the working directory. `go test` runs each package in its own
// directory, which breaks paths relative to the repo root.
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	dir, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir || parent == string(os.PathSeparator) {
			log.Fatal("project root not found")
		}
		dir = parent
	}
}
