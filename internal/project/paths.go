package project

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/slideforge/internal/system"
)

// DefaultDir is where new projects are written.
var DefaultDir = "projects"

// GeneratePath creates a timestamped project filename in dir
func GeneratePath(dir string, now time.Time) string {
	timestamp := now.Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("project_%s.yaml", timestamp))
}

// FindLatest finds the most recently modified project file in dir
func FindLatest(dir string) (string, error) {
	path, err := system.FindLatest(dir, ".yaml", ".yml")
	if err != nil {
		return "", fmt.Errorf("find project: %w", err)
	}
	return path, nil
}
