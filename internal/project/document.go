// Package project reads and writes slideforge project files and builds
// starter projects from a deck of pages.
package project

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/timeline"
)

const Version = "1.0"

// Document is the on-disk form of a project.
type Document struct {
	Version  string              `yaml:"version"`
	Title    string              `yaml:"title,omitempty"`
	Canvas   config.CanvasConfig `yaml:"canvas"`
	// DPI is the resolution PDF pages were measured at.
	DPI      int                 `yaml:"dpi,omitempty"`
	Elements []timeline.Element  `yaml:"elements"`
}

func New(title string, canvas config.CanvasConfig, elements []timeline.Element) *Document {
	return &Document{
		Version:  Version,
		Title:    title,
		Canvas:   canvas,
		Elements: elements,
	}
}

// Apply copies the document canvas into cfg. Zero fields keep the
// configured values.
func (d *Document) Apply(cfg *config.Config) {
	if d.Canvas.Width > 0 {
		cfg.Canvas.Width = d.Canvas.Width
	}
	if d.Canvas.Height > 0 {
		cfg.Canvas.Height = d.Canvas.Height
	}
	if d.Canvas.Background != "" {
		cfg.Canvas.Background = d.Canvas.Background
	}
}

// Write writes a project to a YAML file
func Write(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a project from a YAML file. The schedule itself is checked
// when it is loaded into a session.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Version == "" {
		doc.Version = Version
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%s: unsupported project version %q", path, doc.Version)
	}

	return &doc, nil
}
