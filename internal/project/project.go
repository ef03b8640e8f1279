// Package project provides project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Ext is the project file extension.
const Ext = ".bfproj"

// File represents a bead-fixer project file (.bfproj). It ties an
// alignment log to the fiducial model and image stack it was computed from.
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Paths relative to the project file
	LogPath    string   `json:"log,omitempty"`
	ModelPath  string   `json:"model,omitempty"`
	ImagePaths []string `json:"images,omitempty"`

	Settings Settings `json:"settings"`
}

// Settings holds per-project bead settings.
type Settings struct {
	Diameter   float64 `json:"diameter,omitempty"`
	LightBeads bool    `json:"light_beads"`
}

// New creates a new project file with default settings.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		Settings: Settings{Diameter: 3},
	}
}

// Load loads a project from a .bfproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func relTo(projectPath, path string) string {
	rel, err := filepath.Rel(filepath.Dir(projectPath), path)
	if err != nil {
		return path
	}
	return rel
}

func absFrom(projectPath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(projectPath), path)
}

// SetLog sets the alignment log path (relative to project).
func (p *File) SetLog(projectPath, logPath string) {
	p.LogPath = relTo(projectPath, logPath)
	p.Modified = time.Now()
}

// SetModel sets the fiducial model path (relative to project).
func (p *File) SetModel(projectPath, modelPath string) {
	p.ModelPath = relTo(projectPath, modelPath)
	p.Modified = time.Now()
}

// AddImages appends section images, in section order.
func (p *File) AddImages(projectPath string, paths ...string) {
	for _, path := range paths {
		p.ImagePaths = append(p.ImagePaths, relTo(projectPath, path))
	}
	p.Modified = time.Now()
}

// GetLogPath returns the absolute path to the alignment log.
func (p *File) GetLogPath(projectPath string) string {
	return absFrom(projectPath, p.LogPath)
}

// GetModelPath returns the absolute path to the model file.
func (p *File) GetModelPath(projectPath string) string {
	if p.ModelPath == "" {
		// Default: project_name_fid.json
		base := projectPath[:len(projectPath)-len(filepath.Ext(projectPath))]
		return base + "_fid.json"
	}
	return absFrom(projectPath, p.ModelPath)
}

// GetImagePaths returns the absolute paths of the section images.
func (p *File) GetImagePaths(projectPath string) []string {
	out := make([]string, len(p.ImagePaths))
	for i, path := range p.ImagePaths {
		out[i] = absFrom(projectPath, path)
	}
	return out
}
