package roadmap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/lightup/internal/domain"
)

// Preset is a preset course with its roadmap, as authored in YAML.
type Preset struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Roadmap     struct {
		Title string        `yaml:"title"`
		Nodes []domain.Node `yaml:"nodes"`
	} `yaml:"roadmap"`
}

// Course returns the catalogue entry of the preset.
func (p Preset) Course() domain.Course {
	return domain.Course{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		IsPreset:    true,
	}
}

// RoadmapData returns the preset roadmap bound to the preset course.
func (p Preset) RoadmapData() domain.Roadmap {
	title := p.Roadmap.Title
	if title == "" {
		title = p.Title
	}
	return domain.Roadmap{
		CourseID: p.ID,
		Title:    title,
		Nodes:    p.Roadmap.Nodes,
	}
}

// Loader loads and caches preset roadmaps from the filesystem.
type Loader struct {
	rootDir string
	presets map[string]Preset
	mu      sync.RWMutex
}

// NewLoader creates a new preset loader and loads all content under rootDir.
// A missing directory yields an empty loader.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		presets: make(map[string]Preset),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading roadmaps: %w", err)
	}

	slog.Info("preset roadmaps loaded", "courses", len(l.presets), "dir", rootDir)
	return l, nil
}

// Get returns a preset by course ID.
func (l *Loader) Get(id string) (Preset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.presets[id]
	return p, ok
}

// All returns all loaded presets ordered by title.
func (l *Loader) All() []Preset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	presets := make([]Preset, 0, len(l.presets))
	for _, p := range l.presets {
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Title < presets[j].Title
	})
	return presets
}

func (l *Loader) loadAll() error {
	if _, err := os.Stat(l.rootDir); os.IsNotExist(err) {
		slog.Warn("roadmap directory does not exist", "dir", l.rootDir)
		return nil
	}

	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadPreset(path)
		}
		return nil
	})
}

func (l *Loader) loadPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		slog.Warn("skipping invalid roadmap YAML", "path", path, "error", err)
		return nil
	}

	if p.ID == "" {
		return nil // Not a course file
	}

	if err := Validate(p.Roadmap.Nodes); err != nil {
		slog.Warn("skipping preset with invalid roadmap", "path", path, "course_id", p.ID, "error", err)
		return nil
	}

	l.mu.Lock()
	l.presets[p.ID] = p
	l.mu.Unlock()

	return nil
}
