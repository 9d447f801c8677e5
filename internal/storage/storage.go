package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OCharnyshevich/terrainstream/internal/config"
)

// Storage handles the on-disk session directory: the settings snapshot and
// chunk recordings.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	dirs := []string{
		dir,
		filepath.Join(dir, "chunks"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// ChunkDir is where chunk recordings are written.
func (s *Storage) ChunkDir() string { return filepath.Join(s.dir, "chunks") }

// LoadSettings reads settings.json into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadSettings(cfg *config.Config) error {
	path := filepath.Join(s.dir, "settings.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings: %w", err)
	}
	var snap config.Config
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("settings snapshot: %w", err)
	}
	*cfg = snap
	s.log.Info("loaded settings snapshot", "path", path, "seed", snap.Terrain.Seed)
	return nil
}

// SaveSettings writes cfg to settings.json atomically.
func (s *Storage) SaveSettings(cfg *config.Config) error {
	return atomicWriteJSON(filepath.Join(s.dir, "settings.json"), cfg)
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
