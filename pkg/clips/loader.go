package clips

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed data/*.json
var embeddedClips embed.FS

// LoadEmbedded loads a clip from the embedded catalog.
func LoadEmbedded(name string) (*Clip, error) {
	filename := fmt.Sprintf("data/%s.json", name)
	data, err := embeddedClips.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return parseClipJSON(name, data)
}

// ListEmbedded returns the names of all embedded clips.
func ListEmbedded() ([]string, error) {
	entries, err := embeddedClips.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded clips: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return names, nil
}

// LoadFromFile loads a clip from a JSON file on disk. The clip name is
// the file name without extension.
func LoadFromFile(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	return parseClipJSON(name, data)
}

// LoadFromDirectory loads all clips from a directory, for custom packs.
func LoadFromDirectory(dir string) ([]*Clip, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list clip files: %w", err)
	}

	var loaded []*Clip
	for _, file := range files {
		clip, err := LoadFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		loaded = append(loaded, clip)
	}
	return loaded, nil
}

// parseClipJSON parses and validates clip JSON.
func parseClipJSON(name string, data []byte) (*Clip, error) {
	var clip Clip
	if err := json.Unmarshal(data, &clip); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidClip, name, err)
	}

	clip.Name = name
	if clip.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s has non-positive duration", ErrInvalidClip, name)
	}
	for _, tr := range clip.Tracks {
		if len(tr.Times) != len(tr.Rotations) {
			return nil, fmt.Errorf("%w: %s track %q has mismatched times and rotations",
				ErrInvalidClip, name, tr.Node)
		}
		for i := 1; i < len(tr.Times); i++ {
			if tr.Times[i] < tr.Times[i-1] {
				return nil, fmt.Errorf("%w: %s track %q has unsorted key times",
					ErrInvalidClip, name, tr.Node)
			}
		}
	}

	return &clip, nil
}
