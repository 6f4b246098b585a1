package takt

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed presets/*
var presetFS embed.FS

type (
	// Preset is one ready made patch from the bank, either built in or read
	// from the user's config directory.
	Preset struct {
		Name      string
		Directory string
		User      bool
		Patch     Patch
	}

	// Bank is the collection of all available presets, sorted by name. User
	// presets with the same name as a built in one sort first.
	Bank struct {
		Presets []Preset
		Dirs    []string
	}
)

// LoadBank loads the built in presets and any user presets found under
// <UserConfigDir>/takt/presets. Files that do not parse as a patch are
// skipped; every loaded patch is clamped to valid ranges.
func LoadBank() Bank {
	var b Bank
	seenDir := make(map[string]bool)
	b.loadFromFs(presetFS, false, seenDir)
	if configDir, err := os.UserConfigDir(); err == nil {
		userPresets := filepath.Join(configDir, "takt")
		b.loadFromFs(os.DirFS(userPresets), true, seenDir)
	}
	sort.Sort(&b)
	b.Dirs = make([]string, 0, len(seenDir))
	for k := range seenDir {
		b.Dirs = append(b.Dirs, k)
	}
	sort.Strings(b.Dirs)
	return b
}

func (b *Bank) loadFromFs(fsys fs.FS, userDefined bool, seenDir map[string]bool) {
	fs.WalkDir(fsys, "presets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil
		}
		var patch Patch
		if yaml.UnmarshalStrict(data, &patch) != nil {
			return nil
		}
		patch.Clamp()
		noExt := path[:len(path)-len(filepath.Ext(path))]
		parts := strings.Split(filepath.ToSlash(noExt), "/")
		parts = parts[1:] // remove "presets" from the path
		name := filenameToPresetName(parts[len(parts)-1])
		if patch.Name == "" {
			patch.Name = name
		}
		dir := strings.Join(parts[:len(parts)-1], "/")
		if dir != "" {
			seenDir[dir] = true
		}
		b.Presets = append(b.Presets, Preset{Name: name, Directory: dir, User: userDefined, Patch: patch})
		return nil
	})
}

// Find returns a copy of the named preset's patch. The name is matched case
// insensitively, user presets first.
func (b Bank) Find(name string) (Patch, bool) {
	for _, p := range b.Presets {
		if strings.EqualFold(p.Name, name) {
			return p.Patch.Copy(), true
		}
	}
	return Patch{}, false
}

// Names returns the names of all presets, in bank order.
func (b Bank) Names() []string {
	ret := make([]string, len(b.Presets))
	for i, p := range b.Presets {
		ret[i] = p.Name
	}
	return ret
}

func filenameToPresetName(filename string) string {
	return strings.ReplaceAll(filename, "_", " ")
}

func (b *Bank) Len() int { return len(b.Presets) }
func (b *Bank) Less(i, j int) bool {
	if b.Presets[i].Name == b.Presets[j].Name {
		return b.Presets[i].User && !b.Presets[j].User
	}
	return b.Presets[i].Name < b.Presets[j].Name
}
func (b *Bank) Swap(i, j int) { b.Presets[i], b.Presets[j] = b.Presets[j], b.Presets[i] }
