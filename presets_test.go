package takt_test

import (
	"testing"

	"github.com/taktlab/takt"
)

func TestLoadBankBuiltins(t *testing.T) {
	bank := takt.LoadBank()
	builtins := []string{"acid", "kick", "noise hat", "soft keys", "square lead", "sub", "warm pad"}
	for _, name := range builtins {
		if _, ok := bank.Find(name); !ok {
			t.Errorf("built in preset %q not found", name)
		}
	}
	for _, preset := range bank.Presets {
		patch := preset.Patch
		if patch.MaxVoices < 1 || patch.MaxVoices > takt.MaxVoices {
			t.Errorf("preset %q has MaxVoices %d outside 1..%d", preset.Name, patch.MaxVoices, takt.MaxVoices)
		}
		if patch.Volume < 0 || patch.Volume > 1 {
			t.Errorf("preset %q has volume %v outside 0..1", preset.Name, patch.Volume)
		}
		if patch.Name == "" {
			t.Errorf("preset %q has an empty patch name", preset.Name)
		}
	}
}

func TestLoadBankSorted(t *testing.T) {
	bank := takt.LoadBank()
	names := bank.Names()
	for i := 1; i < len(names); i++ {
		if names[i] < names[i-1] {
			t.Fatalf("bank names out of order: %q before %q", names[i-1], names[i])
		}
	}
}

func TestBankFind(t *testing.T) {
	bank := takt.LoadBank()
	patch, ok := bank.Find("KICK")
	if !ok {
		t.Fatalf("Find should match case insensitively")
	}
	patch.MaxVoices = 31337
	if again, _ := bank.Find("kick"); again.MaxVoices == 31337 {
		t.Fatalf("Find should return a copy, not the bank's patch")
	}
	if _, ok := bank.Find("no such preset"); ok {
		t.Fatalf("Find returned ok for an unknown name")
	}
}

func TestBankDirs(t *testing.T) {
	bank := takt.LoadBank()
	seen := make(map[string]bool)
	for _, dir := range bank.Dirs {
		seen[dir] = true
	}
	for _, dir := range []string{"bass", "drums", "keys", "lead", "pads"} {
		if !seen[dir] {
			t.Errorf("bank is missing the %q directory", dir)
		}
	}
}
