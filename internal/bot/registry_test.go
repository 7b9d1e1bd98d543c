package bot

import (
	"testing"
)

func TestRegistry_KeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()

	reg.Register(&stubModule{name: "music_player"})
	reg.Register(&stubModule{name: "moderation"})

	modules := reg.Modules()
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(modules))
	}
	if modules[0].Name() != "music_player" || modules[1].Name() != "moderation" {
		t.Errorf("expected [music_player moderation], got [%s %s]", modules[0].Name(), modules[1].Name())
	}
}

func TestRegistry_ModulesReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubModule{name: "music_player"})

	modules := reg.Modules()
	reg.Register(&stubModule{name: "moderation"})

	if len(modules) != 1 {
		t.Errorf("expected snapshot to have 1 module, got %d", len(modules))
	}
}

func TestRegistry_RegisterRejects(t *testing.T) {
	tests := []struct {
		name   string
		module Module
	}{
		{name: "duplicate name", module: &stubModule{name: "music_player"}},
		{name: "nil module", module: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.Register(&stubModule{name: "music_player"})

			defer func() {
				if recover() == nil {
					t.Error("expected Register to panic")
				}
				if got := len(reg.Modules()); got != 1 {
					t.Errorf("expected registry to keep 1 module, got %d", got)
				}
			}()
			reg.Register(tt.module)
		})
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	defer ResetGlobalRegistry()

	Register(&stubModule{name: "music_player"})

	modules := Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "music_player" {
		t.Errorf("expected module name %q, got %q", "music_player", modules[0].Name())
	}

	b := NewBot(&Config{DiscordToken: "test-token"})
	b.LoadModules()
	if len(b.modules) != 1 {
		t.Errorf("expected bot to load 1 module, got %d", len(b.modules))
	}
}
