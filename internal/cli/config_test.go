package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_LoadConfig_Returns_Defaults_When_No_Files_Or_Overrides_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadConfig(LoadConfigInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := DefaultConfig().DefaultLevel
	if cfg.DefaultLevel != want {
		t.Fatalf("DefaultLevel = %d, want %d", cfg.DefaultLevel, want)
	}
}

func Test_LoadConfig_Project_File_Overrides_Global_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	home := t.TempDir()

	globalDir := filepath.Join(home, ".config", "arch")
	if err := os.MkdirAll(globalDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(filepath.Join(globalDir, "config.jsonc"), []byte(`{"default_level": 3}`), 0o644); err != nil {
		t.Fatalf("WriteFile global: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{"default_level": 9}`), 0o644); err != nil {
		t.Fatalf("WriteFile project: %v", err)
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"HOME": home},
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DefaultLevel != 9 {
		t.Fatalf("DefaultLevel = %d, want 9 (project config should win over global)", cfg.DefaultLevel)
	}
}

func Test_LoadConfig_CLI_Flag_Overrides_Project_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{"default_level": 9}`), 0o644); err != nil {
		t.Fatalf("WriteFile project: %v", err)
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: dir,
		LevelOverride:   0,
		LevelSet:        true,
		Env:             map[string]string{},
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DefaultLevel != 0 {
		t.Fatalf("DefaultLevel = %d, want 0 (explicit --level=0 should win over the project file)", cfg.DefaultLevel)
	}
}

func Test_LoadConfig_Explicit_Config_Path_Must_Exist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: dir,
		ConfigPath:      "missing.jsonc",
		Env:             map[string]string{},
	})
	if err == nil {
		t.Fatalf("expected error for missing explicit config path")
	}
}

func Test_LoadConfig_Rejects_Level_Outside_Supported_Range(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{"default_level": 99}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := LoadConfig(LoadConfigInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err == nil {
		t.Fatalf("expected error for out-of-range default_level")
	}
}
