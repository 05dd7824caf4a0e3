package util

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMountConfig(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		want    MountConfig
		wantErr error
	}{
		{
			name: "no file",
			want: DefaultMountConfig(),
		},
		{
			name: "full file",
			path: write("full.yaml", "driver: go-fuse\nallow_other: true\nread_only: true\nsync_writes: true\nlog_level: warn\n"),
			want: MountConfig{Driver: "go-fuse", AllowOther: true, ReadOnly: true, SyncWrites: true, LogLevel: "warn"},
		},
		{
			name: "partial file keeps defaults",
			path: write("partial.yaml", "sync_writes: true\n"),
			want: MountConfig{Driver: "bazil", SyncWrites: true, LogLevel: "info"},
		},
		{
			name:    "unknown driver",
			path:    write("driver.yaml", "driver: fuse3\n"),
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "bad level",
			path:    write("level.yaml", "log_level: loud\n"),
			wantErr: ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigEnv, "")
			got, err := LoadMountConfig(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadMountConfig() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("LoadMountConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadMountConfigFromEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wfs.yaml")
	if err := os.WriteFile(p, []byte("driver: go-fuse\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigEnv, p)

	got, err := LoadMountConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Driver != "go-fuse" {
		t.Errorf("Driver = %q, want go-fuse", got.Driver)
	}
}

func TestMountConfigLevel(t *testing.T) {
	c := MountConfig{LogLevel: "error"}
	if lvl, err := c.Level(); err != nil || lvl != slog.LevelError {
		t.Errorf("Level() = %v, %v; want ERROR", lvl, err)
	}
	c.Debug = true
	if lvl, _ := c.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level() with Debug = %v, want DEBUG", lvl)
	}
}
