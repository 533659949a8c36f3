// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/storage/storagetest"
	"github.com/OCAP2/portalview/pkg/core"
)

func TestBackend(t *testing.T) {
	b := New(config.MemoryConfig{})
	if err := b.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	storagetest.Run(t, b)
}

func TestCameras(t *testing.T) {
	storagetest.RunCameras(t, New(config.MemoryConfig{}), func() {})
}

func TestInitAndClose_NoSnapshot(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestLoadedContentIsACopy(t *testing.T) {
	ctx := context.Background()
	b := New(config.MemoryConfig{})
	_ = b.SaveZoneSkeleton(ctx, storagetest.Hall())
	_ = b.SaveZoneContent(ctx, storagetest.HallContent())

	got, _ := b.LoadZoneContent(ctx, "hall")
	got.Spatials[0].Description["position"] = "9,9,9"

	again, _ := b.LoadZoneContent(ctx, "hall")
	if again.Spatials[0].Description["position"] != "0,0,6" {
		t.Errorf("stored content was mutated: %v", again.Spatials[0].Description)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	for _, name := range []string{"world.json", "world.json.gz"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", name)

			b := New(config.MemoryConfig{SnapshotPath: path})
			if err := b.Init(); err != nil {
				t.Fatalf("Init on missing snapshot: %v", err)
			}
			_ = b.SaveZoneSkeleton(ctx, storagetest.Hall())
			_ = b.SaveZoneSkeleton(ctx, core.ZoneSkeleton{ID: "yard"})
			_ = b.SaveZoneContent(ctx, storagetest.HallContent())
			_ = b.SaveCamera(ctx, "main", core.Description{"eye": "0,1,0"})
			if err := b.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			if _, err := os.Stat(path); err != nil {
				t.Fatalf("snapshot not written: %v", err)
			}

			loaded := New(config.MemoryConfig{SnapshotPath: path})
			if err := loaded.Init(); err != nil {
				t.Fatalf("Init failed: %v", err)
			}

			ids := loaded.ZoneIDs()
			if len(ids) != 2 || ids[0] != "hall" || ids[1] != "yard" {
				t.Errorf("unexpected zones %v", ids)
			}
			got, err := loaded.LoadZoneContent(ctx, "hall")
			if err != nil {
				t.Fatalf("LoadZoneContent failed: %v", err)
			}
			if len(got.Spatials) != 3 || got.Spatials[1].Parent != "shelf" {
				t.Errorf("unexpected content %+v", got)
			}
			if has, _ := loaded.HasZoneContent(ctx, "yard"); has {
				t.Error("yard never had content")
			}
			cams, _ := loaded.Cameras(ctx)
			if cams["main"]["eye"] != "0,1,0" {
				t.Errorf("unexpected cameras %v", cams)
			}
		})
	}
}

func TestSnapshot_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, []byte(`{"version": 7}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(config.MemoryConfig{SnapshotPath: path}).Init(); err == nil {
		t.Error("expected an error for an unknown snapshot version")
	}

	if err := os.WriteFile(path, []byte(`not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(config.MemoryConfig{SnapshotPath: path}).Init(); err == nil {
		t.Error("expected a decode error")
	}
}
