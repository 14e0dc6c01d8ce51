package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/logluts/internal/history"
	"github.com/tinytelemetry/logluts/internal/model"
)

type fakeSnapshotter struct {
	path string
	data []byte
}

func (f *fakeSnapshotter) Path() string { return f.path }

func (f *fakeSnapshotter) SnapshotTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, f.data, 0644)
}

type recordingUploader struct {
	paths []string
	err   error
}

func (u *recordingUploader) UploadFile(_ context.Context, localPath string) error {
	u.paths = append(u.paths, localPath)
	return u.err
}

// steppingClock returns a clock advancing one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{path: "LUTs.csv"}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
	// nil manager is a no-op
	m.AfterAppend(context.Background())
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store Snapshotter
		cfg   Config
	}{
		{name: "nil store", store: nil, cfg: Config{Enabled: true, LocalDir: t.TempDir()}},
		{name: "empty path", store: &fakeSnapshotter{}, cfg: Config{Enabled: true, LocalDir: t.TempDir()}},
		{name: "no local dir", store: &fakeSnapshotter{path: "LUTs.csv"}, cfg: Config{Enabled: true}},
		{name: "bad bucket url", store: &fakeSnapshotter{path: "LUTs.csv"}, cfg: Config{Enabled: true, LocalDir: t.TempDir(), BucketURL: "https://bucket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.store, tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunOnce_CreatesAndPrunesLocalBackups(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	m := &Manager{
		store: &fakeSnapshotter{path: "LUTs.csv", data: []byte("commit,flops,luts,freq\n")},
		cfg:   Config{Enabled: true, LocalDir: localDir, KeepLast: 2},
		now:   steppingClock(),
	}

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := m.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
		paths = append(paths, p)
	}

	files, err := filepath.Glob(filepath.Join(localDir, "history-*.csv"))
	if err != nil {
		t.Fatalf("glob backups: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("backup files = %d, want 2", len(files))
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Errorf("oldest snapshot %s should have been pruned", paths[0])
	}
	if _, err := os.Stat(paths[2]); err != nil {
		t.Errorf("newest snapshot missing: %v", err)
	}
}

func TestRunOnce_Uploads(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	m := &Manager{
		store:    &fakeSnapshotter{path: "LUTs.csv", data: []byte("x")},
		cfg:      Config{Enabled: true, LocalDir: t.TempDir(), KeepLast: 5},
		uploader: up,
		now:      steppingClock(),
	}
	p, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(up.paths) != 1 || up.paths[0] != p {
		t.Fatalf("uploaded %v, want [%s]", up.paths, p)
	}
}

func TestAfterAppend_UploadFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	up := &recordingUploader{err: errors.New("bucket unreachable")}
	m := &Manager{
		store:    &fakeSnapshotter{path: "LUTs.csv", data: []byte("x")},
		cfg:      Config{Enabled: true, LocalDir: localDir, KeepLast: 5},
		uploader: up,
		now:      steppingClock(),
	}

	m.AfterAppend(context.Background())

	files, _ := filepath.Glob(filepath.Join(localDir, "history-*.csv"))
	if len(files) != 1 {
		t.Fatalf("local snapshots = %d, want 1", len(files))
	}
}

func TestManagerWithHistoryStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := history.New(filepath.Join(dir, "LUTs.csv"))
	if err := store.Append(model.Record{Commit: "a1", Flops: 1, LUTs: 2, FreqMHz: 3}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	m, err := NewManager(store, Config{Enabled: true, LocalDir: filepath.Join(dir, "backups")})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	p, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	snap, err := history.New(p).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll snapshot: %v", err)
	}
	if len(snap) != 1 || snap[0].Commit != "a1" {
		t.Fatalf("snapshot records = %+v", snap)
	}
}
