package library

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/history"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/scan"
	"github.com/sdejongh/mediasync/pkg/storage"
)

var (
	mid2024 = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	mid2023 = time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	fs      afero.Fs
	lib     *Library
	history *history.JSONStore

	mu      sync.Mutex
	touched map[string]int
}

func newFixture(t *testing.T, backend storage.Backend, fs afero.Fs) *fixture {
	t.Helper()

	f := &fixture{fs: fs, touched: make(map[string]int)}
	f.history = history.NewJSONStore(fs, "/state/history.json", nil)

	if backend == nil {
		backend = storage.NewLocal(fs)
	}
	lib, err := New(Options{
		Backend:    backend,
		History:    f.history,
		Exclusions: scan.NewExclusions([]string{".trash"}, nil),
		OnFolderChanged: func(ctx context.Context, folder string, files int) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.touched[folder] = files
		},
	})
	require.NoError(t, err)
	f.lib = lib
	t.Cleanup(lib.Close)
	return f
}

func (f *fixture) write(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, f.fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(f.fs, path, []byte("content of "+path), 0644))
	require.NoError(t, f.fs.Chtimes(path, mod, mod))
}

func (f *fixture) exists(path string) bool {
	ok, _ := afero.Exists(f.fs, path)
	return ok
}

func importRequest() ImportRequest {
	return ImportRequest{
		Sources: []string{"/card"},
		Options: models.ImportOptions{DestFolder: "/lib", DestStructure: "{year}/{month}"},
	}
}

func TestImport_SecondRunFindsEverythingImported(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newFixture(t, nil, fs)
	f.write(t, "/card/DCIM/IMG_0001.jpg", mid2024)
	f.write(t, "/card/DCIM/IMG_0002.jpg", mid2023)
	f.write(t, "/card/.trash/IMG_0003.jpg", mid2023)
	ctx := context.Background()

	first, err := f.lib.Import(ctx, importRequest())
	require.NoError(t, err)
	require.NotNil(t, first.Report)
	assert.Equal(t, 2, first.Report.Processed)
	assert.Equal(t, models.StatusSuccess, first.Report.Status)
	assert.Equal(t, "2 to import, 0 already exist, 0 already imported", first.Summary)
	assert.ElementsMatch(t, []string{"/lib/2023/03", "/lib/2024/06"}, first.TouchedFolders)

	assert.True(t, f.exists("/lib/2024/06/IMG_0001.jpg"))
	assert.True(t, f.exists("/lib/2023/03/IMG_0002.jpg"))
	assert.False(t, f.exists("/lib/2023/03/IMG_0003.jpg"), "excluded folders are not scanned")
	assert.True(t, f.exists("/card/DCIM/IMG_0001.jpg"))

	n, err := f.lib.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// the library copies are gone, history still knows the files
	require.NoError(t, fs.RemoveAll("/lib"))

	second, err := f.lib.Import(ctx, importRequest())
	require.NoError(t, err)
	assert.Equal(t, "0 to import, 0 already exist, 2 already imported", second.Summary)
	assert.Equal(t, 0, second.Report.Processed)
	assert.Equal(t, 2, second.Report.Ignored)
	assert.Empty(t, second.TouchedFolders)
	assert.False(t, f.exists("/lib/2024/06/IMG_0001.jpg"))
}

func TestImport_ReindexesTouchedFolders(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newFixture(t, nil, fs)
	f.write(t, "/card/a.jpg", mid2024)
	f.write(t, "/card/a.xmp", mid2024)
	f.write(t, "/card/b.jpg", mid2024)

	result, err := f.lib.Import(context.Background(), importRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Report.Processed, "sidecars travel with their primary")
	assert.True(t, f.exists("/lib/2024/06/a.xmp"))

	// drain the scan-folder queue
	f.lib.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, map[string]int{"/lib/2024/06": 3}, f.touched)
}

func TestImport_DryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newFixture(t, nil, fs)
	f.write(t, "/card/a.jpg", mid2024)
	f.write(t, "/lib/2024/06/b.jpg", mid2024)
	f.write(t, "/card/b.jpg", mid2024)

	req := importRequest()
	req.DryRun = true
	result, err := f.lib.Import(context.Background(), req)
	require.NoError(t, err)

	assert.Nil(t, result.Report)
	require.NotNil(t, result.Plan)
	assert.Equal(t, map[string]int{"import": 1, "already_exists": 1}, result.Plan.Counts())
	assert.False(t, f.exists("/lib/2024/06/a.jpg"), "dry runs change nothing")

	n, err := f.lib.HistoryCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImport_Validation(t *testing.T) {
	f := newFixture(t, nil, afero.NewMemMapFs())
	ctx := context.Background()

	_, err := f.lib.Import(ctx, ImportRequest{Options: models.ImportOptions{DestFolder: "/lib"}})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Sources", verr.Field)

	_, err = f.lib.Import(ctx, ImportRequest{Sources: []string{"/card"}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "DestFolder", verr.Field)

	req := importRequest()
	req.Options.DestStructure = "{year}/{nope}"
	f.write(t, "/card/a.jpg", mid2024)
	_, err = f.lib.Import(ctx, req)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "DestStructure", verr.Field)
}

// cancellingBackend cancels a job source on its first listing
type cancellingBackend struct {
	*storage.Local
	source *cancel.Source
	once   sync.Once
}

func (b *cancellingBackend) List(ctx context.Context, folder string) ([]storage.FileInfo, []storage.FolderInfo, error) {
	b.once.Do(b.source.Cancel)
	return b.Local.List(ctx, folder)
}

func TestImport_CancelledDuringScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	source := cancel.NewJob()
	f := newFixture(t, &cancellingBackend{Local: storage.NewLocal(fs), source: source}, fs)
	f.write(t, "/card/a.jpg", mid2024)

	req := importRequest()
	req.Source = source
	_, err := f.lib.Import(context.Background(), req)
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.False(t, f.exists("/lib"))
}

// statCancelBackend cancels a job source when the analyzer stats one destination
type statCancelBackend struct {
	*storage.Local
	source *cancel.Source
	path   string
}

func (b *statCancelBackend) Stat(ctx context.Context, path string) (*storage.FileInfo, error) {
	if path == b.path {
		b.source.Cancel()
	}
	return b.Local.Stat(ctx, path)
}

func TestImport_CancelledAfterLastAnalysisPoll(t *testing.T) {
	fs := afero.NewMemMapFs()
	source := cancel.NewJob()
	backend := &statCancelBackend{
		Local:  storage.NewLocal(fs),
		source: source,
		path:   filepath.Join("/lib", "2024", "06", "IMG_0002.jpg"),
	}
	f := newFixture(t, backend, fs)
	f.write(t, "/card/IMG_0001.jpg", mid2024)
	f.write(t, "/card/IMG_0002.jpg", mid2024)

	req := importRequest()
	req.Source = source
	result, err := f.lib.Import(context.Background(), req)
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.Nil(t, result)
	assert.False(t, f.exists("/lib/2024/06/IMG_0001.jpg"))
	assert.False(t, f.exists("/lib/2024/06/IMG_0002.jpg"))

	n, err := f.lib.HistoryCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSync_CancelledDuringAnalysis(t *testing.T) {
	fs := afero.NewMemMapFs()
	source := cancel.NewJob()
	f := newFixture(t, &cancellingBackend{Local: storage.NewLocal(fs), source: source}, fs)
	f.write(t, "/local/2024/a.jpg", mid2024)
	require.NoError(t, fs.MkdirAll("/remote", 0755))

	_, err := f.lib.Sync(context.Background(), SyncRequest{
		LocalRoots: []string{"/local"},
		RemoteRoot: "/remote",
		Policy:     models.SyncPolicy{LocalToRemote: true},
		Source:     source,
	})
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.False(t, f.exists("/remote/2024/a.jpg"))
}

func TestImport_OlderDuplicateDoesNotReplaceNewer(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newFixture(t, nil, fs)
	f.write(t, "/card/a/IMG_0001.jpg", time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC))
	f.write(t, "/card/b/IMG_0001.jpg", time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	req := importRequest()
	req.Options.OverwriteIfNewer = true
	result, err := f.lib.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Report.Processed)
	assert.Equal(t, 0, result.Report.Failed)

	data, err := afero.ReadFile(fs, "/lib/2024/06/IMG_0001.jpg")
	require.NoError(t, err)
	assert.Equal(t, "content of /card/a/IMG_0001.jpg", string(data))

	n, err := f.lib.HistoryCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHistoryReset(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newFixture(t, nil, fs)
	f.write(t, "/card/a.jpg", mid2024)
	ctx := context.Background()

	_, err := f.lib.Import(ctx, importRequest())
	require.NoError(t, err)
	require.NoError(t, f.lib.ResetHistory(ctx))

	n, err := f.lib.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSync(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newFixture(t, nil, fs)
	f.write(t, "/local/2024/a.jpg", mid2024)
	f.write(t, "/remote/2024/a.jpg", mid2023)
	f.write(t, "/remote/2023/b.jpg", mid2023)
	f.write(t, "/local/same.jpg", mid2023)
	f.write(t, "/remote/same.jpg", mid2023.Add(500*time.Millisecond))

	req := SyncRequest{
		LocalRoots: []string{"/local"},
		RemoteRoot: "/remote",
		Policy:     models.SyncPolicy{LocalToRemote: true, RemoteToLocal: true},
	}

	t.Run("DryRun", func(t *testing.T) {
		dry := req
		dry.DryRun = true
		result, err := f.lib.Sync(context.Background(), dry)
		require.NoError(t, err)
		assert.Nil(t, result.Report)
		assert.Equal(t, map[string]int{"copy_remote": 1, "copy_local": 1, "none": 1}, result.Plan.Counts())
		assert.False(t, f.exists("/local/2023/b.jpg"))
	})

	t.Run("Apply", func(t *testing.T) {
		result, err := f.lib.Sync(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, result.Report)
		assert.Equal(t, 2, result.Report.Processed)
		assert.Equal(t, models.StatusSuccess, result.Report.Status)

		assert.True(t, f.exists("/local/2023/b.jpg"))
		info, err := fs.Stat("/remote/2024/a.jpg")
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mid2024), "copies keep the source modification time")
	})

	t.Run("Converged", func(t *testing.T) {
		result, err := f.lib.Sync(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Report.Processed)
		assert.Contains(t, result.Summary, "3 unchanged")
	})
}

func TestSync_Validation(t *testing.T) {
	f := newFixture(t, nil, afero.NewMemMapFs())

	_, err := f.lib.Sync(context.Background(), SyncRequest{RemoteRoot: "/r"})
	assert.Error(t, err)
	_, err = f.lib.Sync(context.Background(), SyncRequest{LocalRoots: []string{"/l"}})
	assert.Error(t, err)
}

func TestNew_RequiresBackendAndHistory(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Backend: storage.NewLocal(afero.NewMemMapFs())})
	assert.Error(t, err)
}
