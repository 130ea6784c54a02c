package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/event"
	"github.com/bamsammich/blockio/internal/stats"
)

func TestEngine_TransformAllTags(t *testing.T) {
	for _, tag := range []string{"crt", "std", "win", "winmap"} {
		t.Run(tag, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "src.bin")
			dst := filepath.Join(dir, "dst.bin")
			data := writeRandom(t, src, 300_001)

			reporter, events := collectEvents(t)
			e := New(Config{Reporter: reporter})

			res, err := e.Transform(tag, backend.Job{Src: src, Dst: dst, BlockSize: 64 * 1024}, backend.Copy)
			require.NoError(t, err)
			assert.Equal(t, int64(5), res.Blocks)

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			assert.Empty(t, findTmpFiles(t, dir))

			assert.Equal(t, []event.Type{event.JobStarted, event.JobCompleted}, eventTypes(events()))

			snap := e.Stats()
			assert.Equal(t, int64(1), snap.JobsRun)
			assert.Zero(t, snap.JobsFailed)
			assert.Equal(t, int64(300_001), snap.Bytes)
		})
	}
}

func TestEngine_UnknownTag(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandom(t, src, 100)

	reporter, events := collectEvents(t)
	e := New(Config{Reporter: reporter, Lock: true})

	_, err := e.Transform("fastest", backend.Job{Src: src, Dst: dst, BlockSize: 16}, backend.Copy)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrUnknownBackend)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nothing is created for an unknown backend")

	evs := events()
	require.Len(t, evs, 1)
	assert.Equal(t, event.JobFailed, evs[0].Type)
	assert.Equal(t, int64(1), e.Stats().JobsFailed)
}

func TestEngine_FailureKeepsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst.bin")
	old := writeRandom(t, dst, 1000)

	reporter, events := collectEvents(t)
	e := New(Config{Reporter: reporter})

	_, err := e.Transform("winmap", backend.Job{Src: filepath.Join(dir, "missing.bin"), Dst: dst, BlockSize: 16}, backend.Copy)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrSourceNotFound)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, old, got)
	assert.Empty(t, findTmpFiles(t, dir))
	assert.Zero(t, PendingTmp())

	assert.Equal(t, []event.Type{event.JobStarted, event.JobFailed}, eventTypes(events()))
}

func TestEngine_EarlyStop(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := writeRandom(t, src, 4096*4)

	reporter, events := collectEvents(t)
	e := New(Config{Reporter: reporter})

	n := 0
	res, err := e.Transform("std", backend.Job{Src: src, Dst: dst, BlockSize: 4096}, func(in, out []byte) bool {
		n++
		if n > 2 {
			return false
		}
		return backend.Copy(in, out)
	})
	require.NoError(t, err)
	assert.True(t, res.EarlyStop)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data[:8192], got)

	evs := events()
	assert.Equal(t, []event.Type{event.JobStarted, event.EarlyStop, event.JobCompleted}, eventTypes(evs))
	assert.Equal(t, int64(2), evs[1].Blocks)
	assert.Equal(t, int64(1), e.Stats().EarlyStops)
}

func TestEngine_InPlace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := writeRandom(t, src, 5000)

	e := New(Config{InPlace: true})
	_, err := e.Transform("crt", backend.Job{Src: src, Dst: dst, BlockSize: 1024}, backend.Copy)
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = e.Transform("crt", backend.Job{Src: src, Dst: src, BlockSize: 1024}, backend.Copy)
	assert.ErrorIs(t, err, backend.ErrInvalidJob)
	got, err = os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, data, got, "source untouched")
}

func TestEngine_StagedOntoSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	data := writeRandom(t, src, 5000)

	e := New(Config{})
	_, err := e.Transform("win", backend.Job{Src: src, Dst: src, BlockSize: 1024}, backend.Invert)
	require.NoError(t, err)

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	for i := range data {
		require.Equal(t, ^data[i], got[i])
	}
}

func TestEngine_DestinationIsDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	writeRandom(t, src, 100)

	e := New(Config{})
	_, err := e.Transform("std", backend.Job{Src: src, Dst: dir, BlockSize: 16}, backend.Copy)
	assert.ErrorIs(t, err, backend.ErrDestinationUnwritable)
	assert.Empty(t, findTmpFiles(t, dir))
}

func TestEngine_LockContention(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandom(t, src, 100)

	holder := flock.New(dst + ".lock")
	held, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, held)

	e := New(Config{Lock: true})
	_, err = e.Transform("std", backend.Job{Src: src, Dst: dst, BlockSize: 16}, backend.Copy)
	assert.ErrorIs(t, err, backend.ErrDestinationUnwritable)
	assert.NoFileExists(t, dst)

	require.NoError(t, holder.Unlock())
	_, err = e.Transform("std", backend.Job{Src: src, Dst: dst, BlockSize: 16}, backend.Copy)
	require.NoError(t, err)
	assert.FileExists(t, dst)
}

func TestEngine_Checksum(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := writeRandom(t, src, 12345)

	e := New(Config{Checksum: true})
	res, err := e.Transform("winmap", backend.Job{Src: src, Dst: dst, BlockSize: 1000}, backend.Copy)
	require.NoError(t, err)
	assert.Equal(t, xxhash.Sum64(data), res.Checksum)
}

func TestEngine_Create(t *testing.T) {
	for _, tag := range []string{"crt", "std", "win", "winmap"} {
		t.Run(tag, func(t *testing.T) {
			dir := t.TempDir()
			dst := filepath.Join(dir, "created.bin")

			reporter, events := collectEvents(t)
			e := New(Config{Reporter: reporter})
			res, err := e.Create(tag, backend.CreateJob{Dst: dst, Size: 1 << 20, BlockSize: 4096}, backend.Pattern)
			require.NoError(t, err)
			assert.Equal(t, int64(256), res.Blocks)

			info, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Equal(t, int64(1<<20), info.Size())
			assert.Empty(t, findTmpFiles(t, dir))
			assert.Equal(t, []event.Type{event.JobStarted, event.JobCompleted}, eventTypes(events()))
		})
	}
}

func TestEngine_CreateInsufficientSpace(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "huge.bin")

	e := New(Config{})
	_, err := e.Create("win", backend.CreateJob{Dst: dst, Size: 1 << 60, BlockSize: 1 << 20}, backend.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrDestinationUnwritable)
	assert.NoFileExists(t, dst)
	assert.Empty(t, findTmpFiles(t, dir))
}

func TestEngine_CreateRejectsBadJobs(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{})

	_, err := e.Create("std", backend.CreateJob{Dst: filepath.Join(dir, "a"), Size: 1000, BlockSize: 300}, nil)
	assert.ErrorIs(t, err, backend.ErrInvalidJob)

	_, err = e.Create("nope", backend.CreateJob{Dst: filepath.Join(dir, "b"), Size: 1024, BlockSize: 512}, nil)
	assert.ErrorIs(t, err, backend.ErrUnknownBackend)

	_, err = e.Create("std", backend.CreateJob{Dst: filepath.Join(dir, "missing", "c"), Size: 1024, BlockSize: 512}, nil)
	assert.ErrorIs(t, err, backend.ErrDestinationUnwritable)

	assert.Equal(t, int64(3), e.Stats().JobsFailed)
}

func TestEngine_SharedCollector(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	writeRandom(t, src, 1000)

	collector := stats.NewCollector()
	a := New(Config{Stats: collector})
	b := New(Config{Stats: collector})

	_, err := a.Transform("std", backend.Job{Src: src, Dst: filepath.Join(dir, "a"), BlockSize: 100}, backend.Copy)
	require.NoError(t, err)
	_, err = b.Transform("crt", backend.Job{Src: src, Dst: filepath.Join(dir, "b"), BlockSize: 100}, backend.Copy)
	require.NoError(t, err)

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.JobsRun)
	assert.Equal(t, int64(20), snap.Blocks)
}

func TestChanReporter_NeverBlocks(t *testing.T) {
	ch := make(chan event.Event, 1)
	r := ChanReporter(ch)
	r.Report(event.Event{Type: event.JobStarted})
	r.Report(event.Event{Type: event.JobCompleted})

	require.Len(t, ch, 1)
	assert.Equal(t, event.JobStarted, (<-ch).Type)
}

func TestReporters_FanOut(t *testing.T) {
	var a, b []event.Type
	r := Reporters{
		ReporterFunc(func(e event.Event) { a = append(a, e.Type) }),
		ReporterFunc(func(e event.Event) { b = append(b, e.Type) }),
	}
	r.Report(event.Event{Type: event.CacheCleared})
	assert.Equal(t, []event.Type{event.CacheCleared}, a)
	assert.Equal(t, a, b)
}

func TestSummary(t *testing.T) {
	s := Summary(backend.Result{Method: backend.Mapped, Blocks: 4, Bytes: 4096, EarlyStop: true, ShortWrites: 2})
	assert.Contains(t, s, "winmap: 4 blocks")
	assert.Contains(t, s, "stopped early")
	assert.Contains(t, s, "2 short writes")
}

func TestCleanupTmpFiles(t *testing.T) {
	dir := t.TempDir()
	tmp := tmpPathFor(filepath.Join(dir, "out.bin"))
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o644))

	RegisterTmp(tmp)
	assert.Equal(t, 1, PendingTmp())
	CleanupTmpFiles()

	assert.NoFileExists(t, tmp)
	assert.Zero(t, PendingTmp())
}
