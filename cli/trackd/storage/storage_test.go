package storage

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/locatr/trackd/cli/trackd/track"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	m.Run()
}

// mockSaver implements the Saver interface for testing.
type mockSaver struct {
	mu    sync.Mutex
	fixes []track.Fix
	err   error
}

func (ms *mockSaver) Save(fix track.Fix) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.err != nil {
		return ms.err
	}
	ms.fixes = append(ms.fixes, fix)
	return nil
}

func (ms *mockSaver) count() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.fixes)
}

// mockLoader is a Saver that can also restore state.
type mockLoader struct {
	mockSaver
	state map[string][]track.Fix
}

func (ml *mockLoader) Load(trailCap int) (map[string][]track.Fix, error) {
	return ml.state, nil
}

func testFix(ts int64) track.Fix {
	return track.Fix{DeviceID: track.DefaultDeviceID, Latitude: 40, Longitude: -3, Timestamp: ts}
}

func TestRepositorySaveFansOut(t *testing.T) {
	first := &mockSaver{}
	second := &mockSaver{}

	repo := NewRepository()
	repo.AddStore(first)
	repo.AddStore(second)

	require.NoError(t, repo.Save(testFix(1000)))

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestRepositorySaveStopsOnFirstError(t *testing.T) {
	broken := &mockSaver{err: errors.New("backend down")}
	healthy := &mockSaver{}

	repo := NewRepository()
	repo.AddStore(broken)
	repo.AddStore(healthy)

	assert.Error(t, repo.Save(testFix(1000)))
	assert.Equal(t, 0, healthy.count())
}

func TestLoadStoragesUnknownBackend(t *testing.T) {
	repo := NewRepository()
	err := repo.LoadStorages(map[string]map[string]string{
		"couchdb": {},
	})
	assert.ErrorIs(t, err, ErrUnknownStorage)
}

func TestLoadStoragesEmpty(t *testing.T) {
	repo := NewRepository()
	assert.ErrorIs(t, repo.LoadStorages(nil), ErrInvalidStorage)
}

func TestRestoreWithoutLoader(t *testing.T) {
	repo := NewRepository()
	repo.AddStore(&mockSaver{})

	state, err := repo.Restore(100)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestRestoreUsesFirstLoader(t *testing.T) {
	loader := &mockLoader{state: map[string][]track.Fix{
		track.DefaultDeviceID: {testFix(1000), testFix(2000)},
	}}

	repo := NewRepository()
	repo.AddStore(&mockSaver{})
	repo.AddStore(loader)

	state, err := repo.Restore(100)
	require.NoError(t, err)
	require.Len(t, state[track.DefaultDeviceID], 2)
}

func TestAsyncRepositorySaves(t *testing.T) {
	sink := &mockSaver{}
	repo := NewRepository()
	repo.AddStore(sink)

	async := NewAsyncRepository(repo, 8, 2)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, async.Save(testFix(i*1000)))
	}

	require.Eventually(t, func() bool { return sink.count() == 5 }, 2*time.Second, 10*time.Millisecond)

	async.Close()
	assert.Error(t, async.Save(testFix(9000)), "closed repository refuses writes")
}

func TestAsyncRepositoryCloseDrainsWorkers(t *testing.T) {
	sink := &mockSaver{}
	repo := NewRepository()
	repo.AddStore(sink)

	async := NewAsyncRepository(repo, 1, 0)
	require.NoError(t, async.Save(testFix(1000)))
	async.Close()

	// Close must not hang even with queued work and default workers.
	assert.LessOrEqual(t, sink.count(), 1)
}
