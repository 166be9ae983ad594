package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func assertSameDocuments(t *testing.T, want, got map[string]domain.Value) {
	t.Helper()
	require.Len(t, got, len(want))
	for id, w := range want {
		g, ok := got[id]
		require.True(t, ok, "missing document %s", id)
		assert.True(t, w.Equal(g), "document %s: want %s, got %s", id, w, g)
	}
}

func TestPersistenceLog_AppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.log")
	log := NewPersistenceLog(path, DurabilityFull)
	defer log.Close()

	require.NoError(t, log.AppendUpsert(doc(t, `{"name":"alice","_id":"u1"}`)))
	require.NoError(t, log.AppendTombstone("u1"))

	assert.Equal(t, []string{
		`{"name":"alice","_id":"u1"}`,
		`{"$$deleted":true,"_id":"u1"}`,
	}, readLines(t, path))
}

func TestReplay_MissingFile(t *testing.T) {
	n, err := Replay(filepath.Join(t.TempDir(), "absent.log"), func(Record) error {
		t.Fatal("nothing to apply")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReplay_Records(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.log")
	content := strings.Join([]string{
		`{"name":"alice","_id":"u1"}`,
		``,
		`   `,
		`{"$$indexCreated":"byRole","_id":"ignored"}`,
		`{"$$deleted":true,"_id":"u1"}`,
		`{"name":"bob","_id":"u2"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	var records []Record
	n, err := Replay(path, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, records, 3)

	assert.False(t, records[0].Deleted)
	assert.Equal(t, "u1", records[0].ID)
	assert.True(t, records[1].Deleted)
	assert.Equal(t, "u1", records[1].ID)
	assert.Equal(t, "u2", records[2].ID)
	assert.Equal(t, `{"name":"bob","_id":"u2"}`, records[2].Document.String())
}

func TestReplay_MalformedLineIsFatal(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `{"name":`},
		{"not an object", `[1,2,3]`},
		{"missing id", `{"name":"alice"}`},
		{"numeric id", `{"_id":7}`},
		{"tombstone marker false", `{"$$deleted":false,"_id":"u1"}`},
		{"tombstone marker number", `{"$$deleted":1,"_id":"u1"}`},
		{"tombstone marker string", `{"$$deleted":"true","_id":"u1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "users.log")
			content := `{"_id":"u1"}` + "\n" + `{"_id":"u2"}` + "\n" + tt.line + "\n"
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			n, err := Replay(path, func(Record) error { return nil })
			require.Error(t, err)
			assert.Equal(t, 2, n)

			var replayErr *ReplayError
			require.True(t, errors.As(err, &replayErr))
			assert.Equal(t, 3, replayErr.Line)
			assert.Equal(t, path, replayErr.Path)
			assert.True(t, errors.Is(err, domain.ErrMalformedInput))
		})
	}
}

func TestReplay_LongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	big := strings.Repeat("x", 256*1024)
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"_id":"u1","blob":%q}`, big)), 0644))

	var got Record
	n, err := Replay(path, func(rec Record) error {
		got = rec
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	blob, _ := got.Document.Field("blob")
	s, _ := blob.Str()
	assert.Len(t, s, len(big))
}

func TestRegistry_ReplayRebuildsState(t *testing.T) {
	dir := t.TempDir()
	spec := domain.CollectionSpec{
		Name:    "users",
		File:    "users.log",
		Indexes: []domain.IndexSpec{{Name: "byRole", Key: "role"}},
	}

	first := NewRegistry(WithDataDir(dir))
	require.NoError(t, first.CreateCollection(spec))
	_, err := first.Insert("users", "u1", doc(t, `{"role":"admin","n":1}`))
	require.NoError(t, err)
	_, err = first.Insert("users", "u2", doc(t, `{"role":"user"}`))
	require.NoError(t, err)
	_, err = first.Insert("users", "u1", doc(t, `{"role":"user","n":2}`))
	require.NoError(t, err)
	_, err = first.Insert("users", "u3", doc(t, `{"role":"admin"}`))
	require.NoError(t, err)
	_, err = first.Delete("users", "u3")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := NewRegistry(WithDataDir(dir))
	require.NoError(t, second.CreateCollection(spec))

	n, err := second.Count("users")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u1, err := second.Retrieve("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"role":"user","n":2,"_id":"u1"}`, u1.String())

	_, err = second.Retrieve("users", "u3")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	users, err := second.RetrieveByIndex("users", "byRole", "user")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids(t, users))

	admins, err := second.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Empty(t, admins)

	assertSameDocuments(t, first.ListCollections()[0].Documents, second.ListCollections()[0].Documents)
}

func TestRegistry_ReplayIgnoresTombstoneForAbsentID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.log")
	content := `{"$$deleted":true,"_id":"ghost"}` + "\n" + `{"_id":"u1"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users", File: path}))

	n, err := r.Count("users")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegistry_ReplayFailureRegistersNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.log")
	require.NoError(t, os.WriteFile(path, []byte(`{"_id":"u1"}`+"\n"+`garbage`+"\n"), 0644))

	r := NewRegistry()
	err := r.CreateCollection(domain.CollectionSpec{Name: "users", File: path})
	require.Error(t, err)

	var replayErr *ReplayError
	require.True(t, errors.As(err, &replayErr))
	assert.Equal(t, 2, replayErr.Line)

	_, err = r.Count("users")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_AppendFailureLeavesMemoryUntouched(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "users.log")

	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users", File: blocked}))

	// A directory where the log file should be makes every append fail.
	require.NoError(t, os.Mkdir(blocked, 0755))

	_, err := r.Insert("users", "u1", doc(t, `{}`))
	assert.True(t, errors.Is(err, domain.ErrIOFailure))

	n, err := r.Count("users")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegistry_ConcurrentWritersReplayCleanly(t *testing.T) {
	dir := t.TempDir()
	spec := domain.CollectionSpec{Name: "events", File: "events.log"}

	r := NewRegistry(WithDataDir(dir))
	require.NoError(t, r.CreateCollection(spec))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				_, err := r.Insert("events", id, domain.Object(domain.Member{Key: "seq", Value: domain.Number(float64(i))}))
				assert.NoError(t, err)
				_, _ = r.Retrieve("events", id)
				if i%5 == 0 {
					_, err := r.Delete("events", id)
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, r.Close())

	replayed := NewRegistry(WithDataDir(dir))
	require.NoError(t, replayed.CreateCollection(spec))

	want, err := r.Count("events")
	require.NoError(t, err)
	got, err := replayed.Count("events")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 8*40, got)
}
