package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

func doc(t *testing.T, s string) domain.Value {
	t.Helper()
	v, err := domain.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func ids(t *testing.T, docs []domain.Value) []string {
	t.Helper()
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		idVal, ok := d.Field(IDField)
		require.True(t, ok)
		id, ok := idVal.Str()
		require.True(t, ok)
		out = append(out, id)
	}
	return out
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name               string
		options            []RegistryOption
		dataDir            string
		durability         DurabilityLevel
		compactionInterval time.Duration
	}{
		{
			name:       "default options",
			options:    []RegistryOption{},
			durability: DurabilityOS,
		},
		{
			name: "custom options",
			options: []RegistryOption{
				WithDataDir("/tmp"),
				WithDurability(DurabilityFull),
				WithCompactionInterval(time.Minute),
				WithLogger(zerolog.Nop()),
			},
			dataDir:            "/tmp",
			durability:         DurabilityFull,
			compactionInterval: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.options...)

			assert.Equal(t, tt.dataDir, r.dataDir)
			assert.Equal(t, tt.durability, r.Durability())
			assert.Equal(t, tt.compactionInterval, r.compactionInterval)
			assert.NotNil(t, r.collections)
			assert.NotNil(t, r.compactor)
			assert.NotNil(t, r.stopChan)
		})
	}
}

func TestRegistry_CreateCollection(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))

	err := r.CreateCollection(domain.CollectionSpec{Name: "users"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	err = r.CreateCollection(domain.CollectionSpec{Name: ""})
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))

	err = r.CreateCollection(domain.CollectionSpec{
		Name:    "dupIndexes",
		Indexes: []domain.IndexSpec{{Name: "a", Key: "x"}, {Name: "a", Key: "y"}},
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	_, err = r.Count("dupIndexes")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "failed creation registers nothing")
}

func TestRegistry_DeleteCollection(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	_, err := r.Insert("users", "u1", doc(t, `{"name":"alice"}`))
	require.NoError(t, err)

	require.NoError(t, r.DeleteCollection("users"))

	_, err = r.Retrieve("users", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = r.DeleteCollection("users")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// The name is free again and starts empty.
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	n, err := r.Count("users")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegistry_StaleHandleAfterDelete(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))

	c, err := r.lookup("users")
	require.NoError(t, err)
	require.NoError(t, r.DeleteCollection("users"))

	_, err = c.insert("u1", doc(t, `{}`))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = c.retrieve("u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_ListCollectionsAndReset(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "orders"}))
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{
		Name:    "users",
		Indexes: []domain.IndexSpec{{Name: "byRole", Key: "role"}},
	}))
	_, err := r.Insert("users", "u1", doc(t, `{"role":"admin"}`))
	require.NoError(t, err)

	snaps := r.ListCollections()
	require.Len(t, snaps, 2)
	assert.Equal(t, "orders", snaps[0].Name)
	assert.Equal(t, "users", snaps[1].Name)
	assert.Equal(t, []domain.IndexSpec{{Name: "byRole", Key: "role"}}, snaps[1].Indexes)
	assert.Len(t, snaps[1].Documents, 1)

	r.Reset()
	assert.Empty(t, r.ListCollections())
	_, err = r.Retrieve("users", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_InsertRetrieve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))

	stored, err := r.Insert("users", "u1", doc(t, `{"name":"alice","age":30}`))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"alice","age":30,"_id":"u1"}`, stored.String())

	got, err := r.Retrieve("users", "u1")
	require.NoError(t, err)
	assert.True(t, got.Equal(stored))

	// Upsert replaces the whole document.
	_, err = r.Insert("users", "u1", doc(t, `{"name":"alice2"}`))
	require.NoError(t, err)
	got, err = r.Retrieve("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"alice2","_id":"u1"}`, got.String())

	n, err := r.Count("users")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegistry_InsertStampsCallerID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))

	stored, err := r.Insert("users", "u1", doc(t, `{"_id":"other","name":"alice"}`))
	require.NoError(t, err)
	idVal, _ := stored.Field(IDField)
	id, _ := idVal.Str()
	assert.Equal(t, "u1", id)
}

func TestRegistry_InsertErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))

	tests := []struct {
		name string
		coll string
		id   string
		doc  string
		want error
	}{
		{"missing collection", "nope", "u1", `{}`, domain.ErrNotFound},
		{"empty id", "users", "", `{}`, domain.ErrMalformedInput},
		{"array document", "users", "u1", `[1,2]`, domain.ErrMalformedInput},
		{"scalar document", "users", "u1", `"alice"`, domain.ErrMalformedInput},
		{"reserved deleted marker", "users", "u1", `{"$$deleted":true}`, domain.ErrMalformedInput},
		{"reserved index marker", "users", "u1", `{"$$indexCreated":"x"}`, domain.ErrMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Insert(tt.coll, tt.id, doc(t, tt.doc))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	n, err := r.Count("users")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	_, err := r.Insert("users", "u1", doc(t, `{"name":"alice"}`))
	require.NoError(t, err)

	removed, err := r.Delete("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"alice","_id":"u1"}`, removed.String())

	_, err = r.Retrieve("users", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = r.Delete("users", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = r.Delete("missing", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_RetrieveBulk(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	_, err := r.Insert("users", "a", doc(t, `{"n":1}`))
	require.NoError(t, err)
	_, err = r.Insert("users", "c", doc(t, `{"n":3}`))
	require.NoError(t, err)

	docs, err := r.RetrieveBulk("users", []string{"c", "b", "a", "c"})
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, `{"n":3,"_id":"c"}`, docs[0].String())
	assert.True(t, docs[1].IsNull())
	assert.Equal(t, `{"n":1,"_id":"a"}`, docs[2].String())
	assert.Equal(t, `{"n":3,"_id":"c"}`, docs[3].String())

	docs, err = r.RetrieveBulk("users", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = r.RetrieveBulk("missing", []string{"a"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_UsersByRole(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{
		Name:    "users",
		Indexes: []domain.IndexSpec{{Name: "byRole", Key: "role"}},
	}))

	for i, role := range []string{"admin", "user", "admin"} {
		_, err := r.Insert("users", fmt.Sprintf("u%d", i+1), doc(t, fmt.Sprintf(`{"role":%q}`, role)))
		require.NoError(t, err)
	}

	admins, err := r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, ids(t, admins))

	// Changing the role moves the document between buckets.
	_, err = r.Insert("users", "u1", doc(t, `{"role":"user"}`))
	require.NoError(t, err)

	admins, err = r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, ids(t, admins))

	users, err := r.RetrieveByIndex("users", "byRole", "user")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids(t, users))

	_, err = r.Delete("users", "u3")
	require.NoError(t, err)
	admins, err = r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Empty(t, admins)

	none, err := r.RetrieveByIndex("users", "byRole", "guest")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = r.RetrieveByIndex("users", "byCity", "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_CreateIndexIsNotBackfilled(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	_, err := r.Insert("users", "u1", doc(t, `{"role":"admin"}`))
	require.NoError(t, err)

	require.NoError(t, r.CreateIndex("users", domain.IndexSpec{Name: "byRole", Key: "role"}))

	admins, err := r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Empty(t, admins, "documents inserted before the index are not scanned")

	_, err = r.Insert("users", "u2", doc(t, `{"role":"admin"}`))
	require.NoError(t, err)
	admins, err = r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids(t, admins))

	err = r.CreateIndex("users", domain.IndexSpec{Name: "byRole", Key: "other"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	err = r.CreateIndex("missing", domain.IndexSpec{Name: "x", Key: "y"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	specs, err := r.Indexes("users")
	require.NoError(t, err)
	assert.Equal(t, []domain.IndexSpec{{Name: "byRole", Key: "role"}}, specs)
}

func TestRegistry_ReinsertFillsLateIndex(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	ana := doc(t, `{"_id":"u1","name":"Ana","role":"admin"}`)

	_, err := r.Insert("users", "u1", ana)
	require.NoError(t, err)
	require.NoError(t, r.CreateIndex("users", domain.IndexSpec{Name: "byRole", Key: "role"}))

	admins, err := r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Empty(t, admins)

	_, err = r.Insert("users", "u1", ana)
	require.NoError(t, err)
	admins, err = r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].Equal(ana), "got %s", admins[0])

	_, err = r.Delete("users", "u1")
	require.NoError(t, err)
	admins, err = r.RetrieveByIndex("users", "byRole", "admin")
	require.NoError(t, err)
	assert.Empty(t, admins)
}

func TestRegistry_SentinelBucket(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{
		Name:    "users",
		Indexes: []domain.IndexSpec{{Name: "byRole", Key: "role"}},
	}))
	_, err := r.Insert("users", "u1", doc(t, `{"name":"no role"}`))
	require.NoError(t, err)
	_, err = r.Insert("users", "u2", doc(t, `{"role":42}`))
	require.NoError(t, err)

	docs, err := r.RetrieveByIndex("users", "byRole", "$$none")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids(t, docs))
}

func TestRegistry_IndexConsistency(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{
		Name:    "users",
		Indexes: []domain.IndexSpec{{Name: "byRole", Key: "role"}},
	}))

	roles := []string{"admin", "user", "guest"}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("u%d", i%20)
		switch i % 4 {
		case 3:
			_, _ = r.Delete("users", id)
		default:
			_, err := r.Insert("users", id, doc(t, fmt.Sprintf(`{"role":%q}`, roles[i%3])))
			require.NoError(t, err)
		}
	}

	c, err := r.lookup("users")
	require.NoError(t, err)
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes.GetIndex("byRole")
	require.True(t, ok)

	members := 0
	for _, key := range idx.Keys() {
		for _, id := range idx.Query(key) {
			stored, exists := c.documents[id]
			require.True(t, exists, "index holds missing id %s", id)
			roleVal, _ := stored.Field("role")
			role, _ := roleVal.Str()
			assert.Equal(t, key, role)
			members++
		}
	}
	assert.Equal(t, len(c.documents), members, "every document sits in exactly one bucket")
}

func TestRegistry_LatencyRecording(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	_, err := r.Insert("users", "u1", doc(t, `{}`))
	require.NoError(t, err)

	_, err = r.Retrieve("users", "u1")
	require.NoError(t, err)
	_, err = r.Retrieve("users", "missing")
	require.Error(t, err)

	samples, err := r.LatencySnapshot("users")
	require.NoError(t, err)
	assert.Len(t, samples, 2, "misses are sampled too")

	_, err = r.LatencySnapshot("missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Bulk and index reads are not sampled.
	_, err = r.RetrieveBulk("users", []string{"u1"})
	require.NoError(t, err)
	samples, err = r.LatencySnapshot("users")
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestRegistry_LatencyRingCap(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreateCollection(domain.CollectionSpec{Name: "users"}))
	_, err := r.Insert("users", "u1", doc(t, `{}`))
	require.NoError(t, err)

	for i := 0; i < 2600; i++ {
		_, err := r.Retrieve("users", "u1")
		require.NoError(t, err)
	}

	samples, err := r.LatencySnapshot("users")
	require.NoError(t, err)
	require.Len(t, samples, LatencyRingCapacity)
	for i := 1; i < len(samples); i++ {
		assert.False(t, samples[i].Timestamp.Before(samples[i-1].Timestamp), "samples are oldest first")
	}
}
