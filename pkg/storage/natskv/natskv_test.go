package natskv

import (
	"context"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/vstore/pkg/storage"
)

var _ storage.Backend = (*Store)(nil)
var _ storage.Lister = (*Store)(nil)
var _ KV = (jetstream.KeyValue)(nil)

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

type fakeLister struct {
	ch chan string
}

func (l *fakeLister) Keys() <-chan string { return l.ch }
func (l *fakeLister) Stop() error         { return nil }

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan string, len(f.data))
	for k := range f.data {
		ch <- k
	}
	close(ch)
	return &fakeLister{ch: ch}, nil
}

func TestNATSKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeKV()
	s := New(fake)

	_, ok, err := s.GetItem(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "app:theme", `"dark"`))
	require.NoError(t, s.SetItem(ctx, "app.layout", `{}`))
	require.NoError(t, s.SetItem(ctx, "history", `{}`))
	assert.Contains(t, fake.data, "app=3Atheme")
	assert.Contains(t, fake.data, "app=2Elayout")

	v, ok, err := s.GetItem(ctx, "app:theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"dark"`, v)

	keys, err := s.Keys(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"app.layout", "app:theme"}, keys)

	require.NoError(t, s.RemoveItem(ctx, "app:theme"))
	_, ok, err = s.GetItem(ctx, "app:theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEscapeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"theme", "theme"},
		{"a/b-c_d", "a/b-c_d"},
		{"app:theme", "app=3Atheme"},
		{".hidden.", "=2Ehidden=2E"},
		{"x=y", "x=3Dy"},
		{"sp ace", "sp=20ace"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := EscapeKey(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := UnescapeKey(got)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}

	_, err := UnescapeKey("bad=4")
	assert.Error(t, err)
	_, err = UnescapeKey("bad=ZZ")
	assert.Error(t, err)
}
