// Package natskv implements storage.Backend on a NATS JetStream KeyValue
// bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vango-dev/vstore/pkg/storage"
)

// KV is the subset of jetstream.KeyValue used by Store.
type KV interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
	ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error)
}

// Store is a JetStream KeyValue backed storage.Backend.
type Store struct {
	kv   KV
	conn *nats.Conn
}

// New wraps an existing bucket handle.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Open connects to url, creates the bucket if it does not exist and returns
// a Store that closes the connection on Close.
func Open(ctx context.Context, url, bucket string) (*Store, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect %s: %w", url, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natskv: jetstream: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "vstore persisted fields and history",
			History:     1,
		})
		if err == nil {
			slog.Default().Info("created KV bucket", "component", "natskv", "bucket", bucket)
		}
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natskv: bucket %s: %w", bucket, err)
	}

	return &Store{kv: kv, conn: conn}, nil
}

// EscapeKey maps an arbitrary key onto the NATS key alphabet
// ([-/_a-zA-Z0-9]). Other bytes, including '.' and '=', become "=XX".
func EscapeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '/', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	return b.String()
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("natskv: truncated escape in %q", s)
		}
		n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("natskv: bad escape in %q: %w", s, err)
		}
		b.WriteByte(byte(n))
		i += 2
	}
	return b.String(), nil
}

// GetItem implements storage.Backend.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.kv.Get(ctx, EscapeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.mapErr(err)
	}
	return string(entry.Value()), true, nil
}

// SetItem implements storage.Backend.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	_, err := s.kv.Put(ctx, EscapeKey(key), []byte(value))
	return s.mapErr(err)
}

// RemoveItem implements storage.Backend.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, EscapeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return s.mapErr(err)
}

// Keys implements storage.Lister.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.mapErr(err)
	}
	defer lister.Stop()

	var keys []string
	for name := range lister.Keys() {
		key, err := UnescapeKey(name)
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("%w: %v", storage.ErrClosed, err)
	}
	return err
}

// Close closes the connection when the Store opened it.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
