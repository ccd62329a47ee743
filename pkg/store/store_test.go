package store

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/reactive"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/value"
)

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), &buf
}

func layoutValue() value.Value {
	return value.NewRecord(
		value.E("cols", value.Int(2)),
		value.E("panels", value.NewSequence(
			value.NewRecord(value.E("title", value.String("files"))),
			value.NewRecord(value.E("title", value.String("search"))),
		)),
		value.E("footer", value.NewRecord(value.E("visible", value.Bool(true)))),
	)
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	logger, _ := testLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	s, err := New([]Definition{
		Def("theme", value.String("light")),
		Def("layout", layoutValue()),
		Def("tags", value.NewSequence(value.String("a"), value.String("b"), value.String("c"))),
		Def("size", value.Int(12)),
		Def("title", value.Computed(func() value.Value { return value.String("Untitled") })),
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustGet(t *testing.T, s *Store, name string) *Ref {
	t.Helper()
	r, err := s.State().Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return r
}

func mustValue(t *testing.T, s *Store, name string) value.Value {
	t.Helper()
	v, err := s.State().Value(name)
	if err != nil {
		t.Fatalf("Value(%s): %v", name, err)
	}
	return v
}

func TestNewValidation(t *testing.T) {
	computed := value.Computed(func() value.Value { return value.Int(1) })
	defs := []Definition{Def("a", value.Int(1)), Def("c", computed)}

	tests := []struct {
		name string
		defs []Definition
		opts []Option
		code string
	}{
		{"empty name", []Definition{Def("", value.Int(1))}, nil, "S003"},
		{"duplicate", []Definition{Def("a", value.Int(1)), Def("a", value.Int(2))}, nil, "S003"},
		{"persist unknown", defs, []Option{WithPersistence(PersistenceConfig{Keys: []string{"zzz"}})}, "S004"},
		{"history unknown", defs, []Option{WithHistory(HistoryConfig{Keys: []string{"zzz"}})}, "S004"},
		{"persist computed", defs, []Option{WithPersistence(PersistenceConfig{Keys: []string{"c"}})}, "S005"},
		{"history computed", defs, []Option{WithHistory(HistoryConfig{Keys: []string{"c"}})}, "S005"},
		{"negative max length", defs, []Option{WithHistory(HistoryConfig{Keys: []string{"a"}, MaxLength: -1})}, "S003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs, tt.opts...)
			if !serrors.HasCode(err, tt.code) {
				t.Errorf("New error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestNilInitialIsNull(t *testing.T) {
	s, err := New([]Definition{{Name: "x"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v := mustValue(t, s, "x"); v != value.Null() {
		t.Errorf("x = %v, want null", v)
	}
}

func TestUnknownFieldNamesField(t *testing.T) {
	s := newTestStore(t)

	_, err := s.State().Get("missing")
	if !serrors.HasCode(err, "S001") {
		t.Fatalf("Get error = %v, want S001", err)
	}
	if !strings.Contains(err.Error(), `"missing"`) {
		t.Errorf("error should name the field: %v", err)
	}
	if err := s.State().Set("missing", value.Int(1)); !serrors.HasCode(err, "S001") {
		t.Errorf("Set error = %v, want S001", err)
	}
}

func TestSetAndRead(t *testing.T) {
	s := newTestStore(t)

	if err := s.State().Set("theme", value.String("dark")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v := mustValue(t, s, "theme"); v != value.String("dark") {
		t.Errorf("theme = %v, want dark", v)
	}
	if got := mustGet(t, s, "theme").Value(); got != value.String("dark") {
		t.Errorf("Ref value = %v", got)
	}
}

func TestGetReturnsFreshRef(t *testing.T) {
	s := newTestStore(t)
	a := mustGet(t, s, "layout")
	b := mustGet(t, s, "layout")
	if a == b {
		t.Error("each Get should return a new Ref")
	}
	if !value.Same(a.Value(), b.Value()) {
		t.Error("both refs should wrap the same backing value")
	}
}

func TestDeepWriteCopyOnWrite(t *testing.T) {
	s := newTestStore(t)
	before := mustValue(t, s, "layout")

	ref := mustGet(t, s, "layout")
	if err := ref.SetAt(value.ParsePath("panels.1.title"), value.String("find")); err != nil {
		t.Fatalf("SetAt: %v", err)
	}
	after := mustValue(t, s, "layout")

	if value.Same(before, after) {
		t.Fatal("root should be a new record")
	}
	for _, p := range []string{"panels", "panels.1"} {
		b, _ := value.GetAt(before, value.ParsePath(p))
		a, _ := value.GetAt(after, value.ParsePath(p))
		if value.Same(a, b) {
			t.Errorf("ancestor %s should be copied", p)
		}
	}
	for _, p := range []string{"footer", "panels.0", "cols"} {
		b, _ := value.GetAt(before, value.ParsePath(p))
		a, _ := value.GetAt(after, value.ParsePath(p))
		if !value.Same(a, b) {
			t.Errorf("sibling %s should be shared", p)
		}
	}

	leaf, _ := value.GetAt(after, value.ParsePath("panels.1.title"))
	if leaf != value.String("find") {
		t.Errorf("leaf = %v", leaf)
	}
	old, _ := value.GetAt(before, value.ParsePath("panels.1.title"))
	if old != value.String("search") {
		t.Errorf("old root changed: %v", old)
	}
}

func TestArrayIdentityPreserved(t *testing.T) {
	s := newTestStore(t)
	before := mustValue(t, s, "tags").(*value.Sequence)

	if err := mustGet(t, s, "tags").SetIndex(1, value.String("B")); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	after, ok := mustValue(t, s, "tags").(*value.Sequence)
	if !ok {
		t.Fatalf("tags became %T", mustValue(t, s, "tags"))
	}
	if after.Len() != before.Len() {
		t.Errorf("len = %d, want %d", after.Len(), before.Len())
	}
	if after.At(0) != before.At(0) || after.At(2) != before.At(2) {
		t.Error("other indices should be unchanged")
	}
	if after.At(1) != value.String("B") {
		t.Errorf("tags[1] = %v", after.At(1))
	}
}

func TestConsecutiveRefWritesCompose(t *testing.T) {
	s := newTestStore(t)
	ref := mustGet(t, s, "layout")

	if err := ref.SetKey("cols", value.Int(3)); err != nil {
		t.Fatal(err)
	}
	if err := ref.Key("footer").SetKey("visible", value.Bool(false)); err != nil {
		t.Fatal(err)
	}

	after := mustValue(t, s, "layout")
	cols, _ := value.GetAt(after, value.ParsePath("cols"))
	visible, _ := value.GetAt(after, value.ParsePath("footer.visible"))
	if cols != value.Int(3) || visible != value.Bool(false) {
		t.Errorf("cols = %v, visible = %v; both writes should survive", cols, visible)
	}
	if !value.Equal(ref.Value(), after) {
		t.Error("ref should hold the value it produced")
	}
}

func TestRefWriteIntoPrimitiveFails(t *testing.T) {
	s := newTestStore(t)
	before := mustValue(t, s, "layout")

	err := mustGet(t, s, "layout").SetAt(value.ParsePath("cols.x"), value.Int(1))
	if !errors.Is(err, value.ErrNotContainer) {
		t.Fatalf("error = %v, want ErrNotContainer", err)
	}
	var pe *PathError
	if !errors.As(err, &pe) || pe.Field != "layout" || pe.Path.String() != "cols.x" {
		t.Errorf("PathError = %+v", pe)
	}
	if !value.Same(before, mustValue(t, s, "layout")) {
		t.Error("failed write should not change the field")
	}

	err = mustGet(t, s, "tags").SetAt(value.ParsePath("name"), value.Int(1))
	if !errors.Is(err, value.ErrStepMismatch) {
		t.Errorf("key on sequence error = %v, want ErrStepMismatch", err)
	}
}

func TestRefAccessors(t *testing.T) {
	s := newTestStore(t)
	ref := mustGet(t, s, "layout")

	if ref.Kind() != value.KindRecord || ref.Len() != 3 {
		t.Errorf("kind %s len %d", ref.Kind(), ref.Len())
	}
	if keys := ref.Keys(); len(keys) != 3 || keys[0] != "cols" {
		t.Errorf("Keys = %v", keys)
	}
	panel := ref.At(value.ParsePath("panels.0"))
	if panel.Path().String() != "panels.0" || panel.Field() != "layout" {
		t.Errorf("path %s field %s", panel.Path(), panel.Field())
	}
	if ref.Key("panels").Len() != 2 {
		t.Errorf("panels len = %d", ref.Key("panels").Len())
	}
	if ref.Key("cols").Key("deeper").Value() != nil {
		t.Error("child of a primitive should be absent")
	}
	if ref.Key("cols").Len() != 0 || ref.Key("cols").Keys() != nil {
		t.Error("primitive has no length or keys")
	}
}

func TestComputedFieldIsReadOnly(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.SubscribeListener(reactive.Func(func() { calls++ }), "title")

	if err := s.State().Set("title", value.String("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mustGet(t, s, "title").Set(value.String("y")); err != nil {
		t.Fatalf("Ref.Set: %v", err)
	}

	got, _ := s.State().Resolve("title")
	if got != value.String("Untitled") {
		t.Errorf("title = %v, want Untitled", got)
	}
	if mustGet(t, s, "title").Resolve() != value.String("Untitled") {
		t.Error("Ref.Resolve should evaluate the thunk")
	}
	if value.KindOf(mustValue(t, s, "title")) != value.KindComputed {
		t.Error("Value should return the thunk")
	}
	if calls != 0 {
		t.Errorf("computed writes woke subscribers %d times", calls)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	err := s.State().Update("size", func(v value.Value) (value.Value, error) {
		n, _ := v.(value.Primitive).AsNumber()
		return value.Number(n + 1), nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v := mustValue(t, s, "size"); v != value.Int(13) {
		t.Errorf("size = %v, want 13", v)
	}

	boom := errors.New("boom")
	if err := s.State().Update("size", func(value.Value) (value.Value, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("Update error = %v", err)
	}
}

func TestDescribe(t *testing.T) {
	s := newTestStore(t,
		WithPersistence(PersistenceConfig{Keys: []string{"theme"}, Prefix: "app:"}),
		WithHistory(HistoryConfig{Keys: []string{"layout"}}),
	)

	infos := s.Describe()
	if len(infos) != 5 {
		t.Fatalf("Describe returned %d fields", len(infos))
	}
	if infos[0].Name != "theme" || !infos[0].Persisted || infos[0].StorageKey != "app:theme" {
		t.Errorf("theme info = %+v", infos[0])
	}
	if !infos[1].Tracked || infos[1].KindName != "record" {
		t.Errorf("layout info = %+v", infos[1])
	}
	if !infos[4].Computed {
		t.Errorf("title info = %+v", infos[4])
	}
	if _, err := s.Info("nope"); !serrors.HasCode(err, "S001") {
		t.Errorf("Info error = %v", err)
	}
	if got := s.State().Fields(); len(got) != 5 || got[4] != "title" {
		t.Errorf("Fields = %v", got)
	}
}

func TestComputedValueRejectedForPlainField(t *testing.T) {
	thunk := value.Computed(func() value.Value { return value.Int(1) })

	t.Run("state set", func(t *testing.T) {
		s := newTestStore(t)
		err := s.State().Set("size", thunk)
		if !serrors.HasCode(err, "S003") {
			t.Fatalf("Set error = %v, want S003", err)
		}
		if v := mustValue(t, s, "size"); v != value.Int(12) {
			t.Errorf("size = %v, want unchanged 12", v)
		}
	})

	t.Run("thunk inside a record", func(t *testing.T) {
		s := newTestStore(t)
		err := s.State().Set("layout", value.NewRecord(value.E("cols", thunk)))
		if !serrors.HasCode(err, "S003") {
			t.Fatalf("Set error = %v, want S003", err)
		}
	})

	t.Run("nested set", func(t *testing.T) {
		s := newTestStore(t)
		before := mustValue(t, s, "layout")
		err := mustGet(t, s, "layout").SetKey("cols", thunk)
		if !serrors.HasCode(err, "S003") {
			t.Fatalf("SetKey error = %v, want S003", err)
		}
		if !value.Same(mustValue(t, s, "layout"), before) {
			t.Error("layout changed after a rejected write")
		}
	})

	t.Run("history still saves", func(t *testing.T) {
		s := newTestStore(t,
			WithBackend(storage.NewMemory()),
			WithHistory(HistoryConfig{Keys: []string{"size"}, UseStorage: true}))
		_ = s.State().Set("size", thunk)
		if err := s.SaveHistory(); err != nil {
			t.Fatalf("SaveHistory: %v", err)
		}
	})
}
