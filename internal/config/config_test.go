package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/value"
)

const sampleYAML = `
name: prefs
storage:
  driver: file
  path: data
  timeout: 2s
persistence:
  keys: [theme, layout]
  prefix: "prefs:"
history:
  keys: [layout]
  maxLength: 10
fields:
  - name: theme
    initial: light
  - name: layout
    initial: {cols: 2, panels: [files, search]}
  - name: count
  - name: summary
    computed: 'theme + " with " + string(layout.cols) + " columns"'
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Storage.Driver != DefaultDriver {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DefaultDriver)
	}
	if cfg.Storage.Codec != DefaultCodec {
		t.Errorf("Storage.Codec = %q, want %q", cfg.Storage.Codec, DefaultCodec)
	}
	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultInspectorAddr)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir); !errors.HasCode(err, "S030") {
		t.Errorf("missing config error = %v, want S030", err)
	}

	writeConfig(t, dir, ConfigFileName, sampleYAML)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Name != "prefs" || cfg.Storage.Driver != "file" {
		t.Errorf("name %q driver %q", cfg.Name, cfg.Storage.Driver)
	}
	if cfg.StoragePath() != filepath.Join(dir, "data") {
		t.Errorf("StoragePath = %q", cfg.StoragePath())
	}
	if cfg.StorageTimeout().String() != "2s" {
		t.Errorf("StorageTimeout = %v", cfg.StorageTimeout())
	}
	if len(cfg.Fields) != 4 || cfg.Fields[3].Computed == "" {
		t.Errorf("Fields = %+v", cfg.Fields)
	}
	if cfg.History == nil || cfg.History.MaxLength != 10 {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Path() == "" || cfg.Dir() != dir {
		t.Errorf("Path %q Dir %q", cfg.Path(), cfg.Dir())
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "vstore.json", `{
  "storage": {"driver": "memory"},
  "fields": [
    {"name": "theme", "initial": "dark"},
    {"name": "sizes", "initial": [1, 2, 3]}
  ]
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, err := cfg.Fields[1].InitialValue()
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(v, value.NewSequence(value.Int(1), value.Int(2), value.Int(3))) {
		t.Errorf("sizes = %v", value.ToAny(v))
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("fields:\n  - name: a\nstorage:\n  driver: sqlite\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Path != filepath.Join(DefaultPath, "vstore.db") {
		t.Errorf("sqlite path = %q", cfg.Storage.Path)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
		want string
	}{
		{"no fields", "storage: {driver: memory}\n", "S030", "Fields"},
		{"unknown driver", "storage: {driver: redis}\nfields: [{name: a}]\n", "S031", "redis"},
		{"s3 without bucket", "storage: {driver: s3}\nfields: [{name: a}]\n", "S030", "Bucket"},
		{"nats without url", "storage: {driver: nats, bucket: b}\nfields: [{name: a}]\n", "S030", "URL"},
		{"bad timeout", "storage: {driver: memory, timeout: soon}\nfields: [{name: a}]\n", "S030", "duration"},
		{"bad codec", "storage: {driver: memory, codec: xml}\nfields: [{name: a}]\n", "S030", "Codec"},
		{"empty field name", "fields: [{name: ''}]\n", "S030", "Name"},
		{"duplicate field", "fields: [{name: a}, {name: a}]\n", "S030", "more than once"},
		{"initial and computed", "fields: [{name: a, initial: 1, computed: '2'}]\n", "S030", "both"},
		{"negative max length", "fields: [{name: a}]\nhistory: {keys: [a], maxLength: -1}\n", "S030", "MaxLength"},
		{"badger without path", "storage: {driver: badger, path: ''}\nfields: [{name: a}]\n", "", ""},
		{"not yaml", "fields: [", "S030", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.code == "" {
				if err != nil {
					t.Errorf("Parse: %v", err)
				}
				return
			}
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
			se := errors.FromError(err, tt.code)
			if !strings.Contains(se.Detail+se.Error(), tt.want) {
				t.Errorf("error %q detail %q should mention %q", se.Error(), se.Detail, tt.want)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VSTORE_DRIVER", "NATS")
	t.Setenv("VSTORE_URL", "nats://127.0.0.1:4222")
	t.Setenv("VSTORE_BUCKET", "prefs")
	t.Setenv("VSTORE_LOG_LEVEL", "DEBUG")

	cfg, err := Parse([]byte("storage: {driver: memory}\nfields: [{name: a}]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != "nats" || cfg.Storage.URL != "nats://127.0.0.1:4222" || cfg.Storage.Bucket != "prefs" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env", "VSTORE_PATH=from-dotenv\n")
	writeConfig(t, dir, ConfigFileName, "storage: {driver: file}\nfields: [{name: a}]\n")
	t.Cleanup(func() { os.Unsetenv("VSTORE_PATH") })

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Path != "from-dotenv" {
		t.Errorf("Storage.Path = %q, want value from .env", cfg.Storage.Path)
	}
}

func TestDefinitionsAndComputed(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	var s *store.Store
	defs, err := cfg.Definitions(func(name string) value.Value {
		v, _ := s.State().Value(name)
		return v
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 4 || !defs[3].IsComputed() {
		t.Fatalf("defs = %+v", defs)
	}

	s, err = store.New(defs, cfg.StoreOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := s.State().Value("count"); v != value.Null() {
		t.Errorf("count = %v, want null", v)
	}

	got, _ := s.State().Resolve("summary")
	if got != value.String("light with 2 columns") {
		t.Errorf("summary = %v", got)
	}

	_ = s.State().Set("theme", value.String("dark"))
	got, _ = s.State().Resolve("summary")
	if got != value.String("dark with 2 columns") {
		t.Errorf("summary after write = %v", got)
	}

	info, _ := s.Info("layout")
	if !info.Persisted || !info.Tracked || info.StorageKey != "prefs:layout" {
		t.Errorf("layout info = %+v", info)
	}
}

func TestComputedCompileError(t *testing.T) {
	cfg, err := Parse([]byte("fields: [{name: a, computed: '1 +'}]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Definitions(nil, nil); !errors.HasCode(err, "S030") {
		t.Errorf("Definitions error = %v, want S030", err)
	}
}

func TestSaveTo(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	again, err := LoadFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Fields) != len(cfg.Fields) || again.Fields[3].Computed != cfg.Fields[3].Computed {
		t.Errorf("fields changed: %+v", again.Fields)
	}
	v, _ := again.Fields[1].InitialValue()
	want, _ := cfg.Fields[1].InitialValue()
	if !value.Equal(v, want) {
		t.Error("initial value changed across save")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, ConfigFileName, "fields: [{name: a}]\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if gotReal, _ := filepath.EvalSymlinks(got); gotReal != want {
		t.Errorf("FindProjectRoot = %q, want %q", got, root)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists mismatch")
	}
}
