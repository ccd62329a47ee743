// Package config loads the store definition file used by the vstore CLI.
//
// The definition is stored in vstore.yaml (or vstore.yml / vstore.json) and
// declares the fields, which features apply to them and where they are
// stored.
//
// # Configuration File Structure
//
//	name: prefs
//	storage:
//	  driver: file
//	  path: ./.vstore
//	  timeout: 5s
//	persistence:
//	  keys: [theme, layout]
//	  prefix: "prefs:"
//	history:
//	  keys: [layout]
//	  useStorage: true
//	  maxLength: 50
//	fields:
//	  - name: theme
//	    initial: light
//	  - name: layout
//	    initial: {cols: 2, panels: [files, search]}
//	  - name: summary
//	    computed: 'theme + " with " + string(layout.cols) + " columns"'
//
// Environment variables VSTORE_DRIVER, VSTORE_PATH, VSTORE_DSN,
// VSTORE_BUCKET, VSTORE_URL and VSTORE_LOG_LEVEL override the file. A .env
// file next to the definition is loaded first when present.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var s *store.Store
//	defs, err := cfg.Definitions(func(name string) value.Value {
//	    v, _ := s.State().Value(name)
//	    return v
//	}, logger)
package config
