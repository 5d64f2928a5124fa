package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Store holds the loaded template set.
// The set is immutable once published; Reload builds a complete new set off
// to the side and swaps it in atomically, so concurrent Get calls see either
// the old set or the new one, never a mix
type Store struct {
	dir      string
	snapshot atomic.Pointer[map[string]Template]
}

// NewStore loads every template under dir and returns the store.
// The logical name of a template is its filename without the .json extension
func NewStore(dir string) (*Store, error) {
	store := &Store{dir: dir}
	set, err := loadDir(dir)
	if err != nil {
		return nil, err
	}
	store.snapshot.Store(&set)
	log.Info().Msg(fmt.Sprintf("Loaded %d templates from %s", len(set), dir))
	return store, nil
}

// Get returns the template with the given logical name
func (store *Store) Get(name string) (Template, error) {
	set := *store.snapshot.Load()
	tmpl, ok := set[name]
	if !ok {
		return Template{}, &NotFoundError{Name: name}
	}
	return tmpl.Clone(), nil
}

// Len returns the number of templates in the current set
func (store *Store) Len() int {
	return len(*store.snapshot.Load())
}

// Reload re-reads the templates directory and publishes the new set.
// If any file is malformed the reload aborts and the previous set stays
// in place. A render that already fetched its template keeps using the
// value it was handed, even if a reload lands while it is in flight
func (store *Store) Reload() error {
	set, err := loadDir(store.dir)
	if err != nil {
		return err
	}
	store.snapshot.Store(&set)
	log.Info().Msg(fmt.Sprintf("Reloaded %d templates from %s", len(set), store.dir))
	return nil
}

func loadDir(dir string) (map[string]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Err: err}
	}

	set := map[string]Template{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		tmpl, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		tmpl.Name = strings.TrimSuffix(entry.Name(), ".json")
		set[tmpl.Name] = tmpl
	}
	return set, nil
}

func loadFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, &LoadError{File: path, Err: err}
	}

	var tmpl Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return Template{}, &LoadError{File: path, Err: err}
	}

	// A template with no body at all cannot be dispatched
	if tmpl.Content == "" && len(tmpl.Embeds) == 0 {
		return Template{}, &LoadError{File: path, Err: fmt.Errorf("template defines neither content nor embeds")}
	}
	return tmpl, nil
}
