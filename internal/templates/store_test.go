package templates

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir string, name string, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestStoreLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "welcome.json", `{"embeds": [{"description": "Welcome, {{user}}!"}]}`)
	writeTemplate(t, dir, "goodbye.json", `{"content": "Tot ziens"}`)
	// Non-json files are not templates
	writeTemplate(t, dir, "notes.txt", "not a template")

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	tmpl, err := store.Get("welcome")
	require.NoError(t, err)
	assert.Equal(t, "welcome", tmpl.Name)
	assert.Equal(t, "Welcome, {{user}}!", tmpl.Embeds[0].Description)
}

func TestStoreGetUnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "welcome.json", `{"content": "hoi"}`)

	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Get("missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
}

func TestStoreMalformedFileAbortsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "good.json", `{"content": "prima"}`)
	writeTemplate(t, dir, "broken.json", `{"content": `)

	_, err := NewStore(dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.File, "broken.json")
}

func TestStoreRejectsEmptyTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "empty.json", `{}`)

	_, err := NewStore(dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestStoreReloadSwapsTheSet(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "welcome.json", `{"content": "old"}`)

	store, err := NewStore(dir)
	require.NoError(t, err)

	writeTemplate(t, dir, "welcome.json", `{"content": "new"}`)
	writeTemplate(t, dir, "extra.json", `{"content": "er bij"}`)
	require.NoError(t, store.Reload())

	tmpl, err := store.Get("welcome")
	require.NoError(t, err)
	assert.Equal(t, "new", tmpl.Content)
	assert.Equal(t, 2, store.Len())
}

func TestStoreFailedReloadKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "welcome.json", `{"content": "old"}`)

	store, err := NewStore(dir)
	require.NoError(t, err)

	writeTemplate(t, dir, "welcome.json", `not json at all`)
	require.Error(t, store.Reload())

	// The previous complete set keeps serving
	tmpl, err := store.Get("welcome")
	require.NoError(t, err)
	assert.Equal(t, "old", tmpl.Content)
}

func TestStoreConcurrentGetDuringReload(t *testing.T) {
	dir := t.TempDir()
	old := `{"embeds": [{"title": "old", "description": "old"}]}`
	new_ := `{"embeds": [{"title": "new", "description": "new"}]}`
	writeTemplate(t, dir, "status.json", old)

	store, err := NewStore(dir)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				tmpl, err := store.Get("status")
				if !assert.NoError(t, err) {
					return
				}
				// A reader sees either the old or the new template,
				// never a mix of fields
				if !assert.Equal(t, tmpl.Embeds[0].Title, tmpl.Embeds[0].Description) {
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		body := old
		if i%2 == 0 {
			body = new_
		}
		writeTemplate(t, dir, "status.json", body)
		require.NoError(t, store.Reload())
	}
	close(done)
	wg.Wait()
}
