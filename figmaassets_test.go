package figmaassets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hellenic-development/figma-assets/pkg/imager"
	"github.com/hellenic-development/figma-assets/pkg/locator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iconsDocument = `{
	"name": "Design System",
	"document": {
		"id": "0:0",
		"name": "Document",
		"type": "DOCUMENT",
		"children": [
			{"id": "0:1", "name": "Cover", "type": "CANVAS", "children": []},
			{"id": "0:2", "name": "Icons", "type": "CANVAS", "children": [
				{"id": "1:1", "name": "star", "type": "COMPONENT"},
				{"id": "1:9", "name": "weather", "type": "FRAME", "children": [
					{"id": "1:2", "name": "weather/sun", "type": "COMPONENT"},
					{"id": "1:3", "name": "weather/moon", "type": "COMPONENT"}
				]}
			]}
		]
	}
}`

// fakeFigma serves the file and images endpoints plus the rendered images themselves.
type fakeFigma struct {
	server *httptest.Server

	mu         sync.Mutex
	fileQuery  map[string][]string
	imageQuery map[string][]string
	images     map[string]any // id -> URL path (string) or nil
	fileStatus int
	imgStatus  int
}

func newFakeFigma(t *testing.T) *fakeFigma {
	f := &fakeFigma{
		images: map[string]any{
			"1:1": "/render/star",
			"1:2": "/render/sun",
			"1:3": "/render/moon",
		},
		fileStatus: http.StatusOK,
		imgStatus:  http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Figma-Token"))
		f.mu.Lock()
		f.fileQuery = r.URL.Query()
		status := f.fileStatus
		f.mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, iconsDocument)
	})
	mux.HandleFunc("/v1/images/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Figma-Token"))
		f.mu.Lock()
		f.imageQuery = r.URL.Query()
		status := f.imgStatus
		images := make(map[string]any)
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if v, ok := f.images[id]; ok {
				if p, isPath := v.(string); isPath {
					images[id] = "http://" + r.Host + p
				} else {
					images[id] = nil
				}
			}
		}
		f.mu.Unlock()

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"err": nil, "images": images})
	})
	mux.HandleFunc("/render/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Figma-Token"))
		_, _ = fmt.Fprintf(w, "<svg id=%q/>", strings.TrimPrefix(r.URL.Path, "/render/"))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeFigma) setImage(id string, path any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[id] = path
}

func (f *fakeFigma) setStatus(file, images int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileStatus, f.imgStatus = file, images
}

func (f *fakeFigma) lastFileQuery() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileQuery
}

func (f *fakeFigma) lastImageQuery() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageQuery
}

func (f *fakeFigma) options(dir string) Options {
	return Options{
		AccessToken: "token",
		FileKey:     "FILE123",
		PageName:    "Icons",
		AssetsPath:  dir,
		BaseURL:     f.server.URL + "/v1",
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Infof(format string, args ...any)  { l.record("INFO", format, args...) }
func (l *recordingLogger) Warnf(format string, args ...any)  { l.record("WARN", format, args...) }
func (l *recordingLogger) Errorf(format string, args ...any) { l.record("ERROR", format, args...) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{name: "missing token", opts: Options{FileKey: "F", PageName: "P"}, wantErr: ErrMissingToken},
		{name: "missing file", opts: Options{AccessToken: "t", PageName: "P"}, wantErr: ErrMissingFileKey},
		{name: "bad format", opts: Options{AccessToken: "t", FileKey: "F", Format: "gif"}, wantErr: ErrInvalidFormat},
		{name: "negative scale", opts: Options{AccessToken: "t", FileKey: "F", Scale: -2}, wantErr: ErrInvalidScale},
		{name: "NaN scale", opts: Options{AccessToken: "t", FileKey: "F", Scale: math.NaN()}, wantErr: ErrInvalidScale},
		{name: "infinite scale", opts: Options{AccessToken: "t", FileKey: "F", Scale: math.Inf(1)}, wantErr: ErrInvalidScale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := New(Options{AccessToken: "t", FileKey: "not a key"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	e, err := New(Options{
		AccessToken: "t",
		FileKey:     "https://www.figma.com/design/mgKaQN0rrDKx9FrfbtNJE0/Icons?node-id=489-220448",
		PageName:    "All icons",
		Format:      "PNG",
	})
	require.NoError(t, err)

	opts := e.Options()
	assert.Equal(t, "png", opts.Format)
	assert.Equal(t, 1.0, opts.Scale)
	assert.Equal(t, DefaultAssetsPath, opts.AssetsPath)
	assert.Equal(t, "mgKaQN0rrDKx9FrfbtNJE0", e.FileKey())
}

func TestUsageErrorsWithoutClient(t *testing.T) {
	ctx := context.Background()
	var e Exporter

	_, err := e.GetAssets(ctx, nil)
	assert.ErrorIs(t, err, ErrNoClient)
	_, err = e.ExportAssets(ctx, nil)
	assert.ErrorIs(t, err, ErrNoClient)
	_, err = e.SaveAssets(ctx, nil)
	assert.ErrorIs(t, err, ErrNoClient)
	_, err = e.Pages(ctx)
	assert.ErrorIs(t, err, ErrNoClient)

	lookup := e.Locate(ctx, nil)
	assert.Equal(t, locator.StatusError, lookup.Status)
	assert.ErrorIs(t, lookup.Err, ErrNoClient)

	var nilExporter *Exporter
	_, err = nilExporter.GetAssets(ctx, nil)
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestGetAssetsMissingPageIsUsageError(t *testing.T) {
	f := newFakeFigma(t)
	opts := f.options(t.TempDir())
	opts.PageName = ""

	e, err := New(opts)
	require.NoError(t, err)

	_, err = e.GetAssets(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingPage)

	pages, err := e.Pages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Cover", "Icons"}, pages)
}

func TestGetAssets(t *testing.T) {
	f := newFakeFigma(t)
	e, err := New(f.options(t.TempDir()))
	require.NoError(t, err)

	assets, err := e.GetAssets(context.Background(), []string{"489:220448"})
	require.NoError(t, err)
	assert.Equal(t, []locator.Asset{
		{ID: "1:1", Name: "star"},
		{ID: "1:2", Name: "weather/sun"},
		{ID: "1:3", Name: "weather/moon"},
	}, assets)

	// ids reach the request but do not filter the assets.
	assert.Equal(t, []string{"489:220448"}, f.lastFileQuery()["ids"])
}

func TestGetAssetsSoftFailures(t *testing.T) {
	t.Run("unknown page", func(t *testing.T) {
		f := newFakeFigma(t)
		log := &recordingLogger{}
		opts := f.options(t.TempDir())
		opts.PageName = "Icon"
		opts.Logger = log

		e, err := New(opts)
		require.NoError(t, err)

		assets, err := e.GetAssets(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, assets)
		assert.True(t, log.contains(`cannot find page "Icon"`))

		lookup := e.Locate(context.Background(), nil)
		assert.Equal(t, locator.StatusError, lookup.Status)
		assert.ErrorIs(t, lookup.Err, locator.ErrPageNotFound)
	})

	t.Run("api error", func(t *testing.T) {
		f := newFakeFigma(t)
		f.setStatus(http.StatusInternalServerError, http.StatusOK)
		log := &recordingLogger{}
		opts := f.options(t.TempDir())
		opts.Logger = log

		e, err := New(opts)
		require.NoError(t, err)

		assets, err := e.GetAssets(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, assets)
		assert.True(t, log.contains("status 500"))
	})

	t.Run("empty page", func(t *testing.T) {
		f := newFakeFigma(t)
		opts := f.options(t.TempDir())
		opts.PageName = "Cover"

		e, err := New(opts)
		require.NoError(t, err)

		lookup := e.Locate(context.Background(), nil)
		assert.Equal(t, locator.StatusEmpty, lookup.Status)
		assert.NotNil(t, lookup.Assets)
	})
}

func TestExportAssets(t *testing.T) {
	f := newFakeFigma(t)
	f.setImage("1:1", nil) // render still pending

	opts := f.options(t.TempDir())
	opts.Scale = 2
	e, err := New(opts)
	require.NoError(t, err)

	results, err := e.ExportAssets(context.Background(), []locator.Asset{
		{ID: "1:1", Name: "star"},
		{ID: "1:2", Name: "sun"},
		{ID: "4:4", Name: "unknown"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, imager.ExportResult{ID: "1:1", Name: "star", Format: "svg"}, results[0])
	assert.Equal(t, f.server.URL+"/render/sun", results[1].ImageURL)
	assert.Empty(t, results[2].ImageURL)

	assert.Equal(t, []string{"1:1,1:2,4:4"}, f.lastImageQuery()["ids"])
	assert.Equal(t, []string{"svg"}, f.lastImageQuery()["format"])
	assert.Equal(t, []string{"2"}, f.lastImageQuery()["scale"])
}

func TestExportAssetsSoftFailure(t *testing.T) {
	f := newFakeFigma(t)
	f.setStatus(http.StatusOK, http.StatusBadRequest)
	log := &recordingLogger{}
	opts := f.options(t.TempDir())
	opts.Logger = log

	e, err := New(opts)
	require.NoError(t, err)

	results, err := e.ExportAssets(context.Background(), []locator.Asset{{ID: "1:1", Name: "star"}})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.True(t, log.contains("status 400"))
}

func TestExportAssetsWithoutAssets(t *testing.T) {
	f := newFakeFigma(t)
	e, err := New(f.options(t.TempDir()))
	require.NoError(t, err)

	results, err := e.ExportAssets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, sent := f.lastImageQuery()["ids"]
	assert.False(t, sent, "empty id list omits the ids parameter")
}

func TestRun(t *testing.T) {
	f := newFakeFigma(t)
	f.setImage("1:3", nil)
	dir := filepath.Join(t.TempDir(), "assets")

	result, err := Run(context.Background(), f.options(dir), nil)
	require.NoError(t, err)

	assert.Equal(t, locator.StatusOK, result.Lookup.Status)
	require.Len(t, result.Exports, 3)
	require.Len(t, result.Report.Outcomes, 3)

	star, err := os.ReadFile(filepath.Join(dir, "star.svg"))
	require.NoError(t, err)
	assert.Equal(t, `<svg id="star"/>`, string(star))

	sun, err := os.ReadFile(filepath.Join(dir, "weather", "sun.svg"))
	require.NoError(t, err)
	assert.Equal(t, `<svg id="sun"/>`, string(sun))

	failed := result.Report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "weather/moon", failed[0].Name)
	assert.True(t, errors.Is(failed[0].Err, imager.ErrMissingImageURL))
	assert.NoFileExists(t, filepath.Join(dir, "weather", "moon.svg"))
}

func TestRunUnknownPageSavesNothing(t *testing.T) {
	f := newFakeFigma(t)
	dir := filepath.Join(t.TempDir(), "assets")
	opts := f.options(dir)
	opts.PageName = "Nope"

	result, err := Run(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, locator.StatusError, result.Lookup.Status)
	assert.Empty(t, result.Exports)
	assert.Empty(t, result.Report.Outcomes)
	assert.NoDirExists(t, dir)
	assert.Nil(t, f.lastImageQuery(), "render API must not be called")
}
