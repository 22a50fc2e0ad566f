package locator

import (
	"context"
	"errors"
	"github.com/getcharzp/go-cargo/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestParseRegions(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		bed   *grid.BoundingBox
		plate *grid.BoundingBox
	}{
		{
			name:  "plain",
			raw:   `{"bedBox": [0.1, 0.2, 0.9, 0.7], "plateBox": [0.4, 0.8, 0.6, 0.9]}`,
			bed:   &grid.BoundingBox{0.1, 0.2, 0.9, 0.7},
			plate: &grid.BoundingBox{0.4, 0.8, 0.6, 0.9},
		},
		{
			name: "fenced",
			raw:  "```json\n{\"bedBox\": [0.1, 0.2, 0.9, 0.7]}\n```",
			bed:  &grid.BoundingBox{0.1, 0.2, 0.9, 0.7},
		},
		{
			name: "prose",
			raw:  "Here is the result:\n{\"bedBox\": [0, 0, 1, 1], \"plateBox\": null}\nDone.",
			bed:  &grid.BoundingBox{0, 0, 1, 1},
		},
		{
			name:  "string numbers",
			raw:   `{"plateBox": ["0.4", "0.8", "0.6", "0.9"]}`,
			plate: &grid.BoundingBox{0.4, 0.8, 0.6, 0.9},
		},
		{
			name: "empty object",
			raw:  `{}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRegions(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.bed, r.BedBox)
			assert.Equal(t, tt.plate, r.PlateBox)
		})
	}
}

func TestParseRegions_DropsInvalid(t *testing.T) {
	r, err := ParseRegions(`{"bedBox": [0.9, 0.2, 0.1, 0.7], "plateBox": [0.1, 0.2, 1.5]}`)
	require.NoError(t, err)
	assert.Nil(t, r.BedBox)
	assert.Nil(t, r.PlateBox)
	assert.Contains(t, r.Dropped, "bedBox")
	assert.Contains(t, r.Dropped, "plateBox")

	r, err = ParseRegions(`{"bedBox": [0.1, 0.2, 0.9, 1.2]}`)
	require.NoError(t, err)
	assert.Nil(t, r.BedBox)

	r, err = ParseRegions(`{"bedBox": "somewhere"}`)
	require.NoError(t, err)
	assert.Nil(t, r.BedBox)
}

func TestParseRegions_Errors(t *testing.T) {
	for _, raw := range []string{"", "   ", "no json here", "```json\n```", "{not json}"} {
		_, err := ParseRegions(raw)
		assert.ErrorIs(t, err, ErrNoJSON, "%q", raw)
	}
}

type fakeLocator struct {
	regions Regions
	err     error
	calls   int
}

func (f *fakeLocator) Locate(context.Context, string) (Regions, error) {
	f.calls++
	return f.regions, f.err
}

func TestChain(t *testing.T) {
	bed := grid.BoundingBox{0.1, 0.1, 0.9, 0.9}
	plate := grid.BoundingBox{0.4, 0.8, 0.6, 0.9}

	failing := &fakeLocator{err: errors.New("boom")}
	plateOnly := &fakeLocator{regions: Regions{PlateBox: &plate}}
	full := &fakeLocator{regions: Regions{BedBox: &bed}}
	unused := &fakeLocator{regions: Regions{BedBox: &bed}}

	r, err := Chain{failing, plateOnly, full, unused}.Locate(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Equal(t, &bed, r.BedBox)
	assert.Equal(t, &plate, r.PlateBox)
	assert.Zero(t, unused.calls)

	r, err = Chain{failing, plateOnly}.Locate(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Nil(t, r.BedBox)
	assert.Equal(t, &plate, r.PlateBox)

	_, err = Chain{failing}.Locate(context.Background(), "x.png")
	assert.ErrorIs(t, err, ErrLocate)

	_, err = Chain{}.Locate(context.Background(), "x.png")
	assert.ErrorIs(t, err, ErrLocate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Chain{full}.Locate(ctx, "x.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "truck.jpg")
	require.NoError(t, os.WriteFile(p, []byte("fake image bytes"), 0o644))
	return p
}

func TestHTTP_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "fake image bytes", string(data))
		assert.Equal(t, "truck.jpg", header.Filename)

		_, _ = w.Write([]byte("```json\n{\"bedBox\": [0.1, 0.2, 0.9, 0.8]}\n```"))
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig()
	cfg.URL = srv.URL
	r, err := NewHTTP(cfg).Locate(context.Background(), writeImage(t))
	require.NoError(t, err)
	assert.Equal(t, &grid.BoundingBox{0.1, 0.2, 0.9, 0.8}, r.BedBox)
}

func TestHTTP_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	img := writeImage(t)

	_, err := NewHTTP(HTTPConfig{}).Locate(context.Background(), img)
	assert.ErrorIs(t, err, ErrLocate)

	_, err = NewHTTP(HTTPConfig{URL: srv.URL}).Locate(context.Background(), img)
	assert.ErrorIs(t, err, ErrLocate)

	_, err = NewHTTP(HTTPConfig{URL: srv.URL}).Locate(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ErrLocate)
}

func TestCLI_Args(t *testing.T) {
	c := NewCLI(CLIConfig{})
	args := c.Args("truck.jpg")
	assert.Equal(t, []string{"analyze", "--json", "--model", "gemini-3-flash-preview", "--prompt", DefaultPrompt, "truck.jpg"}, args)
	assert.Equal(t, 120*time.Second, c.config.Timeout)
}

// writeScript 写一个模拟分析命令的 shell 脚本
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("需要 /bin/sh")
	}
	p := filepath.Join(t.TempDir(), "analyzer.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func TestCLI_Locate(t *testing.T) {
	script := writeScript(t, `
[ "$1" = "analyze" ] || exit 2
[ "$2" = "--json" ] || exit 2
echo 'Sure!'
echo '`+"```json"+`'
echo '{"bedBox": [0.25, 0.3, 0.75, 0.7], "plateBox": [0.45, 0.8, 0.55, 0.85]}'
echo '`+"```"+`'`)

	r, err := NewCLI(CLIConfig{AnalyzerPath: script}).Locate(context.Background(), "truck.jpg")
	require.NoError(t, err)
	assert.Equal(t, &grid.BoundingBox{0.25, 0.3, 0.75, 0.7}, r.BedBox)
	assert.Equal(t, &grid.BoundingBox{0.45, 0.8, 0.55, 0.85}, r.PlateBox)
}

func TestCLI_Errors(t *testing.T) {
	failing := writeScript(t, "echo 'quota exceeded' >&2\nexit 1")
	_, err := NewCLI(CLIConfig{AnalyzerPath: failing}).Locate(context.Background(), "truck.jpg")
	assert.ErrorIs(t, err, ErrLocate)
	assert.Contains(t, err.Error(), "quota exceeded")

	garbage := writeScript(t, "echo 'I cannot see a truck'")
	_, err = NewCLI(CLIConfig{AnalyzerPath: garbage}).Locate(context.Background(), "truck.jpg")
	assert.ErrorIs(t, err, ErrLocate)
	assert.ErrorIs(t, err, ErrNoJSON)

	slow := writeScript(t, "exec sleep 5")
	start := time.Now()
	_, err = NewCLI(CLIConfig{AnalyzerPath: slow, Timeout: 100 * time.Millisecond}).Locate(context.Background(), "truck.jpg")
	assert.ErrorIs(t, err, ErrLocate)
	assert.Less(t, time.Since(start), 3*time.Second)

	_, err = NewCLI(CLIConfig{AnalyzerPath: filepath.Join(t.TempDir(), "missing")}).Locate(context.Background(), "truck.jpg")
	assert.ErrorIs(t, err, ErrLocate)
}
