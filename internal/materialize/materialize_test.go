package materialize

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iconcollector "github.com/porticus-lab/go-icon-collector"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.NRGBA{R: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// iconServer serves a PNG for every id except "missing" (404), "html"
// (a short HTML page) and "flaky" (one 503 before succeeding).
func iconServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	body := pngBytes(t)
	var hits atomic.Int32
	var flaky atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("id") {
		case "missing":
			http.NotFound(w, r)
		case "html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>denied</html>"))
		case "flaky":
			if !flaky.Swap(true) {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fallthrough
		default:
			w.Header().Set("Content-Type", "image/png")
			w.Write(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func record(srv *httptest.Server, id, name string) iconcollector.IconRecord {
	return iconcollector.IconRecord{ID: id, Name: name, URL: srv.URL + "/?size=16&id=" + id + "&format=png"}
}

func testDownloader() *Downloader {
	return NewDownloader(WithRetries(1, time.Millisecond), WithRateLimit(0))
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		pos  int
		want string
	}{
		{"Cat face", 1, "Cat_face"},
		{"  Dog  ", 2, "__Dog"},
		{"a/b\\c:d*e?", 3, "abcde"},
		{"rock-n_roll", 4, "rock-n_roll"},
		{"Café 2", 5, "Café_2"},
		{"!!!", 6, "icon_6"},
		{"", 7, "icon_7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.name, tt.pos), tt.name)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"png": FormatPNG, "ICO": FormatICO, " both ": FormatBoth} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("svg")
	assert.Error(t, err)
	assert.Equal(t, "ico", FormatICO.String())
	assert.Equal(t, "Both PNG and ICO", FormatBoth.Label())
}

func TestFetch(t *testing.T) {
	srv, _ := iconServer(t)
	d := testDownloader()
	ctx := context.Background()

	data, err := d.Fetch(ctx, record(srv, "ok", "").URL)
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), data)

	_, err = d.Fetch(ctx, record(srv, "html", "").URL)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = d.Fetch(ctx, record(srv, "missing", "").URL)
	assert.ErrorContains(t, err, "404")
}

func TestFetch_AcceptsLargeUnlabelledBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(strings.Repeat("x", MinBodySize)))
	}))
	defer srv.Close()

	data, err := testDownloader().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, data, MinBodySize)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	srv, hits := iconServer(t)

	_, err := testDownloader().Fetch(context.Background(), record(srv, "flaky", "").URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetch_SendsHeaders(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua, accept = r.UserAgent(), r.Header.Get("Accept")
		w.Header().Set("Content-Type", "image/png")
	}))
	defer srv.Close()

	_, err := NewDownloader(WithUserAgent("collector-test")).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "collector-test", ua)
	assert.Contains(t, accept, "image/png")
}

func TestRun_ICOOnly(t *testing.T) {
	srv, _ := iconServer(t)
	out := t.TempDir()
	records := []iconcollector.IconRecord{record(srv, "A", "Cat face"), record(srv, "B", "Dog")}

	sum, err := New(out, FormatICO, testDownloader()).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Downloaded)
	assert.Equal(t, 2, sum.Converted)
	assert.Zero(t, sum.Failed)
	assert.Empty(t, sum.PNGDir)
	assert.Equal(t, filepath.Join(out, ICODirName), sum.ICODir)
	assert.ElementsMatch(t, []string{"Cat_face.ico", "Dog.ico"}, listDir(t, sum.ICODir))
	assert.NoDirExists(t, filepath.Join(out, tempDirName))
	assert.NoDirExists(t, filepath.Join(out, PNGDirName))
}

func TestRun_PNGOnly(t *testing.T) {
	srv, _ := iconServer(t)
	out := t.TempDir()

	sum, err := New(out, FormatPNG, testDownloader()).Run(context.Background(),
		[]iconcollector.IconRecord{record(srv, "A", "Cat")})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Downloaded)
	assert.Zero(t, sum.Converted)
	assert.Equal(t, []string{"Cat.png"}, listDir(t, filepath.Join(out, PNGDirName)))
	assert.NoDirExists(t, filepath.Join(out, ICODirName))
}

func TestRun_BothKeepsBoth(t *testing.T) {
	srv, _ := iconServer(t)
	out := t.TempDir()

	sum, err := New(out, FormatBoth, testDownloader()).Run(context.Background(),
		[]iconcollector.IconRecord{record(srv, "A", "Cat")})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Downloaded)
	assert.Equal(t, 1, sum.Converted)
	assert.FileExists(t, filepath.Join(out, PNGDirName, "Cat.png"))
	assert.FileExists(t, filepath.Join(out, ICODirName, "Cat.ico"))
}

func TestRun_NameCollisionsGetID(t *testing.T) {
	srv, _ := iconServer(t)
	out := t.TempDir()
	records := []iconcollector.IconRecord{
		record(srv, "A", "Cat"),
		record(srv, "B", "Cat"),
		record(srv, "C", "Cat!"),
		record(srv, "D", ""),
	}

	_, err := New(out, FormatPNG, testDownloader()).Run(context.Background(), records)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"Cat.png", "Cat_B.png", "Cat_C.png", "icon_4.png"},
		listDir(t, filepath.Join(out, PNGDirName)))
}

func TestRun_SuffixedNameAlreadyTaken(t *testing.T) {
	srv, _ := iconServer(t)
	out := t.TempDir()
	records := []iconcollector.IconRecord{
		record(srv, "A", "Cat"),
		record(srv, "Z", "Cat_B"),
		record(srv, "B", "Cat"),
		record(srv, "D", "cat"),
	}

	sum, err := New(out, FormatPNG, testDownloader()).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Downloaded)
	assert.ElementsMatch(t,
		[]string{"Cat.png", "Cat_B.png", "Cat_B_2.png", "cat_D.png"},
		listDir(t, filepath.Join(out, PNGDirName)))
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Cat", uniqueName(used, "Cat", "A"))
	assert.Equal(t, "CAT_B", uniqueName(used, "CAT", "B"))
	assert.Equal(t, "Cat_B_2", uniqueName(used, "Cat", "B"))
	assert.Equal(t, "Cat_B_3", uniqueName(used, "Cat", "B"))
}

func TestRun_FailuresAreIsolated(t *testing.T) {
	srv, _ := iconServer(t)
	out := t.TempDir()
	records := []iconcollector.IconRecord{
		record(srv, "A", "Cat"),
		record(srv, "missing", "Gone"),
		record(srv, "html", "Denied"),
		record(srv, "B", "Dog"),
	}

	var seen []int
	var failed []string
	m := New(out, FormatICO, testDownloader(), WithProgress(func(pos, total int, rec iconcollector.IconRecord, err error) {
		assert.Equal(t, 4, total)
		seen = append(seen, pos)
		if err != nil {
			failed = append(failed, rec.ID)
		}
	}))

	sum, err := m.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, seen)
	assert.Equal(t, []string{"missing", "html"}, failed)
	assert.Equal(t, 2, sum.Downloaded)
	assert.Equal(t, 2, sum.Converted)
	assert.Equal(t, 2, sum.Failed)
}

func TestRun_Cancelled(t *testing.T) {
	srv, hits := iconServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(t.TempDir(), FormatPNG, testDownloader()).Run(ctx,
		[]iconcollector.IconRecord{record(srv, "A", "Cat")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}
