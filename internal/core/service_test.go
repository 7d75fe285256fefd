package core

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/nemfeed/internal/config"
	"github.com/JonMunkholm/nemfeed/internal/metrics"
	"github.com/JonMunkholm/nemfeed/internal/nemweb"
)

// fakeNEMweb serves a listing at /FORECAST_HH and archives beneath it.
type fakeNEMweb struct {
	*httptest.Server
	listing     string
	listStatus  int
	archives    map[string][]byte
	contentType string
	archiveHits atomic.Int32
}

func newFakeNEMweb(t *testing.T) *fakeNEMweb {
	t.Helper()
	f := &fakeNEMweb{
		listStatus:  http.StatusOK,
		archives:    map[string][]byte{},
		contentType: "application/x-zip-compressed",
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/FORECAST_HH" {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(f.listStatus)
			fmt.Fprint(w, f.listing)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/FORECAST_HH/")
		body, ok := f.archives[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.archiveHits.Add(1)
		w.Header().Set("Content-Type", f.contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeNEMweb) upstream() config.UpstreamConfig {
	return config.UpstreamConfig{
		ListingURL:       f.URL + "/FORECAST_HH",
		ArchiveExtension: ".zip",
		ContentTypes:     []string{"application/x-zip-compressed"},
		Timeout:          5 * time.Second,
		MaxArchiveBytes:  1 << 20,
		Selection:        "listing",
		Layout:           "auto",
	}
}

func zipCSV(t *testing.T, csv string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("data.csv")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(csv)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestLatest_PicksLastArchive(t *testing.T) {
	f := newFakeNEMweb(t)
	f.listing = `<a href="old.zip">old</a><a href="new.zip">new</a>`
	f.archives["old.zip"] = zipCSV(t, "a\n0\n")
	f.archives["new.zip"] = zipCSV(t, "a,b\n1,2\n")

	reg := metrics.New()
	res, err := NewService(f.upstream(), reg).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}

	if res.Archive != f.URL+"/FORECAST_HH/new.zip" {
		t.Errorf("Archive = %q, want new.zip", res.Archive)
	}
	if res.Listed != 2 {
		t.Errorf("Listed = %d, want 2", res.Listed)
	}
	if res.FetchID == "" {
		t.Error("FetchID is empty")
	}
	if v, _ := res.Table.Rows[0].Get("b"); v != int64(2) {
		t.Errorf("b = %#v, want int64(2)", v)
	}
	if f.archiveHits.Load() != 1 {
		t.Errorf("archive requests = %d, want 1", f.archiveHits.Load())
	}
	if reg.Runs(metrics.OutcomeSuccess) != 1 {
		t.Errorf("success runs = %d, want 1", reg.Runs(metrics.OutcomeSuccess))
	}
}

func TestLatest_FilenameSelection(t *testing.T) {
	f := newFakeNEMweb(t)
	f.listing = `<a href="X_20240101003021.zip">b</a><a href="X_20240101000022.zip">a</a>`
	f.archives["X_20240101003021.zip"] = zipCSV(t, "a\n1\n")

	up := f.upstream()
	up.Selection = "filename"
	res, err := NewService(up, nil).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !strings.HasSuffix(res.Archive, "X_20240101003021.zip") {
		t.Errorf("Archive = %q, want the newest stamp", res.Archive)
	}
}

func TestLatest_NoArchives(t *testing.T) {
	f := newFakeNEMweb(t)
	f.listing = `<a href="readme.txt">readme</a>`

	reg := metrics.New()
	res, err := NewService(f.upstream(), reg).Latest(context.Background())
	if res != nil {
		t.Errorf("Latest() result = %v, want nil", res)
	}

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Stage != StageListing {
		t.Fatalf("error = %v, want listing FetchError", err)
	}
	if !errors.Is(err, ErrNoArchives) {
		t.Errorf("error = %v, want ErrNoArchives", err)
	}
	if f.archiveHits.Load() != 0 {
		t.Errorf("archive requested despite empty listing")
	}
	if reg.Runs(metrics.OutcomeNoData) != 1 {
		t.Errorf("no_data runs = %d, want 1", reg.Runs(metrics.OutcomeNoData))
	}
}

func TestLatest_ListingFailure(t *testing.T) {
	f := newFakeNEMweb(t)
	f.listStatus = http.StatusBadGateway

	_, err := NewService(f.upstream(), nil).Latest(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Stage != StageListing {
		t.Fatalf("error = %v, want listing FetchError", err)
	}
	if MapError(err).Code != "NEMWEB003" {
		t.Errorf("code = %s, want NEMWEB003", MapError(err).Code)
	}
}

func TestLatest_ArchiveFailure(t *testing.T) {
	f := newFakeNEMweb(t)
	f.listing = `<a href="a.zip">a</a>`
	f.archives["a.zip"] = zipCSV(t, "a\n1\n")
	f.contentType = "text/html"

	_, err := NewService(f.upstream(), nil).Latest(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Stage != StageArchive {
		t.Fatalf("error = %v, want archive FetchError", err)
	}
	if fe.Archive != f.URL+"/FORECAST_HH/a.zip" {
		t.Errorf("Archive = %q", fe.Archive)
	}
	if !errors.Is(err, nemweb.ErrUnexpectedContentType) {
		t.Errorf("error = %v, want ErrUnexpectedContentType", err)
	}
}

func TestLatest_MissingArchive(t *testing.T) {
	f := newFakeNEMweb(t)
	f.listing = `<a href="gone.zip">gone</a>`

	_, err := NewService(f.upstream(), nil).Latest(context.Background())

	var se *nemweb.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want 404 StatusError", err)
	}
}

func TestSetUpstream_Retargets(t *testing.T) {
	first := newFakeNEMweb(t)
	first.listing = `<a href="a.zip">a</a>`
	first.archives["a.zip"] = zipCSV(t, "src\nfirst\n")

	second := newFakeNEMweb(t)
	second.listing = `<a href="a.zip">a</a>`
	second.archives["a.zip"] = zipCSV(t, "src\nsecond\n")

	svc := NewService(first.upstream(), nil)
	svc.SetUpstream(second.upstream())

	if got := svc.Upstream().ListingURL; got != second.URL+"/FORECAST_HH" {
		t.Errorf("Upstream().ListingURL = %q, want second server", got)
	}

	res, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if v, _ := res.Table.Rows[0].Get("src"); v != "second" {
		t.Errorf("src = %v, want second", v)
	}
}
