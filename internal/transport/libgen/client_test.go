package libgen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

const mirrorPage = `<html><body>
<div id="download">
  <h2><a href="https://direct.example/get/abc">GET</a></h2>
  <ul>
    <li><a href="https://cf.example/abc">Cloudflare</a></li>
    <li><a href="https://ipfs.example/abc">IPFS.io</a></li>
    <li><a href="https://tor.example/abc">Tor</a></li>
  </ul>
</div>
</body></html>`

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL:       srv.URL,
		MirrorBaseURL: srv.URL,
		Timeout:       5 * time.Second,
		UserAgent:     "bookdex-test",
	}, zap.NewNop())
	return c, srv
}

func TestDownloadLinks_ParsesAllMirrors(t *testing.T) {
	var gotPath string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, mirrorPage)
	}))

	links, err := c.DownloadLinks(context.Background(), topic.SciTech, "aabbccddeeff00112233445566778899")
	if err != nil {
		t.Fatalf("DownloadLinks: %v", err)
	}
	if gotPath != "/main/aabbccddeeff00112233445566778899" {
		t.Errorf("fetched path = %q", gotPath)
	}
	if links.Get != "https://direct.example/get/abc" {
		t.Errorf("Get = %q", links.Get)
	}
	if links.Cloudflare != "https://cf.example/abc" {
		t.Errorf("Cloudflare = %q", links.Cloudflare)
	}
	if links.IPFS != "https://ipfs.example/abc" {
		t.Errorf("IPFS = %q", links.IPFS)
	}
	if links.Tor != "https://tor.example/abc" {
		t.Errorf("Tor = %q", links.Tor)
	}
}

func TestDownloadLinks_FictionSection(t *testing.T) {
	var gotPath string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, mirrorPage)
	}))

	if _, err := c.DownloadLinks(context.Background(), topic.Fiction, "aabbccddeeff00112233445566778899"); err != nil {
		t.Fatalf("DownloadLinks: %v", err)
	}
	if gotPath != "/fiction/aabbccddeeff00112233445566778899" {
		t.Errorf("fetched path = %q", gotPath)
	}
}

func TestDownloadLinks_NoDirectLink(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><div id="download"><ul></ul></div></body></html>`)
	}))

	if _, err := c.DownloadLinks(context.Background(), topic.SciTech, "aabbccddeeff00112233445566778899"); err == nil {
		t.Fatal("expected error for page without a direct link")
	}
}

func TestFetch_Non200IsUpstreamDown(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.DetailPage(context.Background(), topic.SciTech, "aabbccddeeff00112233445566778899")
	if !errors.Is(err, domain.ErrUpstreamDown) {
		t.Fatalf("err = %v, want ErrUpstreamDown", err)
	}
}

func TestFetch_ConnectionErrorIsUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, MirrorBaseURL: url, Timeout: time.Second, UserAgent: "bookdex-test"}, zap.NewNop())
	_, err := c.Cover(context.Background(), "aabbccddeeff00112233445566778899")
	if !errors.Is(err, domain.ErrUpstreamDown) {
		t.Fatalf("err = %v, want ErrUpstreamDown", err)
	}
}

func TestCover_ResolvesRelativeSrc(t *testing.T) {
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><img src="/covers/abc.jpg"></body></html>`)
	}))

	got, err := c.Cover(context.Background(), "aabbccddeeff00112233445566778899")
	if err != nil {
		t.Fatalf("Cover: %v", err)
	}
	if want := srv.URL + "/covers/abc.jpg"; got != want {
		t.Errorf("cover = %q, want %q", got, want)
	}
}

func TestCover_KeepsAbsoluteSrc(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><img src="https://cdn.example/abc.jpg"></body></html>`)
	}))

	got, err := c.Cover(context.Background(), "aabbccddeeff00112233445566778899")
	if err != nil {
		t.Fatalf("Cover: %v", err)
	}
	if got != "https://cdn.example/abc.jpg" {
		t.Errorf("cover = %q", got)
	}
}

func TestFetchFile_StreamsBody(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "bookdex-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		io.WriteString(w, "file-bytes")
	}))

	body, size, err := c.FetchFile(context.Background(), c.mirrorBaseURL+"/file")
	if err != nil {
		t.Fatalf("FetchFile: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "file-bytes" {
		t.Errorf("body = %q", data)
	}
	if size != int64(len("file-bytes")) {
		t.Errorf("size = %d", size)
	}
}

func TestFetchFile_Non200(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, _, err := c.FetchFile(context.Background(), c.mirrorBaseURL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}
