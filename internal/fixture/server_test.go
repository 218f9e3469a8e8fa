package fixture

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/config"
	"github.com/luispater/pagechain/internal/pages/demo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	s, err := NewServer(config.Default())
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	transport := &http.Transport{}
	client := &http.Client{Jar: jar, Transport: transport}
	t.Cleanup(func() {
		transport.CloseIdleConnections()
		ts.Close()
	})
	return ts, client
}

func parse(t *testing.T, resp *http.Response) *html.Node {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := html.Parse(resp.Body)
	require.NoError(t, err)
	return doc
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func locate(doc *html.Node, loc browser.Locator) *html.Node {
	return find(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		switch loc.By {
		case browser.ByID:
			return attr(n, "id") == loc.Criteria
		case browser.ByName:
			return attr(n, "name") == loc.Criteria
		}
		return false
	})
}

func title(doc *html.Node) string {
	n := find(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "title" })
	if n == nil || n.FirstChild == nil {
		return ""
	}
	return n.FirstChild.Data
}

func TestSitePagesCarryDemoLocators(t *testing.T) {
	ts, client := newTestServer(t)

	for _, tc := range []struct {
		path     string
		title    string
		locators []browser.Locator
	}{
		{demo.PathLoginUser, "Log In - Demo", []browser.Locator{demo.EditUserName, demo.BtnContinue}},
		{demo.PathLoginPassword, "Password - Demo", []browser.Locator{demo.EditPassword, demo.BtnLogin, demo.LoginError}},
	} {
		resp, err := client.Get(ts.URL + tc.path)
		require.NoError(t, err)
		doc := parse(t, resp)
		assert.Equal(t, tc.title, title(doc), tc.path)
		for _, loc := range tc.locators {
			assert.NotNil(t, locate(doc, loc), "%s on %s", loc, tc.path)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + demo.PathHome)
	require.NoError(t, err)
	doc := parse(t, resp)
	assert.Equal(t, "Log In - Demo", title(doc))

	resp, err = client.PostForm(ts.URL+"/login/user", url.Values{"username": {"user"}})
	require.NoError(t, err)
	doc = parse(t, resp)
	assert.Equal(t, "Password - Demo", title(doc))

	resp, err = client.PostForm(ts.URL+"/login/password", url.Values{"password": {"pass"}})
	require.NoError(t, err)
	assert.Equal(t, demo.PathHome, resp.Request.URL.Path)
	doc = parse(t, resp)
	assert.NotNil(t, locate(doc, demo.BtnProfile))

	resp, err = client.Get(ts.URL + demo.PathProfile)
	require.NoError(t, err)
	doc = parse(t, resp)
	assert.Equal(t, "Profile - Demo", title(doc))
	assert.NotNil(t, locate(doc, demo.BtnLogout))

	resp, err = client.PostForm(ts.URL+"/logout", nil)
	require.NoError(t, err)
	assert.Equal(t, demo.PathLoginUser, resp.Request.URL.Path)
	resp.Body.Close()

	resp, err = client.Get(ts.URL + demo.PathProfile)
	require.NoError(t, err)
	assert.Equal(t, demo.PathLoginUser, resp.Request.URL.Path)
	resp.Body.Close()
}

func TestRejectedPassword(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.PostForm(ts.URL+"/login/user", url.Values{"username": {"user"}})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.PostForm(ts.URL+"/login/password", url.Values{"password": {"wrong"}})
	require.NoError(t, err)
	assert.Equal(t, demo.PathLoginPassword, resp.Request.URL.Path)
	assert.Equal(t, "1", resp.Request.URL.Query().Get("error"))
	resp.Body.Close()
}

func TestRootRedirectsToLogin(t *testing.T) {
	ts, client := newTestServer(t)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, demo.PathLoginUser, resp.Header.Get("Location"))
}

func TestSiteFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loginuser.html"), []byte("<title>Custom</title>"), 0644))

	cfg := config.Default()
	cfg.Fixture.Dir = dir
	s, err := NewServer(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, demo.PathLoginUser, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Custom")

	cfg.Fixture.Dir = filepath.Join(dir, "missing")
	_, err = NewServer(cfg)
	assert.Error(t, err)
}

func TestServeAndStop(t *testing.T) {
	s, err := NewServer(config.Default())
	require.NoError(t, err)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	transport := &http.Transport{}
	client := &http.Client{Transport: transport}
	resp, err := client.Get("http://" + l.Addr().String() + demo.PathLoginUser)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "usernameOrEmail"))
	transport.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, <-done)
}
