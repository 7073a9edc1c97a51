package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/typedash/internal/dashboard"
	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/logger"
	"github.com/verte-zerg/typedash/internal/stats"
	"github.com/verte-zerg/typedash/internal/store"
)

const (
	scoresCSV = "user_id,diff_id,lang_id,score,accuracy,typing_count,created_at\n" +
		"1,1,1,100,0.9,200,2024-04-01T00:30:00Z\n" +
		"1,1,1,150,0.95,210,2024-04-02T01:00:00Z\n" +
		"2,2,2,80,0.8,150,2024-04-02T02:00:00Z\n"
	missesCSV = "user_id,miss_char,miss_count,created_at\n" +
		"1,a,3,2024-04-01T00:30:00Z\n" +
		"2,b,5,2024-04-02T02:00:00Z\n"
	usersCSV = "user_id,username,is_newgraduate,created_at\n" +
		"1,alice,true,2024-01-01T00:00:00Z\n" +
		"2,bob,true,2024-01-01T00:00:00Z\n"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"t_score.csv": scoresCSV,
		"t_miss.csv":  missesCSV,
		"m_user.csv":  usersCSV,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newServer(t *testing.T, dir, password string) *Server {
	t.Helper()
	srv, err := New(Config{
		Controller: &dashboard.Controller{
			Source: loader.DirSource{Dir: dir},
			Clock:  stats.DefaultClock,
			Log:    logger.Nop(),
		},
		Sessions:       dashboard.NewSessions(),
		Upload:         DirTarget{Dir: dir},
		UploadPassword: password,
		Log:            logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func get(t *testing.T, h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootRedirects(t *testing.T) {
	srv := newServer(t, seedDir(t), "")
	rec := get(t, srv.Handler(), "/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/overall" {
		t.Fatalf("expected redirect to /overall, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHealthcheckAndStatic(t *testing.T) {
	srv := newServer(t, seedDir(t), "")
	if rec := get(t, srv.Handler(), "/healthcheck"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	rec := get(t, srv.Handler(), "/static/style.css")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css") {
		t.Fatalf("unexpected static response: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec := get(t, srv.Handler(), "/static/missing.css"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTabsRender(t *testing.T) {
	srv := newServer(t, seedDir(t), "")
	cases := map[string]string{
		"/overall":   "Growth ranking",
		"/personal":  "alice",
		"/analytics": "Busiest slot",
	}
	for path, want := range cases {
		rec := get(t, srv.Handler(), path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("%s: expected %q in body", path, want)
		}
	}
}

func TestSessionCookieAndUserSelection(t *testing.T) {
	srv := newServer(t, seedDir(t), "")
	rec := get(t, srv.Handler(), "/personal")
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != sessionCookie {
		t.Fatalf("expected session cookie")
	}

	form := url.Values{"user": {"2"}, "return": {"/personal"}}
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookies[0])
	post := httptest.NewRecorder()
	srv.Handler().ServeHTTP(post, req)
	if post.Code != http.StatusSeeOther || post.Header().Get("Location") != "/personal" {
		t.Fatalf("unexpected session response: %d %q", post.Code, post.Header().Get("Location"))
	}

	rec = get(t, srv.Handler(), "/personal", cookies[0])
	if !strings.Contains(rec.Body.String(), "<h2>bob</h2>") {
		t.Fatalf("expected bob selected")
	}
}

func TestSessionRejectsBadUser(t *testing.T) {
	srv := newServer(t, seedDir(t), "")
	form := url.Values{"user": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoadFailureRendersErrorPage(t *testing.T) {
	srv := newServer(t, t.TempDir(), "")
	rec := get(t, srv.Handler(), "/overall")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected page to render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), dashboard.LoadFailedMessage) {
		t.Fatalf("expected load error message")
	}
}

func uploadRequest(t *testing.T, password string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("password", password); err != nil {
		t.Fatalf("write field: %v", err)
	}
	for table, content := range files {
		fw, err := mw.CreateFormFile(table, table+".csv")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDisabled(t *testing.T) {
	srv := newServer(t, seedDir(t), "")
	if rec := get(t, srv.Handler(), "/upload"); !strings.Contains(rec.Body.String(), "Upload disabled") {
		t.Fatalf("expected disabled notice")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "x", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUploadWrongPassword(t *testing.T) {
	srv := newServer(t, seedDir(t), "secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "nope", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUploadRejectsMissingColumns(t *testing.T) {
	dir := seedDir(t)
	srv := newServer(t, dir, "secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "secret", map[string]string{
		loader.TableScores: "user_id,score\n1,10\n",
		loader.TableMisses: missesCSV,
		loader.TableUsers:  "user_id,is_newgraduate\n1,true\n",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "diff_id, lang_id, accuracy, typing_count, created_at") {
		t.Fatalf("expected score table missing list in body")
	}
	if !strings.Contains(body, "username, created_at") {
		t.Fatalf("expected user table missing list in body")
	}
	got, err := os.ReadFile(filepath.Join(dir, "t_score.csv"))
	if err != nil || string(got) != scoresCSV {
		t.Fatalf("expected data dir untouched")
	}
}

func TestUploadReplacesTables(t *testing.T) {
	dir := seedDir(t)
	srv := newServer(t, dir, "secret")
	newUsers := "user_id,username,is_newgraduate,created_at\n1,carol,true,2024-01-01T00:00:00Z\n"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "secret", map[string]string{
		loader.TableScores: scoresCSV,
		loader.TableMisses: missesCSV,
		loader.TableUsers:  newUsers,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, err := os.ReadFile(filepath.Join(dir, "m_user.csv"))
	if err != nil || string(got) != newUsers {
		t.Fatalf("expected users replaced, got %q (%v)", got, err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".*"))
	if len(matches) != 0 {
		t.Fatalf("expected no staged files left, got %v", matches)
	}
}

func TestStoreTarget(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "typedash.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	target := StoreTarget{Store: s}
	err = target.Replace(context.Background(), map[string][]byte{
		loader.TableScores: []byte(scoresCSV),
		loader.TableMisses: []byte(missesCSV),
		loader.TableUsers:  []byte(usersCSV),
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	users, err := s.ListUsers(context.Background())
	if err != nil || len(users) != 2 {
		t.Fatalf("expected 2 users, got %d (%v)", len(users), err)
	}
	if err := target.Replace(context.Background(), map[string][]byte{}); err == nil {
		t.Fatalf("expected error for missing tables")
	}
}

func TestUnreachableStoreRendersErrorPage(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "typedash.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	srv, err := New(Config{
		Controller: &dashboard.Controller{
			Source: loader.StoreSource{Store: st},
			Clock:  stats.DefaultClock,
			Log:    logger.Nop(),
		},
		Upload: StoreTarget{Store: st},
		Log:    logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	for _, path := range []string{"/overall", "/personal", "/analytics"} {
		rec := get(t, srv.Handler(), path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), dashboard.LoadFailedMessage) {
			t.Fatalf("%s: expected load error message", path)
		}
	}
}

func TestStaticFSRequiresStylesheet(t *testing.T) {
	if _, err := staticFS(fstest.MapFS{"static/app.js": {Data: []byte("")}}); err == nil {
		t.Fatalf("expected missing style.css to fail")
	}
	sub, err := staticFS(fstest.MapFS{"static/style.css": {Data: []byte("body{}")}})
	if err != nil {
		t.Fatalf("static fs: %v", err)
	}
	if _, err := sub.Open("style.css"); err != nil {
		t.Fatalf("expected style.css to be served from the static root: %v", err)
	}
}
