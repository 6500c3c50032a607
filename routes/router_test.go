package routes

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/config"
	"goblog/middleware"
	"goblog/models"
	"goblog/utils"
)

var (
	testDB     *gorm.DB
	testRouter *gin.Engine

	// Session cookie of the first registered account, which is the
	// administrator. Set once in TestMain and reused by the admin tests.
	adminCookie *http.Cookie
)

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "goblog-test-*")
	if err != nil {
		panic(err)
	}

	os.Setenv("SESSION_SECRET", "router-test-secret")
	os.Setenv("DATABASE_URI", filepath.Join(tmp, "blog.db"))
	os.Setenv("GIN_MODE", "test")
	os.Setenv("GIN_PATH", filepath.Join(tmp, "gin.log"))
	os.Setenv("LOG_PATH", filepath.Join(tmp, "app.log"))
	os.Setenv("RATE_LIMIT_PER_MINUTE", "1000")
	// Disable registration throttles so tests can sign up rapidly.
	os.Setenv("REGISTER_ATTEMPT_COOLDOWN_SEC", "0")
	os.Setenv("REGISTER_MAX_PER_IP_PER_DAY", "0")
	os.Setenv("REGISTER_FAILED_MAX_PER_IP_PER_HOUR", "0")

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	testDB = config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{}, &models.PageView{})
	testRouter = SetupRouter(testDB, "../templates")

	adminCookie = mustRegister("admin@example.com", "Admin", "password1")

	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func doRequest(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	testRouter.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

// flashMessage returns the decoded flash notice set on the response, or "".
func flashMessage(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.MaxAge > 0 {
			msg, err := url.QueryUnescape(c.Value)
			if err != nil {
				return c.Value
			}
			return msg
		}
	}
	return ""
}

func registerForm(email, name, password string) url.Values {
	return url.Values{
		"email":    {email},
		"name":     {name},
		"password": {password},
	}
}

func mustRegister(email, name, password string) *http.Cookie {
	w := doRequest(http.MethodPost, "/register", registerForm(email, name, password))
	if w.Code != http.StatusSeeOther {
		panic("register " + email + ": unexpected status " + strconv.Itoa(w.Code))
	}
	c := sessionCookie(w)
	if c == nil {
		panic("register " + email + ": no session cookie")
	}
	return c
}

func register(t *testing.T, email, name, password string) *http.Cookie {
	t.Helper()
	w := doRequest(http.MethodPost, "/register", registerForm(email, name, password))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("register %s: status = %d, want %d", email, w.Code, http.StatusSeeOther)
	}
	c := sessionCookie(w)
	if c == nil {
		t.Fatalf("register %s: no session cookie in response", email)
	}
	return c
}

func login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(http.MethodPost, "/login", url.Values{
		"email":    {email},
		"password": {password},
	})
}

func createPost(t *testing.T, cookie *http.Cookie, title string) *models.Post {
	t.Helper()
	w := doRequest(http.MethodPost, "/new-post", url.Values{
		"title":    {title},
		"subtitle": {"a subtitle"},
		"body":     {"<p>some body text</p>"},
	}, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("create post %q: status = %d, want %d", title, w.Code, http.StatusSeeOther)
	}
	var post models.Post
	if err := testDB.Where("title = ?", title).First(&post).Error; err != nil {
		t.Fatalf("create post %q: not found in store: %v", title, err)
	}
	return &post
}

func TestRegisterDuplicateEmail(t *testing.T) {
	register(t, "dup@example.com", "First", "password1")

	var before int64
	testDB.Model(&models.User{}).Count(&before)

	w := doRequest(http.MethodPost, "/register", registerForm("dup@example.com", "Second", "password2"))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("duplicate register: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("duplicate register: redirect = %q, want /login", loc)
	}
	if got := flashMessage(w); !strings.Contains(got, "already signed up") {
		t.Fatalf("duplicate register: flash = %q", got)
	}
	if sessionCookie(w) != nil {
		t.Fatal("duplicate register: session cookie must not be issued")
	}

	var after int64
	testDB.Model(&models.User{}).Count(&after)
	if after != before {
		t.Fatalf("duplicate register: user count changed %d -> %d", before, after)
	}
}

func TestRegisterAcceptsAnyPasswordLength(t *testing.T) {
	// No strength policy: hashing is the only treatment a password gets.
	w := doRequest(http.MethodPost, "/register", registerForm("short@example.com", "Shorty", "pw1"))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("short password register: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if sessionCookie(w) == nil {
		t.Fatal("short password register: no session cookie issued")
	}
	var count int64
	testDB.Model(&models.User{}).Where("email = ?", "short@example.com").Count(&count)
	if count != 1 {
		t.Fatalf("short password register: %d user rows, want 1", count)
	}

	if w := login(t, "short@example.com", "pw1"); w.Code != http.StatusSeeOther || sessionCookie(w) == nil {
		t.Fatalf("short password login: status = %d, cookie = %v", w.Code, sessionCookie(w))
	}
}

func TestLoginResolvesIdentityPerRequest(t *testing.T) {
	w := login(t, "admin@example.com", "password1")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("login: no session cookie")
	}

	home := doRequest(http.MethodGet, "/", nil, cookie)
	if home.Code != http.StatusOK {
		t.Fatalf("home: status = %d", home.Code)
	}
	if !strings.Contains(home.Body.String(), "Hello, Admin") {
		t.Fatal("home: logged-in greeting missing")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	wrongPw := login(t, "admin@example.com", "not-the-password")
	wrongEmail := login(t, "nobody@example.com", "whatever1")

	for name, w := range map[string]*httptest.ResponseRecorder{
		"wrong password": wrongPw,
		"unknown email":  wrongEmail,
	} {
		if w.Code != http.StatusSeeOther {
			t.Fatalf("%s: status = %d, want %d", name, w.Code, http.StatusSeeOther)
		}
		if loc := w.Header().Get("Location"); loc != "/login" {
			t.Fatalf("%s: redirect = %q, want /login", name, loc)
		}
		if sessionCookie(w) != nil {
			t.Fatalf("%s: session cookie must not be issued", name)
		}
		if flashMessage(w) == "" {
			t.Fatalf("%s: flash notice missing", name)
		}
	}
}

func TestAdminGate(t *testing.T) {
	userCookie := register(t, "plain@example.com", "Plain", "password1")

	for _, path := range []string{"/new-post", "/edit-post/1", "/delete/1"} {
		if w := doRequest(http.MethodGet, path, nil); w.Code != http.StatusForbidden {
			t.Fatalf("anonymous GET %s: status = %d, want %d", path, w.Code, http.StatusForbidden)
		}
		if w := doRequest(http.MethodGet, path, nil, userCookie); w.Code != http.StatusForbidden {
			t.Fatalf("non-admin GET %s: status = %d, want %d", path, w.Code, http.StatusForbidden)
		}
	}

	w := doRequest(http.MethodPost, "/new-post", url.Values{
		"title": {"Forbidden Post"},
		"body":  {"body"},
	}, userCookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin POST /new-post: status = %d, want %d", w.Code, http.StatusForbidden)
	}
	var count int64
	testDB.Model(&models.Post{}).Where("title = ?", "Forbidden Post").Count(&count)
	if count != 0 {
		t.Fatal("non-admin POST /new-post: post was created")
	}

	if w := doRequest(http.MethodGet, "/new-post", nil, adminCookie); w.Code != http.StatusOK {
		t.Fatalf("admin GET /new-post: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCreatePostTitleUnique(t *testing.T) {
	createPost(t, adminCookie, "Unique Title")

	w := doRequest(http.MethodPost, "/new-post", url.Values{
		"title": {"Unique Title"},
		"body":  {"different body"},
	}, adminCookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("duplicate title: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/new-post" {
		t.Fatalf("duplicate title: redirect = %q, want /new-post", loc)
	}
	if got := flashMessage(w); !strings.Contains(got, "already exists") {
		t.Fatalf("duplicate title: flash = %q", got)
	}

	var count int64
	testDB.Model(&models.Post{}).Where("title = ?", "Unique Title").Count(&count)
	if count != 1 {
		t.Fatalf("duplicate title: %d posts stored, want 1", count)
	}
}

func TestShowPostUnknownID(t *testing.T) {
	for _, path := range []string{"/post/999999", "/post/abc"} {
		if w := doRequest(http.MethodGet, path, nil); w.Code != http.StatusNotFound {
			t.Fatalf("GET %s: status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
	if w := doRequest(http.MethodGet, "/edit-post/999999", nil, adminCookie); w.Code != http.StatusNotFound {
		t.Fatalf("edit unknown post: status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := doRequest(http.MethodGet, "/delete/999999", nil, adminCookie); w.Code != http.StatusNotFound {
		t.Fatalf("delete unknown post: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAnonymousCommentRedirectsToLogin(t *testing.T) {
	post := createPost(t, adminCookie, "Comment Target")
	path := "/post/" + strconv.Itoa(int(post.ID))

	show := doRequest(http.MethodGet, path, nil)
	if show.Code != http.StatusOK {
		t.Fatalf("GET %s: status = %d", path, show.Code)
	}
	if !strings.Contains(show.Body.String(), "No comments yet.") {
		t.Fatal("fresh post should have no comments")
	}

	w := doRequest(http.MethodPost, path, url.Values{"text": {"anonymous comment"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("anonymous comment: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("anonymous comment: redirect = %q, want /login", loc)
	}
	if got := flashMessage(w); !strings.Contains(got, "login or register") {
		t.Fatalf("anonymous comment: flash = %q", got)
	}

	var count int64
	testDB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	if count != 0 {
		t.Fatal("anonymous comment was persisted")
	}
}

func TestCommentSanitizedAndShown(t *testing.T) {
	commenter := register(t, "commenter@example.com", "Commenter", "password1")
	post := createPost(t, adminCookie, "Sanitize Target")
	path := "/post/" + strconv.Itoa(int(post.ID))

	w := doRequest(http.MethodPost, path, url.Values{
		"text": {`<b>bold</b><script>alert("x")</script>`},
	}, commenter)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("comment: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != path {
		t.Fatalf("comment: redirect = %q, want %q", loc, path)
	}

	var comment models.Comment
	if err := testDB.Where("post_id = ?", post.ID).First(&comment).Error; err != nil {
		t.Fatalf("comment not stored: %v", err)
	}
	if strings.Contains(comment.Text, "<script>") {
		t.Fatalf("comment text not sanitized: %q", comment.Text)
	}
	if !strings.Contains(comment.Text, "<b>bold</b>") {
		t.Fatalf("benign markup stripped: %q", comment.Text)
	}

	show := doRequest(http.MethodGet, path, nil)
	if !strings.Contains(show.Body.String(), "Commenter") {
		t.Fatal("comment author missing from post page")
	}
}

func TestEmptyCommentRejected(t *testing.T) {
	commenter := register(t, "empty@example.com", "Empty", "password1")
	post := createPost(t, adminCookie, "Empty Comment Target")
	path := "/post/" + strconv.Itoa(int(post.ID))

	w := doRequest(http.MethodPost, path, url.Values{"text": {"   "}}, commenter)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty comment: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var count int64
	testDB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	if count != 0 {
		t.Fatal("empty comment was persisted")
	}
}

func TestEditPreservesDateAndReassignsAuthor(t *testing.T) {
	register(t, "other-author@example.com", "Other", "password1")

	var otherUser models.User
	if err := testDB.Where("email = ?", "other-author@example.com").First(&otherUser).Error; err != nil {
		t.Fatalf("load other user: %v", err)
	}

	post := createPost(t, adminCookie, "Edit Target")
	originalDate := post.Date
	path := "/edit-post/" + strconv.Itoa(int(post.ID))

	w := doRequest(http.MethodPost, path, url.Values{
		"title":     {"Edit Target (revised)"},
		"subtitle":  {"new subtitle"},
		"body":      {"<p>revised body</p>"},
		"author_id": {strconv.Itoa(int(otherUser.ID))},
	}, adminCookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("edit: status = %d, want %d", w.Code, http.StatusSeeOther)
	}

	var updated models.Post
	if err := testDB.First(&updated, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if updated.Title != "Edit Target (revised)" {
		t.Fatalf("title = %q", updated.Title)
	}
	if updated.Date != originalDate {
		t.Fatalf("date changed by edit: %q -> %q", originalDate, updated.Date)
	}
	if updated.AuthorID != otherUser.ID {
		t.Fatalf("author = %d, want %d", updated.AuthorID, otherUser.ID)
	}

	// Reassigning to a user that does not exist is rejected.
	w = doRequest(http.MethodPost, path, url.Values{
		"title":     {"Edit Target (revised)"},
		"body":      {"body"},
		"author_id": {"999999"},
	}, adminCookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("edit with unknown author: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteCascadesComments(t *testing.T) {
	commenter := register(t, "cascade@example.com", "Cascade", "password1")
	post := createPost(t, adminCookie, "Cascade Target")
	path := "/post/" + strconv.Itoa(int(post.ID))

	for _, text := range []string{"first", "second"} {
		if w := doRequest(http.MethodPost, path, url.Values{"text": {text}}, commenter); w.Code != http.StatusSeeOther {
			t.Fatalf("comment %q: status = %d", text, w.Code)
		}
	}

	w := doRequest(http.MethodGet, "/delete/"+strconv.Itoa(int(post.ID)), nil, adminCookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("delete: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Fatalf("delete: redirect = %q, want /", loc)
	}

	var posts, comments int64
	testDB.Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts)
	testDB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	if posts != 0 {
		t.Fatal("post still present after delete")
	}
	if comments != 0 {
		t.Fatalf("%d comments left dangling after delete", comments)
	}

	if w := doRequest(http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET deleted post: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	cookie := register(t, "leaver@example.com", "Leaver", "password1")

	w := doRequest(http.MethodGet, "/logout", nil, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("logout: status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Fatalf("logout: redirect = %q, want /", loc)
	}

	// Replaying the old token must come back anonymous.
	home := doRequest(http.MethodGet, "/", nil, cookie)
	if home.Code != http.StatusOK {
		t.Fatalf("home after logout: status = %d", home.Code)
	}
	if strings.Contains(home.Body.String(), "Hello, Leaver") {
		t.Fatal("revoked session still resolves to a user")
	}
}

func TestTamperedSessionIsAnonymous(t *testing.T) {
	cookie := register(t, "tamper@example.com", "Tamper", "password1")
	forged := &http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"}

	home := doRequest(http.MethodGet, "/", nil, forged)
	if home.Code != http.StatusOK {
		t.Fatalf("home with forged cookie: status = %d", home.Code)
	}
	if strings.Contains(home.Body.String(), "Hello, Tamper") {
		t.Fatal("forged session cookie resolved to a user")
	}
}

func TestStaticPagesAndStats(t *testing.T) {
	for _, path := range []string{"/about", "/contact"} {
		if w := doRequest(http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Fatalf("GET %s: status = %d", path, w.Code)
		}
	}

	w := doRequest(http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /stats: status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("GET /stats: content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "users") {
		t.Fatal("GET /stats: users counter missing")
	}
}

func TestUnknownRouteRenders404(t *testing.T) {
	w := doRequest(http.MethodGet, "/no-such-page", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
