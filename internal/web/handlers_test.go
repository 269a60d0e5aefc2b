package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pista1997/CertReg/internal/auth"
	"github.com/pista1997/CertReg/internal/certificate"
	"github.com/pista1997/CertReg/internal/config"
	"github.com/pista1997/CertReg/internal/importer"
	"github.com/pista1997/CertReg/internal/notify"
	"github.com/pista1997/CertReg/internal/store"
)

type fakeStore struct {
	certs   map[int64]certificate.Certificate
	nextID  int64
	users   map[string]store.User
	deleted []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		certs:  make(map[int64]certificate.Certificate),
		nextID: 1,
		users:  make(map[string]store.User),
	}
}

func (f *fakeStore) ListCertificates(context.Context) ([]certificate.Certificate, error) {
	out := []certificate.Certificate{}
	for _, c := range f.certs {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) CreateCertificate(_ context.Context, p store.CertificateParams) (certificate.Certificate, error) {
	c := certificate.Certificate{
		ID:           f.nextID,
		Name:         p.Name,
		ValidFrom:    p.ValidFrom,
		ExpiryDate:   p.ExpiryDate,
		EmailAddress: p.EmailAddress,
		Thumbprint:   p.Thumbprint,
	}
	f.certs[c.ID] = c
	f.nextID++
	return c, nil
}

func (f *fakeStore) UpdateCertificate(_ context.Context, id int64, p store.CertificateParams) (certificate.Certificate, error) {
	c, ok := f.certs[id]
	if !ok {
		return certificate.Certificate{}, store.ErrNotFound
	}
	c.Name = p.Name
	c.ValidFrom = p.ValidFrom
	c.ExpiryDate = p.ExpiryDate
	c.EmailAddress = p.EmailAddress
	c.NotificationSent = false
	f.certs[id] = c
	return c, nil
}

func (f *fakeStore) DeleteCertificate(_ context.Context, id int64) error {
	if _, ok := f.certs[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.certs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	u, ok := f.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateUser(_ context.Context, username, passwordHash string) (store.User, error) {
	u := store.User{ID: int64(len(f.users) + 1), Username: username, PasswordHash: passwordHash}
	f.users[username] = u
	return u, nil
}

type fakeImporter struct {
	gotProfile importer.Profile
	gotSize    int
	summary    *importer.Summary
	err        error
}

func (f *fakeImporter) Import(_ context.Context, data []byte, _, _ string, profile importer.Profile) (*importer.Summary, error) {
	f.gotProfile = profile
	f.gotSize = len(data)
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type fakeSweeper struct {
	report *notify.Report
}

func (f *fakeSweeper) Run(context.Context, time.Time) (*notify.Report, error) {
	return f.report, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: time.Minute,
		},
		Import: config.ImportConfig{
			MaxFileSize:    5 << 20,
			MaxRows:        1000,
			DefaultProfile: "manual",
		},
		Auth: config.AuthConfig{
			SessionTTL: time.Hour,
			CookieName: "certreg_session",
		},
	}
}

type testEnv struct {
	server   *Server
	store    *fakeStore
	importer *fakeImporter
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newFakeStore()
	imp := &fakeImporter{summary: &importer.Summary{Message: "ok", ErrorDetails: []importer.RowError{}}}
	sw := &fakeSweeper{report: &notify.Report{Message: "done", Results: []notify.Result{}}}
	sessions := auth.NewSessions(time.Hour)
	return &testEnv{
		server:   NewServer(st, imp, sw, sessions, testConfig()),
		store:    st,
		importer: imp,
		sessions: sessions,
	}
}

func (e *testEnv) do(req *http.Request, authed bool) *httptest.ResponseRecorder {
	if authed {
		token := e.sessions.Create("admin")
		req.AddCookie(&http.Cookie{Name: "certreg_session", Value: token})
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestMutationsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	reqs := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/certificates", strings.NewReader("{}")),
		httptest.NewRequest(http.MethodPut, "/api/certificates/1", strings.NewReader("{}")),
		httptest.NewRequest(http.MethodDelete, "/api/certificates/1", nil),
		httptest.NewRequest(http.MethodPost, "/api/certificates/import", nil),
		httptest.NewRequest(http.MethodGet, "/api/certificates/check-expiry", nil),
	}
	for _, req := range reqs {
		rec := env.do(req, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", req.Method, req.URL.Path)
		assert.Contains(t, rec.Body.String(), "Neautorizovaný prístup")
	}
}

func TestListCertificatesIsPublic(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/certificates", nil), false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"certificates"`)
}

func TestCreateCertificate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		body := jsonBody(t, map[string]string{
			"name":         "VPN cert",
			"validFrom":    "1.1.2026",
			"expiryDate":   "31.12.2026",
			"emailAddress": "ops@example.com",
		})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/certificates", body), true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "Certifikát bol úspešne vytvorený")
		assert.Len(t, env.store.certs, 1)
	})

	t.Run("accented name under character limit", func(t *testing.T) {
		body := jsonBody(t, map[string]string{
			"name":         strings.Repeat("á", 300), // >500 bytes, <500 characters
			"expiryDate":   "31.12.2026",
			"emailAddress": "ops@example.com",
		})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/certificates", body), true)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"name": "x"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/certificates", body), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Všetky polia sú povinné")
	})

	t.Run("bad email", func(t *testing.T) {
		body := jsonBody(t, map[string]string{
			"name":         "x",
			"expiryDate":   "31.12.2026",
			"emailAddress": "nope",
		})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/certificates", body), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Neplatná emailová adresa")
	})

	t.Run("reversed dates", func(t *testing.T) {
		body := jsonBody(t, map[string]string{
			"name":         "x",
			"validFrom":    "1.1.2027",
			"expiryDate":   "31.12.2026",
			"emailAddress": "a@b.sk",
		})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/certificates", body), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Dátum začiatku platnosti je po dátume expirácie")
	})
}

func TestUpdateCertificate(t *testing.T) {
	env := newTestEnv(t)
	seed, err := env.store.CreateCertificate(context.Background(), store.CertificateParams{
		Name:       "old",
		ExpiryDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	t.Run("success without email", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"name": "new", "expiryDate": "2027-01-01"})
		rec := env.do(httptest.NewRequest(http.MethodPut, "/api/certificates/1", body), true)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "Certifikát bol úspešne aktualizovaný")
		assert.Equal(t, "new", env.store.certs[seed.ID].Name)
		assert.Nil(t, env.store.certs[seed.ID].EmailAddress)
	})

	t.Run("missing name", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"expiryDate": "2027-01-01"})
		rec := env.do(httptest.NewRequest(http.MethodPut, "/api/certificates/1", body), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Názov a dátum expirácie sú povinné")
	})

	t.Run("bad id", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"name": "x", "expiryDate": "2027-01-01"})
		rec := env.do(httptest.NewRequest(http.MethodPut, "/api/certificates/abc", body), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Neplatné ID certifikátu")
	})

	t.Run("not found", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"name": "x", "expiryDate": "2027-01-01"})
		rec := env.do(httptest.NewRequest(http.MethodPut, "/api/certificates/999", body), true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Certifikát nebol najdený")
	})
}

func TestDeleteCertificate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.CreateCertificate(context.Background(), store.CertificateParams{
		Name:       "doomed",
		ExpiryDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/api/certificates/1", nil), true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Certifikát bol úspešne zmazaný")

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/certificates/1", nil), true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, fieldName, fileName, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		body, contentType := multipartUpload(t, "file", "certs.csv", "názov,dátum_platnosti\nA,31.12.2026\n", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", body)
		req.Header.Set("Content-Type", contentType)

		rec := env.do(req, true)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, importer.ProfileManual, env.importer.gotProfile)
		assert.Positive(t, env.importer.gotSize)
	})

	t.Run("profile override", func(t *testing.T) {
		body, contentType := multipartUpload(t, "file", "certs.csv", "x\n1\n", map[string]string{"profile": "automated"})
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", body)
		req.Header.Set("Content-Type", contentType)

		rec := env.do(req, true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, importer.ProfileAutomated, env.importer.gotProfile)
	})

	t.Run("unknown profile", func(t *testing.T) {
		body, contentType := multipartUpload(t, "file", "certs.csv", "x\n1\n", map[string]string{"profile": "wild"})
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", body)
		req.Header.Set("Content-Type", contentType)

		rec := env.do(req, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Neznámy profil importu")
	})

	t.Run("non-multipart body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import",
			strings.NewReader(`{"file": "nope"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := env.do(req, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Neplatné telo požiadavky")
		assert.NotContains(t, rec.Body.String(), "príliš veľký")
	})

	t.Run("truncated multipart body", func(t *testing.T) {
		raw := "--xyz\r\n" +
			"Content-Disposition: form-data; name=\"file\"; filename=\"a.csv\"\r\n\r\n" +
			"cut off mid-part"
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", strings.NewReader(raw))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")

		rec := env.do(req, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Neplatné telo požiadavky")
	})

	t.Run("oversized body", func(t *testing.T) {
		small := newTestEnv(t)
		small.server.cfg.Import.MaxFileSize = 16

		// The request body cap is the file limit plus multipart framing
		// slack, so the payload must clear both.
		content := strings.Repeat("x", 2<<20)
		body, contentType := multipartUpload(t, "file", "big.csv", content, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", body)
		req.Header.Set("Content-Type", contentType)

		rec := small.do(req, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Súbor je príliš veľký")
	})

	t.Run("missing file field", func(t *testing.T) {
		body, contentType := multipartUpload(t, "attachment", "certs.csv", "x", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", body)
		req.Header.Set("Content-Type", contentType)

		rec := env.do(req, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Súbor nebol nahraný")
	})

	t.Run("importer guard error maps to status", func(t *testing.T) {
		env.importer.err = importer.ErrTooManyRows
		defer func() { env.importer.err = nil }()

		body, contentType := multipartUpload(t, "file", "certs.csv", "x\n1\n", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/certificates/import", body)
		req.Header.Set("Content-Type", contentType)

		rec := env.do(req, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Príliš veľa riadkov")
	})
}

func TestCheckExpiryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/certificates/check-expiry", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"done"`)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	t.Run("register", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"username": "admin", "password": "hunter2"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/auth/register", body), false)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("register duplicate", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"username": "admin", "password": "hunter2"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/auth/register", body), false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Používateľské meno už existuje")
	})

	t.Run("register short password", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"username": "other", "password": "abc"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/auth/register", body), false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Heslo musí mať aspoň 6 znakov")
	})

	t.Run("login wrong password", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"username": "admin", "password": "nope"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", body), false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Nesprávne používateľské meno alebo heslo")
	})

	t.Run("login unknown user", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"username": "ghost", "password": "hunter2"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", body), false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login and use session", func(t *testing.T) {
		body := jsonBody(t, map[string]string{"username": "admin", "password": "hunter2"})
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", body), false)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		cookie := cookies[0]
		assert.Equal(t, "certreg_session", cookie.Name)
		assert.True(t, cookie.HttpOnly)

		// The cookie authorizes a mutation.
		create := jsonBody(t, map[string]string{
			"name":         "x",
			"expiryDate":   "31.12.2026",
			"emailAddress": "a@b.sk",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/certificates", create)
		req.AddCookie(cookie)
		rec = env.do(req, false)
		assert.Equal(t, http.StatusCreated, rec.Code)

		// Logout invalidates it.
		logoutReq := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		logoutReq.AddCookie(cookie)
		rec = env.do(logoutReq, false)
		assert.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodDelete, "/api/certificates/1", nil)
		req.AddCookie(cookie)
		rec = env.do(req, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), false)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
