package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Myash21/vidtube/internal/auth/session"
	"github.com/Myash21/vidtube/internal/identity"
	"github.com/Myash21/vidtube/internal/media"
	"github.com/Myash21/vidtube/internal/security/password"
)

func testSessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.AccessSecret = []byte("access-secret-for-tests-only")
	cfg.RefreshSecret = []byte("refresh-secret-for-tests-only")
	cfg.RefreshTTL = 24 * time.Hour
	return cfg
}

func testPasswordConfig() password.Config {
	return password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}
}

type testEnv struct {
	server   *httptest.Server
	accounts *identity.MemoryStore
	objects  *media.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	codec, err := session.NewJWTCodec(testSessionConfig())
	require.NoError(t, err)

	accounts := identity.NewMemoryStore()
	svc, err := session.NewService(testSessionConfig(), accounts, codec, testPasswordConfig())
	require.NoError(t, err)

	objects := media.NewMemoryStore()
	h, err := NewHandler(nil, Config{
		CookiePath:     "/",
		MaxBodyBytes:   1 << 20,
		MaxUploadBytes: 8 << 20,
	}, svc, accounts, objects)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testEnv{server: server, accounts: accounts, objects: objects}
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

type respEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, header http.Header) (int, respEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env respEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, resp.StatusCode, env.StatusCode)
	return resp.StatusCode, env
}

func registerAccount(t *testing.T, client *http.Client, baseURL, username, email, pw string, withCover bool) (int, respEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("fullname", "Ada Lovelace"))
	require.NoError(t, mw.WriteField("username", username))
	require.NoError(t, mw.WriteField("email", email))
	require.NoError(t, mw.WriteField("password", pw))

	fw, err := mw.CreateFormFile("avatar", "avatar.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake png bytes"))
	require.NoError(t, err)

	if withCover {
		cw, err := mw.CreateFormFile("coverImage", "cover.jpg")
		require.NoError(t, err)
		_, err = cw.Write([]byte("fake jpg bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := client.Post(baseURL+"/api/v1/users/register", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env respEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func cookieValue(t *testing.T, client *http.Client, rawURL, name string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	client := newCookieClient(t)
	base := env.server.URL

	status, regEnv := registerAccount(t, client, base, "ada", "ada@x.io", "correct horse", true)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, regEnv.Success)

	var created identity.PublicAccount
	require.NoError(t, json.Unmarshal(regEnv.Data, &created))
	require.Equal(t, "ada", created.Username)
	require.NotEmpty(t, created.Avatar)

	// Login sets both cookies and returns the pair in the body.
	status, loginEnv := doJSON(t, client, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "ada", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, status)

	var login loginData
	require.NoError(t, json.Unmarshal(loginEnv.Data, &login))
	require.Equal(t, created.ID, login.User.ID)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	require.Equal(t, login.AccessToken, cookieValue(t, client, base, accessCookieName))
	require.Equal(t, login.RefreshToken, cookieValue(t, client, base, refreshCookieName))

	// Cookie transport authenticates.
	status, meEnv := doJSON(t, client, http.MethodGet, base+"/api/v1/users/current-user", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var me identity.PublicAccount
	require.NoError(t, json.Unmarshal(meEnv.Data, &me))
	require.Equal(t, "ada", me.Username)

	// Bearer transport authenticates without cookies.
	bare := &http.Client{}
	status, _ = doJSON(t, bare, http.MethodGet, base+"/api/v1/users/current-user", nil,
		http.Header{"Authorization": []string{"Bearer " + login.AccessToken}})
	require.Equal(t, http.StatusOK, status)

	// Rotation replaces the refresh token.
	status, rotEnv := doJSON(t, client, http.MethodPost, base+"/api/v1/users/refresh-token", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var rotated refreshData
	require.NoError(t, json.Unmarshal(rotEnv.Data, &rotated))
	require.NotEmpty(t, rotated.RefreshToken)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// Replaying the superseded token (body transport, no cookies) fails.
	status, replayEnv := doJSON(t, bare, http.MethodPost, base+"/api/v1/users/refresh-token",
		map[string]string{"refreshToken": login.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, replayEnv.Success)
	require.NotNil(t, replayEnv.Errors)

	// The current token still rotates.
	status, rot2Env := doJSON(t, bare, http.MethodPost, base+"/api/v1/users/refresh-token",
		map[string]string{"refreshToken": rotated.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, status)
	var rotated2 refreshData
	require.NoError(t, json.Unmarshal(rot2Env.Data, &rotated2))

	// Logout clears the session; rotation with the latest token fails after.
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/users/logout", nil,
		http.Header{"Authorization": []string{"Bearer " + login.AccessToken}})
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, cookieValue(t, client, base, refreshCookieName))

	status, _ = doJSON(t, bare, http.MethodPost, base+"/api/v1/users/refresh-token",
		map[string]string{"refreshToken": rotated2.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRegister_DuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	client := newCookieClient(t)

	status, _ := registerAccount(t, client, env.server.URL, "ada", "ada@x.io", "correct horse", false)
	require.Equal(t, http.StatusCreated, status)
	uploadedAfterFirst := env.objects.Len()

	status, dupEnv := registerAccount(t, client, env.server.URL, "ada", "other@x.io", "correct horse", false)
	require.Equal(t, http.StatusConflict, status)
	require.False(t, dupEnv.Success)

	// The orphaned upload from the failed attempt is cleaned up.
	require.Equal(t, uploadedAfterFirst, env.objects.Len())
}

func TestRegister_MissingAvatar(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("fullname", "Ada Lovelace"))
	require.NoError(t, mw.WriteField("username", "ada"))
	require.NoError(t, mw.WriteField("email", "ada@x.io"))
	require.NoError(t, mw.WriteField("password", "correct horse"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(env.server.URL+"/api/v1/users/register", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_ShortPasswordRejected(t *testing.T) {
	env := newTestEnv(t)
	client := newCookieClient(t)

	status, env2 := registerAccount(t, client, env.server.URL, "ada", "ada@x.io", "short", false)
	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, env2.Success)
	// Nothing is uploaded before validation passes.
	require.Zero(t, env.objects.Len())
}

func TestLogin_UniformUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	client := newCookieClient(t)
	base := env.server.URL

	status, _ := registerAccount(t, client, base, "ada", "ada@x.io", "correct horse", false)
	require.Equal(t, http.StatusCreated, status)

	// Wrong password and unknown account produce the same status and message.
	status1, env1 := doJSON(t, client, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "ada", "password": "wrong password"}, nil)
	status2, env2 := doJSON(t, client, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "nobody", "password": "wrong password"}, nil)

	require.Equal(t, http.StatusUnauthorized, status1)
	require.Equal(t, http.StatusUnauthorized, status2)
	require.Equal(t, env1.Message, env2.Message)
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t)
	bare := &http.Client{}

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/current-user"},
		{http.MethodPost, "/api/v1/users/logout"},
		{http.MethodPost, "/api/v1/users/change-password"},
		{http.MethodPatch, "/api/v1/users/update-account"},
	} {
		status, envlp := doJSON(t, bare, route.method, env.server.URL+route.path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, status, route.path)
		require.False(t, envlp.Success, route.path)
		require.NotNil(t, envlp.Errors, route.path)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	client := newCookieClient(t)
	base := env.server.URL

	status, _ := registerAccount(t, client, base, "ada", "ada@x.io", "correct horse", false)
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"email": "ada@x.io", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/users/change-password",
		map[string]string{"oldPassword": "not it", "newPassword": "brand new pass"}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/users/change-password",
		map[string]string{"oldPassword": "correct horse", "newPassword": "brand new pass"}, nil)
	require.Equal(t, http.StatusOK, status)

	// Old password no longer logs in; the new one does.
	fresh := newCookieClient(t)
	status, _ = doJSON(t, fresh, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "ada", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = doJSON(t, fresh, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "ada", "password": "brand new pass"}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestUpdateAccount(t *testing.T) {
	env := newTestEnv(t)
	base := env.server.URL

	clientA := newCookieClient(t)
	status, _ := registerAccount(t, clientA, base, "ada", "ada@x.io", "correct horse", false)
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, clientA, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "ada", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, status)

	clientB := newCookieClient(t)
	status, _ = registerAccount(t, clientB, base, "grace", "grace@x.io", "correct horse", false)
	require.Equal(t, http.StatusCreated, status)

	status, updEnv := doJSON(t, clientA, http.MethodPatch, base+"/api/v1/users/update-account",
		map[string]string{"fullname": "Ada King"}, nil)
	require.Equal(t, http.StatusOK, status)
	var updated identity.PublicAccount
	require.NoError(t, json.Unmarshal(updEnv.Data, &updated))
	require.Equal(t, "Ada King", updated.Fullname)

	// Taking another account's email is a conflict.
	status, _ = doJSON(t, clientA, http.MethodPatch, base+"/api/v1/users/update-account",
		map[string]string{"email": "grace@x.io"}, nil)
	require.Equal(t, http.StatusConflict, status)

	// An empty patch is rejected.
	status, _ = doJSON(t, clientA, http.MethodPatch, base+"/api/v1/users/update-account",
		map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateAvatar_ReplacesObject(t *testing.T) {
	env := newTestEnv(t)
	client := newCookieClient(t)
	base := env.server.URL

	status, _ := registerAccount(t, client, base, "ada", "ada@x.io", "correct horse", false)
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": "ada", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, status)

	status, meEnv := doJSON(t, client, http.MethodGet, base+"/api/v1/users/current-user", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var me identity.PublicAccount
	require.NoError(t, json.Unmarshal(meEnv.Data, &me))

	before := env.objects.Len()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "new-avatar.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("new fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPatch, base+"/api/v1/users/update-avatar", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envlp respEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envlp))
	var updated identity.PublicAccount
	require.NoError(t, json.Unmarshal(envlp.Data, &updated))
	require.NotEqual(t, me.Avatar, updated.Avatar)

	// The old avatar object is gone; the count is unchanged.
	require.Equal(t, before, env.objects.Len())
}
