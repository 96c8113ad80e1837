package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newEngine() *gin.Engine {
	return newEngineWith(true)
}

func newEngineWith(trustHeaders bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(RequestID(), LoadVoter(trustHeaders))

	r.GET("/login", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(sessionVoterID, "bio-42")
		s.Set(sessionVoterName, "Session User")
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", VoterRequired(), func(c *gin.Context) {
		v, _ := CurrentVoter(c)
		c.JSON(http.StatusOK, gin.H{"id": v.ID, "name": v.Name})
	})
	r.GET("/admin", AdminRequired("s3cret"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestVoterRequired_NoIdentity(t *testing.T) {
	r := newEngine()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)
	require.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestLoadVoter_FromHeaders(t *testing.T) {
	r := newEngine()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderVoterID, " v-7 ")
	req.Header.Set(HeaderVoterName, "Header User")
	req.Header.Set(HeaderRequestID, "req-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"v-7","name":"Header User"}`, w.Body.String())
	require.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
}

func TestLoadVoter_HeadersIgnoredUnlessTrusted(t *testing.T) {
	r := newEngineWith(false)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderVoterID, "bio-42")
	req.Header.Set(HeaderVoterName, "Someone Else")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"bio-42","name":"Session User"}`, w.Body.String())
}

func TestLoadVoter_SessionWinsOverHeaders(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	req.Header.Set(HeaderVoterID, "spoofed")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"bio-42","name":"Session User"}`, w.Body.String())
}

func TestAdminRequired(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderAdminToken, "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	closed := gin.New()
	closed.GET("/admin", AdminRequired(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderAdminToken, "")
	w = httptest.NewRecorder()
	closed.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
