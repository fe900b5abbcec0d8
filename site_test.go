package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testSiteConfig() SiteConfig {
	return SiteConfig{
		Templates:  "templates/*",
		Static:     "static",
		Owner:      "Kamal Kiran Polisetty",
		OwnerEmail: "owner@portfolio.test",
	}
}

func newTestSite(t *testing.T, mailer Mailer) *gin.Engine {
	t.Helper()
	cfg := testSiteConfig()
	contact := &contactService{
		mailer:     mailer,
		owner:      cfg.Owner,
		ownerEmail: cfg.OwnerEmail,
		log:        zap.NewNop(),
	}
	return newSiteRouter(cfg, contact, zap.NewNop())
}

func serve(r http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func navigateHeader() http.Header {
	return http.Header{"Sec-Fetch-Mode": []string{"navigate"}}
}

func TestSiteIndex(t *testing.T) {
	r := newTestSite(t, &fakeMailer{})

	for _, target := range []string{"/", "/index.html"} {
		rec := serve(r, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), profile.Name)
		assert.Contains(t, rec.Body.String(), `href="/manifest.json"`)
	}
}

func TestSiteShellAssets(t *testing.T) {
	r := newTestSite(t, &fakeMailer{})

	rec := serve(r, http.MethodGet, "/manifest.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"start_url": "/"`)

	rec = serve(r, http.MethodGet, "/logo.svg", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "image/svg+xml")

	rec = serve(r, http.MethodGet, "/resume.pdf", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = serve(r, http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSiteContentAPI(t *testing.T) {
	r := newTestSite(t, &fakeMailer{})

	rec := serve(r, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, profile.Name, p.Name)
	assert.Equal(t, "/resume.pdf", p.Resume.URL)

	rec = serve(r, http.MethodGet, "/api/experience", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var exp []Experience
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))
	assert.Len(t, exp, len(experiences))

	rec = serve(r, http.MethodGet, "/api/skills", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var skills []SkillCategory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &skills))
	assert.Len(t, skills, len(skillCategories))

	rec = serve(r, http.MethodGet, "/api/certifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var certs []Certification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &certs))
	assert.Len(t, certs, len(certifications))
}

func TestSiteProjectsFilter(t *testing.T) {
	r := newTestSite(t, &fakeMailer{})

	tests := []struct {
		target string
		want   int
	}{
		{"/api/projects", len(projects)},
		{"/api/projects?category=web", len(projects)},
		{"/api/projects?category=mobile", 0},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(r, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var got []Project
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestSiteNoRoute(t *testing.T) {
	r := newTestSite(t, &fakeMailer{})

	rec := serve(r, http.MethodGet, "/projects/bugbattle", navigateHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), profile.Name)

	rec = serve(r, http.MethodGet, "/projects/bugbattle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	r := newTestSite(t, &fakeMailer{})
	rec := serve(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
