package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (te *testEdge) do(t *testing.T, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	te.router.ServeHTTP(rec, req)
	return rec
}

func (te *testEdge) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := te.do(t, http.MethodPost, "/admin/login", `{"username":"admin","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestAdminRequiresLogin(t *testing.T) {
	te := startTestEdge(t)

	rec := te.do(t, http.MethodGet, "/admin/api/caches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = te.do(t, http.MethodGet, "/admin/api/caches", "", []*http.Cookie{{Name: adminCookie, Value: "forged"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = te.do(t, http.MethodPost, "/admin/login", `{"username":"admin","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = te.do(t, http.MethodPost, "/admin/login", `{"username":"admin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLoginDisabledWithoutPassword(t *testing.T) {
	te := startTestEdge(t)
	h, err := newAdminHandler(AdminConfig{Username: "admin"}, te.edge, te.edge.log)
	require.NoError(t, err)
	te.router = newEdgeRouter(te.edge, h, te.edge.log)

	rec := te.do(t, http.MethodPost, "/admin/login", `{"username":"admin","password":"anything"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListCaches(t *testing.T) {
	te := startTestEdge(t)
	cookies := te.login(t)

	rec := te.do(t, http.MethodGet, "/admin/api/caches", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		State   string      `json:"state"`
		Shell   string      `json:"shell"`
		Runtime string      `json:"runtime"`
		Stores  []StoreInfo `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "active", got.State)
	assert.Equal(t, "static-v1", got.Shell)
	assert.Equal(t, "dynamic-v1", got.Runtime)
	assert.Equal(t, []StoreInfo{
		{Name: "dynamic-v1", Entries: 0, Active: true},
		{Name: "static-v1", Entries: 4, Active: true},
	}, got.Stores)
}

func TestAdminDeleteCache(t *testing.T) {
	te := startTestEdge(t)
	cookies := te.login(t)

	_, err := te.storage.Open(context.Background(), "static-v0")
	require.NoError(t, err)

	rec := te.do(t, http.MethodDelete, "/admin/api/caches/static-v1", "", cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = te.do(t, http.MethodDelete, "/admin/api/caches/static-v0", "", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = te.do(t, http.MethodDelete, "/admin/api/caches/static-v0", "", cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	names, err := te.storage.Keys(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"static-v1", "dynamic-v1"}, names)
}

func TestAdminUpgrade(t *testing.T) {
	te := startTestEdge(t)
	cookies := te.login(t)

	rec := te.do(t, http.MethodPost, "/admin/api/caches/upgrade", `{"shell":"v3","runtime":"v3"}`, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = te.do(t, http.MethodPost, "/admin/api/caches/upgrade", `{"shell":"static-v2","runtime":"dynamic-v2"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"shell":"static-v2","runtime":"dynamic-v2"}`, rec.Body.String())

	cfg := te.edge.Controller().Config()
	assert.Equal(t, "static-v2", cfg.ShellVersion)
	assert.Equal(t, "dynamic-v2", cfg.RuntimeVersion)
}

func TestAdminLogout(t *testing.T) {
	te := startTestEdge(t)
	te.login(t)

	rec := te.do(t, http.MethodPost, "/admin/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, adminCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestHashIPIsStable(t *testing.T) {
	h := &adminHandler{salt: "pepper"}
	a := h.hashIP("203.0.113.7")
	assert.Len(t, a, 16)
	assert.Equal(t, a, h.hashIP("203.0.113.7"))
	assert.NotEqual(t, a, h.hashIP("203.0.113.8"))
}
