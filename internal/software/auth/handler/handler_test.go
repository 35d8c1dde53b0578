package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
)

func TestCreateToken(t *testing.T) {
	mgr := jwt.NewManager("test-secret", time.Hour)
	mux := http.NewServeMux()
	NewAuthHTTPHandler(logger.NewWithWriter("test", io.Discard), mgr).RegisterRoutes(mux)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/tokens", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"user_id":"driver-1","role":"driver","company_id":"co-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, user.RoleDriver, res.Role)

	_, claims, err := mgr.ParseAndValidate(res.Token)
	require.NoError(t, err)
	require.Equal(t, "co-1", claims.CompanyID)

	require.Equal(t, http.StatusBadRequest, post(`{"user_id":"x","role":"PILOT","company_id":"co-1"}`).Code)
	require.Equal(t, http.StatusBadRequest, post(`{"user_id":"x","role":"ADMIN"}`).Code)
	require.Equal(t, http.StatusBadRequest, post(`{"role":"ADMIN","company_id":"co-1"}`).Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
