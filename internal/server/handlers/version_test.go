package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	SetVersionInfo("1.4.0", "abc1234", "2025-06-01")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	VersionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "voxsentry", body.App.Name)
	require.Equal(t, "1.4.0", body.App.Version)
	require.Equal(t, "abc1234", body.App.Commit)
	require.NotEmpty(t, body.App.GoVersion)
	require.NotEmpty(t, body.Runtime.Platform)
}
