package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/productlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(originalDir) })

	t.Setenv("PRODUCTLENS_SEARCH_API_KEY", "test-key")
	t.Setenv("PRODUCTLENS_SEARCH_ENGINE_ID", "test-engine")
	t.Setenv("PRODUCTLENS_SEARCH_BASE_URL", baseURL)
	t.Setenv("PRODUCTLENS_LOG_LEVEL", "error")
}

func fakeSearchAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Query().Get("q"), "site:uniqlo.com") {
			fmt.Fprint(w, `{"items":[{"title":"Airism Cotton Crew Neck T-Shirt | UNIQLO US",
				"link":"https://www.uniqlo.com/us/en/products/E455365-000",
				"snippet":"Shop men's Airism cotton tees online."}]}`)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoverCommand(t *testing.T) {
	setupEnv(t, fakeSearchAPI(t).URL)

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"--message", "summer basics?", "**Uniqlo Airism Tee** - $20"})
	require.NoError(t, cmd.Execute())

	var resp domain.DiscoveryResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.AllProducts, 1)
	assert.Equal(t, "Uniqlo Airism Tee", resp.AllProducts[0].Title)
	assert.Equal(t, "https://www.uniqlo.com/us/en/products/E455365-000", resp.AllProducts[0].Link)
	assert.Equal(t, domain.SourceMatched, resp.AllProducts[0].SourceTier)
}

func TestDiscoverCommand_StdinPretty(t *testing.T) {
	setupEnv(t, fakeSearchAPI(t).URL)

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader("Try **Gap Vintage Hoodie** - $50"), &out)
	cmd.SetArgs([]string{"--stdin", "--pretty"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "\n  \"products\"")
	var resp domain.DiscoveryResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.AllProducts, 1)
	assert.Equal(t, domain.SourceFallback, resp.AllProducts[0].SourceTier)
}

func TestDiscoverCommand_Errors(t *testing.T) {
	t.Run("requires text", func(t *testing.T) {
		setupEnv(t, fakeSearchAPI(t).URL)

		cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{})
		cmd.SetArgs([]string{})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.Execute())
	})

	t.Run("provider not configured", func(t *testing.T) {
		setupEnv(t, fakeSearchAPI(t).URL)
		t.Setenv("PRODUCTLENS_SEARCH_API_KEY", "")

		cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{})
		cmd.SetArgs([]string{"**Nike Air Force 1** - $100"})
		cmd.SetErr(&bytes.Buffer{})
		assert.ErrorIs(t, cmd.Execute(), domain.ErrProviderUnavailable)
	})
}
