package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New("development")
	require.NoError(t, err)
	t.Cleanup(log.Sync)

	client, err := NewHTTPClient(log, config.RecognitionConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	return client
}

func TestHTTPClientLinkReturnsBackendRemoteID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/recognitions/old-111/links", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CNH", body["type"])

		_ = json.NewEncoder(w).Encode(map[string]any{"remote_id": "new-999", "done": true})
	})

	res, err := client.Link(context.Background(), "old-111", "CNH")
	require.NoError(t, err)
	assert.Equal(t, "new-999", res.RemoteID, "the linked recognition carries its own id, not the source's")
}

func TestHTTPClientLinkRejectsMissingRemoteID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"done": true})
	})

	_, err := client.Link(context.Background(), "old-111", "CNH")
	assert.Error(t, err)
}

func TestHTTPClientStatusMapsPendingToStillProcessing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"done": false, "failed": false})
	})

	_, err := client.Status(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrStillProcessing)
}
