package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	cfg.Transport = transport
	client := New(&cfg)
	t.Cleanup(client.Close)
	return client, transport
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	client := New(nil)
	assert.Equal(t, DefaultTimeout, client.defaultTimeout)
	assert.Equal(t, defaultUserAgent, client.userAgent)

	custom := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "probe/1.0"})
	assert.Equal(t, 5*time.Second, custom.defaultTimeout)
	assert.Equal(t, "probe/1.0", custom.userAgent)
}

func TestDo_InjectsHeaders(t *testing.T) {
	t.Parallel()

	client, transport := newMockedClient(t, Config{BearerToken: "hf_secret"})
	transport.RegisterResponder(http.MethodGet, "https://engine.test/health",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer hf_secret", req.Header.Get("Authorization"))
			assert.Equal(t, defaultUserAgent, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	resp, err := client.Get(t.Context(), "https://engine.test/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestPost_MarshalsJSON(t *testing.T) {
	t.Parallel()

	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, "https://engine.test/infer",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			data, _ := io.ReadAll(req.Body)
			assert.JSONEq(t, `{"imageUrl":"https://img/1.jpg"}`, string(data))
			return httpmock.NewStringResponse(http.StatusOK, "{}"), nil
		})

	resp, err := client.Post(t.Context(), "https://engine.test/infer", "",
		map[string]string{"imageUrl": "https://img/1.jpg"})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
}

func TestPost_ExplicitContentType(t *testing.T) {
	t.Parallel()

	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodPost, "https://hooks.test/",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "text/plain", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	resp, err := client.Post(t.Context(), "https://hooks.test/", "text/plain", "hello")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
}

func TestDo_Hooks(t *testing.T) {
	t.Parallel()

	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://engine.test/health",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	var before, after atomic.Int32
	var status atomic.Int32
	client.SetBeforeRequestHook(func(*http.Request) { before.Add(1) })
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		after.Add(1)
		if err == nil {
			status.Store(int32(resp.StatusCode))
		}
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	})

	resp, err := client.Get(t.Context(), "https://engine.test/health")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
	assert.Equal(t, int32(http.StatusServiceUnavailable), status.Load())
}

func TestDo_DefaultTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := New(&Config{DefaultTimeout: 50 * time.Millisecond})
	t.Cleanup(client.Close)

	start := time.Now()
	_, err := client.Get(t.Context(), server.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_BodyReadableAfterReturn(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	t.Cleanup(server.Close)

	client := New(&Config{DefaultTimeout: time.Second})
	t.Cleanup(client.Close)

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDo_NilRequest(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Do(t.Context(), nil)
	require.Error(t, err)
}
