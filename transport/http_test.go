package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sicko7947/calcflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitServer serves a calcflow unit on the invoke route, like the runtime emulator does
func unitServer(t *testing.T, unit *calcflow.Unit) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(InvocationPath, func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		out, err := unit.Invoke(r.Context(), payload)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"errorMessage": err.Error(), "errorType": "ValidationError"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func rawServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newInvoker(t *testing.T, function, base string, timeout time.Duration) *HTTPInvoker {
	t.Helper()
	inv, err := NewHTTPInvoker(HTTPConfig{
		Endpoints: map[string]string{function: base},
		Timeout:   timeout,
	})
	require.NoError(t, err)
	return inv
}

func TestInvocationURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "host only", base: "http://localhost:9001", want: "http://localhost:9001" + InvocationPath},
		{name: "trailing slash", base: "http://localhost:9001/", want: "http://localhost:9001" + InvocationPath},
		{name: "already full", base: "http://localhost:9001" + InvocationPath, want: "http://localhost:9001" + InvocationPath},
		{name: "prefix path", base: "https://gw.example.com/adder", want: "https://gw.example.com/adder" + InvocationPath},
		{name: "bad scheme", base: "ftp://localhost", wantErr: true},
		{name: "no host", base: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InvocationURL(tt.base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHTTPInvoker(t *testing.T) {
	t.Run("requires endpoints", func(t *testing.T) {
		_, err := NewHTTPInvoker(HTTPConfig{})
		assert.Error(t, err)
	})

	t.Run("rejects invalid endpoint", func(t *testing.T) {
		_, err := NewHTTPInvoker(HTTPConfig{Endpoints: map[string]string{"adder": "localhost:9001"}})
		assert.Error(t, err)
	})

	t.Run("defaults timeout", func(t *testing.T) {
		inv, err := NewHTTPInvoker(HTTPConfig{Endpoints: map[string]string{
			"multiplier": "http://localhost:9002",
			"adder":      "http://localhost:9001",
		}})
		require.NoError(t, err)
		assert.Equal(t, DefaultHTTPConfig.Timeout, inv.timeout)
		assert.Equal(t, []string{"adder", "multiplier"}, inv.Functions())

		endpoint, ok := inv.Endpoint("adder")
		assert.True(t, ok)
		assert.Equal(t, "http://localhost:9001"+InvocationPath, endpoint)
	})
}

func TestHTTPInvoker_Invoke(t *testing.T) {
	adder := unitServer(t, calcflow.NewAdder())
	multiplier := unitServer(t, calcflow.NewMultiplier())

	inv, err := NewHTTPInvoker(HTTPConfig{
		Endpoints: map[string]string{
			calcflow.AdderID:      adder.URL,
			calcflow.MultiplierID: multiplier.URL,
		},
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	ctx := context.Background()

	sum, err := inv.Invoke(ctx, calcflow.AdderID, calcflow.InvocationRequest{A: 5, B: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(11), sum.Result)

	product, err := inv.Invoke(ctx, calcflow.MultiplierID, calcflow.InvocationRequest{A: sum.Result, B: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(55), product.Result)
}

func TestHTTPInvoker_UnknownFunction(t *testing.T) {
	inv := newInvoker(t, calcflow.AdderID, "http://localhost:9001", time.Second)

	_, err := inv.Invoke(context.Background(), "divider", calcflow.InvocationRequest{})
	require.Error(t, err)
	assert.True(t, calcflow.IsNotFoundError(err))
}

func TestHTTPInvoker_UpstreamStatus(t *testing.T) {
	srv := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"errorMessage":"warming up","errorType":"Unavailable"}`))
	})
	inv := newInvoker(t, calcflow.AdderID, srv.URL, time.Second)

	_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{A: 1, B: 2})
	require.Error(t, err)

	ie := calcflow.ToInvocationError(err)
	assert.Equal(t, calcflow.ErrCodeUpstreamStatus, ie.Code)
	assert.Equal(t, http.StatusServiceUnavailable, ie.StatusCode)
	assert.Equal(t, calcflow.AdderID, ie.Function)
	assert.Equal(t, "warming up", ie.Details["errorMessage"])
}

func TestHTTPInvoker_FunctionError(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		srv := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(FunctionErrorHeader, "Unhandled")
			_, _ = w.Write([]byte(`{"errorMessage":"boom","errorType":"RuntimeError"}`))
		})
		inv := newInvoker(t, calcflow.AdderID, srv.URL, time.Second)

		_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{})
		require.Error(t, err)
		ie := calcflow.ToInvocationError(err)
		assert.Equal(t, calcflow.ErrCodeUnitError, ie.Code)
		assert.Contains(t, ie.Message, "boom")
		assert.Equal(t, "RuntimeError", ie.Details["errorType"])
	})

	t.Run("body only", func(t *testing.T) {
		srv := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"errorMessage":"bad input"}`))
		})
		inv := newInvoker(t, calcflow.AdderID, srv.URL, time.Second)

		_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{})
		assert.Equal(t, calcflow.ErrCodeUnitError, calcflow.ErrorCode(err))
	})
}

func TestHTTPInvoker_DecodeError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "hello"},
		{name: "missing result", body: `{"value":3}`},
		{name: "wrong type", body: `{"result":"three"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			inv := newInvoker(t, calcflow.AdderID, srv.URL, time.Second)

			_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{})
			assert.Equal(t, calcflow.ErrCodeDecode, calcflow.ErrorCode(err))
		})
	}
}

func TestHTTPInvoker_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"result":1}`))
	})
	defer close(release)

	inv := newInvoker(t, calcflow.AdderID, srv.URL, 100*time.Millisecond)

	start := time.Now()
	_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{})
	require.Error(t, err)
	assert.True(t, calcflow.IsTimeoutError(err), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPInvoker_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	inv := newInvoker(t, calcflow.AdderID, base, time.Second)

	_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{})
	assert.Equal(t, calcflow.ErrCodeTransport, calcflow.ErrorCode(err))
}

func TestHTTPInvoker_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	inv := newInvoker(t, calcflow.AdderID, srv.URL, time.Second)

	_, err := inv.Invoke(context.Background(), calcflow.AdderID, calcflow.InvocationRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
