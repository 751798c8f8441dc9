package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func newTestServer(t *testing.T, config common.ServerConfig) *httptest.Server {
	t.Helper()
	transport := &httpServerTransport{config: config}
	transport.RegisterHandler(func(req []byte) []byte {
		return append([]byte("echo:"), req...)
	})
	srv := httptest.NewServer(transport.newServeMux())
	t.Cleanup(srv.Close)
	return srv
}

func TestSendReceive(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{LogLevel: "debug"})

	client := NewHttpClientTransport()
	// the scheme is added by Connect
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	if err := client.Connect(common.ClientConfig{Transport: common.ClientTransportConfig{Endpoints: []string{endpoint}}}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	resp, err := client.Send(context.Background(), []byte("ping"))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(resp) != "echo:ping" {
		t.Errorf("response = %q, want %q", resp, "echo:ping")
	}
}

func TestSendNotConnected(t *testing.T) {
	if _, err := NewHttpClientTransport().Send(context.Background(), []byte("ping")); err == nil {
		t.Error("Send() succeeded without Connect()")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.GetOrCreateCounter("dcache_http_test_total").Inc()

	tests := []struct {
		name       string
		enabled    bool
		wantStatus int
	}{
		{"Enabled", true, http.StatusOK},
		{"Disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, common.ServerConfig{Metrics: tt.enabled, LogLevel: "info"})

			resp, err := http.Get(srv.URL + "/metrics")
			if err != nil {
				t.Fatalf("GET /metrics error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.enabled {
				body, _ := io.ReadAll(resp.Body)
				if !strings.Contains(string(body), "dcache_http_test_total 1") {
					t.Errorf("metrics output does not contain the test counter:\n%s", body)
				}
			}
		})
	}
}
