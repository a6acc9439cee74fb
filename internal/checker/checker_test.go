package checker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/statuspulse/statuspulse/internal/database"
)

func TestExecute_NoneTypeAlwaysSucceeds(t *testing.T) {
	result := Execute(Check{Type: database.CheckTypeNone, Target: "ignored"})
	if !result.Success {
		t.Errorf("expected success for NONE check, got failure: %s", result.Message)
	}
	if result.Message != "No check configured" {
		t.Errorf("unexpected message: %q", result.Message)
	}
}

func TestExecute_UnknownTypeAlwaysSucceeds(t *testing.T) {
	result := Execute(Check{Type: "SOMETHING_ELSE", Target: "ignored"})
	if !result.Success {
		t.Errorf("expected success for unknown check type, got failure: %s", result.Message)
	}
}

func TestExecute_HTTPGetMatchesExpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result := Execute(Check{
		Type:           database.CheckTypeHTTPGet,
		Target:         server.URL,
		Timeout:        2 * time.Second,
		ExpectedStatus: http.StatusNoContent,
	})
	if !result.Success {
		t.Errorf("expected success for matching status, got: %s", result.Message)
	}
}

func TestExecute_HTTPGetAccepts2xxWhenExpecting200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	result := Execute(Check{
		Type:           database.CheckTypeHTTPGet,
		Target:         server.URL,
		Timeout:        2 * time.Second,
		ExpectedStatus: http.StatusOK,
	})
	if !result.Success {
		t.Errorf("expected 201 to satisfy expected 200, got: %s", result.Message)
	}
}

func TestExecute_HTTPGetRejectsUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := Execute(Check{
		Type:           database.CheckTypeHTTPGet,
		Target:         server.URL,
		Timeout:        2 * time.Second,
		ExpectedStatus: http.StatusOK,
	})
	if result.Success {
		t.Error("expected failure for 503 response")
	}
	if !strings.Contains(result.Message, "503") {
		t.Errorf("expected message to mention status code, got: %q", result.Message)
	}
}

func TestExecute_HTTPGetNetworkErrorBecomesFailedResult(t *testing.T) {
	result := Execute(Check{
		Type:    database.CheckTypeHTTPGet,
		Target:  "http://127.0.0.1:1", // nothing listens here
		Timeout: time.Second,
	})
	if result.Success {
		t.Error("expected failure for unreachable target")
	}
	if !strings.Contains(result.Message, "Check error") {
		t.Errorf("expected a check error message, got: %q", result.Message)
	}
}

func TestExecute_HealthEndpointUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/actuator/health" {
			t.Errorf("expected path /actuator/health, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"up"}`))
	}))
	defer server.Close()

	// Path is appended because the target does not contain /health.
	result := Execute(Check{
		Type:    database.CheckTypeHealthEndpoint,
		Target:  server.URL,
		Timeout: 2 * time.Second,
	})
	if !result.Success {
		t.Errorf("expected success for status up (case-insensitive), got: %s", result.Message)
	}
}

func TestExecute_HealthEndpointKeepsExplicitPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/health" {
			t.Errorf("expected path /internal/health, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"UP"}`))
	}))
	defer server.Close()

	result := Execute(Check{
		Type:    database.CheckTypeHealthEndpoint,
		Target:  server.URL + "/internal/health",
		Timeout: 2 * time.Second,
	})
	if !result.Success {
		t.Errorf("expected success, got: %s", result.Message)
	}
}

func TestExecute_HealthEndpointDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"DOWN"}`))
	}))
	defer server.Close()

	result := Execute(Check{
		Type:    database.CheckTypeHealthEndpoint,
		Target:  server.URL,
		Timeout: 2 * time.Second,
	})
	if result.Success {
		t.Error("expected failure for DOWN status")
	}
	if !strings.Contains(result.Message, "DOWN") {
		t.Errorf("expected message to carry reported status, got: %q", result.Message)
	}
}

func TestExecute_HealthEndpointInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	result := Execute(Check{
		Type:    database.CheckTypeHealthEndpoint,
		Target:  server.URL,
		Timeout: 2 * time.Second,
	})
	if result.Success {
		t.Error("expected failure for invalid JSON body")
	}
}

func TestExecute_TCPPortConnects(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	result := Execute(Check{
		Type:    database.CheckTypeTCPPort,
		Target:  "tcp://" + listener.Addr().String(),
		Timeout: 2 * time.Second,
	})
	if !result.Success {
		t.Errorf("expected TCP connect to succeed, got: %s", result.Message)
	}
}

func TestExecute_TCPPortRefused(t *testing.T) {
	// Grab a free port and close it again so nothing listens there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	result := Execute(Check{
		Type:    database.CheckTypeTCPPort,
		Target:  addr,
		Timeout: time.Second,
	})
	if result.Success {
		t.Error("expected TCP connect to a closed port to fail")
	}
}

func TestExecute_TCPPortEmptyTarget(t *testing.T) {
	result := Execute(Check{Type: database.CheckTypeTCPPort, Target: "", Timeout: time.Second})
	if result.Success {
		t.Error("expected failure for empty target")
	}
}

func TestExecute_PingUnresolvableHost(t *testing.T) {
	result := Execute(Check{
		Type:    database.CheckTypePing,
		Target:  "definitely-not-a-real-host.invalid",
		Timeout: time.Second,
	})
	if result.Success {
		t.Error("expected failure for unresolvable host")
	}
	if !strings.Contains(result.Message, "resolve") {
		t.Errorf("expected resolution failure message, got: %q", result.Message)
	}
}

func TestHostOnly(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"https://example.com/path", "example.com"},
		{"example.com:8080", "example.com"},
		{"tcp://example.com:9000", "example.com"},
		{" example.com ", "example.com"},
	}
	for _, c := range cases {
		if got := hostOnly(c.in); got != c.want {
			t.Errorf("hostOnly(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
