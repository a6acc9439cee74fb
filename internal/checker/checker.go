// Package checker executes single health probes against monitored targets.
// Probes are stateless: every network or parsing error is converted into a
// failed Result, never returned as an error to the caller.
package checker

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/statuspulse/statuspulse/internal/database"
)

// Result is the outcome of one probe.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Check describes one probe to run.
type Check struct {
	Type           database.CheckType
	Target         string
	Timeout        time.Duration
	ExpectedStatus int
}

// DefaultTimeout bounds probes whose configuration carries no timeout.
const DefaultTimeout = 10 * time.Second

// Execute runs the probe described by check and returns a uniform result.
func Execute(check Check) Result {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch check.Type {
	case database.CheckTypePing:
		return checkPing(check.Target, timeout)
	case database.CheckTypeHTTPGet:
		return checkHTTPGet(check.Target, timeout, check.ExpectedStatus)
	case database.CheckTypeHealthEndpoint:
		return checkHealthEndpoint(check.Target, timeout)
	case database.CheckTypeTCPPort:
		return checkTCPPort(check.Target, timeout)
	default:
		// NONE or unknown: a no-op sentinel, not a probe.
		return Result{Success: true, Message: "No check configured"}
	}
}

// checkPing resolves the target and probes reachability with a bounded TCP
// dial. A refused connection still proves the host answered; only
// unreachable/timeout errors count as failure. Raw ICMP would need elevated
// privileges.
func checkPing(target string, timeout time.Duration) Result {
	host := hostOnly(target)
	if host == "" {
		return Result{Success: false, Message: "Ping failed: empty target"}
	}

	deadline := time.Now().Add(timeout)
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return Result{Success: false, Message: fmt.Sprintf("Ping failed: cannot resolve %s", host)}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, "80"), remaining)
	if err == nil {
		conn.Close()
		return Result{Success: true, Message: fmt.Sprintf("Host %s is reachable", host)}
	}
	if strings.Contains(err.Error(), "refused") {
		// The host responded, just nothing listening on the probe port.
		return Result{Success: true, Message: fmt.Sprintf("Host %s is reachable", host)}
	}
	return Result{Success: false, Message: fmt.Sprintf("Host %s is not reachable: %v", host, err)}
}

func checkHTTPGet(target string, timeout time.Duration, expectedStatus int) Result {
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(target)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Check error: %v", err)}
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code == expectedStatus || (expectedStatus == http.StatusOK && code >= 200 && code < 300) {
		return Result{Success: true, Message: fmt.Sprintf("HTTP %d", code)}
	}
	return Result{Success: false, Message: fmt.Sprintf("Unexpected HTTP status %d (expected %d)", code, expectedStatus)}
}

// healthResponse is the shape of an actuator-style health endpoint body.
type healthResponse struct {
	Status string `json:"status"`
}

func checkHealthEndpoint(target string, timeout time.Duration) Result {
	url := target
	if !strings.Contains(url, "/health") {
		url = strings.TrimRight(url, "/") + "/actuator/health"
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Check error: %v", err)}
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Check error: invalid health response: %v", err)}
	}

	if strings.EqualFold(health.Status, "UP") {
		return Result{Success: true, Message: "Health endpoint reports UP"}
	}
	return Result{Success: false, Message: fmt.Sprintf("Health endpoint reports %s", health.Status)}
}

func checkTCPPort(target string, timeout time.Duration) Result {
	addr := strings.TrimPrefix(strings.TrimSpace(target), "tcp://")
	if addr == "" {
		return Result{Success: false, Message: "Check error: empty target"}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "80")
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("TCP connect to %s failed: %v", addr, err)}
	}
	conn.Close()
	return Result{Success: true, Message: fmt.Sprintf("TCP connect to %s succeeded", addr)}
}

// hostOnly strips an optional scheme and port from a target string.
func hostOnly(target string) string {
	host := strings.TrimSpace(target)
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}
