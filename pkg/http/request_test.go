package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIPConfig(t *testing.T, cidrs ...string) *pkghttp.IPConfig {
	t.Helper()
	cfg, err := pkghttp.NewIPConfig(cidrs)
	require.NoError(t, err)
	return cfg
}

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	cfg := mustIPConfig(t, "10.0.0.0/8", "172.16.0.0/12", "127.0.0.1/32")

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	cfg := mustIPConfig(t, "10.0.0.0/8")

	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_TrustedProxy_IgnoresSpoofedPrefix(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	// The client prepended 1.1.1.1; the proxy appended the real peer.
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.7")

	cfg := mustIPConfig(t, "10.0.0.0/8")

	assert.Equal(t, "198.51.100.7", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Real-IP", "203.0.113.9")

	cfg := mustIPConfig(t, "10.0.0.0/8")

	assert.Equal(t, "203.0.113.9", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_IPv6_TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[fd00::1]:443"
	req.Header.Set("X-Forwarded-For", "2001:db8::42")

	cfg := mustIPConfig(t, "fd00::/8")

	assert.Equal(t, "2001:db8::42", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_NilConfig_DefaultsSecurely(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_BareAddressAccepted(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")

	cfg := mustIPConfig(t, "127.0.0.1")

	assert.Equal(t, "203.0.113.50", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_RemoteAddrWithoutPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10"

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, mustIPConfig(t)))
}

func TestNewIPConfig_RejectsInvalidCIDR(t *testing.T) {
	_, err := pkghttp.NewIPConfig([]string{"not-a-cidr/99"})
	assert.Error(t, err)
}
