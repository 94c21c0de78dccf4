package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/marketplace-payments/internal/payment/handler"
)

func TestTrustedProxies_ClientIP(t *testing.T) {
	proxies, err := handler.ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", ""})
	require.NoError(t, err)

	tests := []struct {
		name         string
		proxies      handler.TrustedProxies
		remoteAddr   string
		forwardedFor string
		want         string
	}{
		{"no proxies configured", handler.TrustedProxies{}, "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"untrusted peer", proxies, "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted peer", proxies, "10.1.2.3:443", "198.51.100.1", "198.51.100.1"},
		{"trusted single address", proxies, "192.168.1.10:443", "198.51.100.1", "198.51.100.1"},
		{"spoofed leftmost hop", proxies, "10.1.2.3:443", "1.2.3.4, 198.51.100.1", "198.51.100.1"},
		{"chained proxies", proxies, "10.1.2.3:443", "198.51.100.1, 10.9.9.9", "198.51.100.1"},
		{"trusted peer without header", proxies, "10.1.2.3:443", "", "10.1.2.3"},
		{"garbage hop", proxies, "10.1.2.3:443", "not-an-ip", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payment/initiate", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}
			assert.Equal(t, tt.want, tt.proxies.ClientIP(req))
		})
	}
}

func TestParseTrustedProxies_RejectsInvalidEntries(t *testing.T) {
	_, err := handler.ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = handler.ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}
