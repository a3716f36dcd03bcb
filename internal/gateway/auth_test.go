package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("secret", "secret"))
	assert.True(t, safeEqual("", ""))
	assert.False(t, safeEqual("secret", "wrong"))
	assert.False(t, safeEqual("short", "longer-string"))
	assert.False(t, safeEqual("secret", ""))
	assert.False(t, safeEqual("", "secret"))
}

func TestResolveAuth(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.GatewayAuth
		env  map[string]string
		want ResolvedAuth
	}{
		{"token from config", config.GatewayAuth{Mode: "token", Token: "cfg"}, nil, ResolvedAuth{Mode: "token", Token: "cfg"}},
		{"password from config", config.GatewayAuth{Mode: "password", Password: "pw"}, nil, ResolvedAuth{Mode: "password", Password: "pw"}},
		{"defaults to token", config.GatewayAuth{Token: "t"}, nil, ResolvedAuth{Mode: "token", Token: "t"}},
		{"defaults to password when set", config.GatewayAuth{Password: "pw"}, nil, ResolvedAuth{Mode: "password", Password: "pw"}},
		{"token from env", config.GatewayAuth{Mode: "token"}, map[string]string{"MATRIX_GATEWAY_TOKEN": "env"}, ResolvedAuth{Mode: "token", Token: "env"}},
		{"password from env", config.GatewayAuth{Mode: "password"}, map[string]string{"MATRIX_GATEWAY_PASSWORD": "env"}, ResolvedAuth{Mode: "password", Password: "env"}},
		{"config beats env", config.GatewayAuth{Token: "cfg"}, map[string]string{"MATRIX_GATEWAY_TOKEN": "env"}, ResolvedAuth{Mode: "token", Token: "cfg"}},
		{"none", config.GatewayAuth{Mode: "none"}, nil, ResolvedAuth{Mode: "none"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MATRIX_GATEWAY_TOKEN", "")
			t.Setenv("MATRIX_GATEWAY_PASSWORD", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, ResolveAuth(tt.cfg))
		})
	}
}

func TestAuthorize(t *testing.T) {
	tokenAuth := ResolvedAuth{Mode: "token", Token: "tok"}
	passAuth := ResolvedAuth{Mode: "password", Password: "pw"}

	tests := []struct {
		name   string
		server ResolvedAuth
		client *ConnectAuth
		ok     bool
		method string
		reason string
	}{
		{"token ok", tokenAuth, &ConnectAuth{Token: "tok"}, true, "token", ""},
		{"token mismatch", tokenAuth, &ConnectAuth{Token: "nope"}, false, "", "token_mismatch"},
		{"token missing", tokenAuth, &ConnectAuth{}, false, "", "token required"},
		{"server token unset", ResolvedAuth{Mode: "token"}, &ConnectAuth{Token: "tok"}, false, "", "server token not configured"},
		{"password ok", passAuth, &ConnectAuth{Password: "pw"}, true, "password", ""},
		{"password mismatch", passAuth, &ConnectAuth{Password: "nope"}, false, "", "password_mismatch"},
		{"password missing", passAuth, &ConnectAuth{Token: "tok"}, false, "", "password required"},
		{"server password unset", ResolvedAuth{Mode: "password"}, &ConnectAuth{Password: "pw"}, false, "", "server password not configured"},
		{"nil credentials", tokenAuth, nil, false, "", "no credentials provided"},
		{"none needs nothing", ResolvedAuth{Mode: "none"}, nil, true, "none", ""},
		{"unknown mode", ResolvedAuth{Mode: "oauth"}, &ConnectAuth{}, false, "", "unknown auth mode: oauth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.server, tt.client)
			assert.Equal(t, tt.ok, got.OK)
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		header string
		want   *ConnectAuth
	}{
		{"Bearer abc", &ConnectAuth{Token: "abc"}},
		{"bearer  abc ", &ConnectAuth{Token: "abc"}},
		{"Basic dXNlcjpwdw==", nil},
		{"Bearer", nil},
		{"Bearer ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerAuth(r), tt.header)
	}
}

func TestHandshakeBearerHeader(t *testing.T) {
	_, ts := testServer(t)
	params := ConnectParams{MinProtocol: 1, MaxProtocol: 1, Client: ClientInfo{ID: "curl"}}

	_, hello := connectHeader(t, ts, params, http.Header{"Authorization": {"Bearer " + testToken}})
	require.NotNil(t, hello.OK)
	assert.True(t, *hello.OK)

	_, hello = connectHeader(t, ts, params, http.Header{"Authorization": {"Bearer wrong"}})
	require.NotNil(t, hello.Error)
	assert.Equal(t, CodeUnauthorized, hello.Error.Code)
	assert.Equal(t, "token_mismatch", hello.Error.Message)
}

func TestHandshakeFrameAuthBeatsHeader(t *testing.T) {
	_, ts := testServer(t)
	params := ConnectParams{
		MinProtocol: 1, MaxProtocol: 1,
		Client: ClientInfo{ID: "c1"},
		Auth:   &ConnectAuth{Token: "wrong"},
	}
	_, hello := connectHeader(t, ts, params, http.Header{"Authorization": {"Bearer " + testToken}})
	require.NotNil(t, hello.Error)
	assert.Equal(t, CodeUnauthorized, hello.Error.Code)
}

// --- authRateLimiter ---

func TestAuthRateLimiter(t *testing.T) {
	l := newAuthRateLimiter()
	assert.True(t, l.allow("192.168.1.1:12345"))

	for i := 0; i < authRateMaxFails-1; i++ {
		l.recordFailure("192.168.1.1:12345")
	}
	assert.True(t, l.allow("192.168.1.1:5555"), "port is ignored and limit not reached")

	l.recordFailure("192.168.1.1:12345")
	assert.False(t, l.allow("192.168.1.1:12345"))
	assert.True(t, l.allow("192.168.1.2:12345"))
}

func TestAuthRateLimiter_IPWithoutPort(t *testing.T) {
	l := newAuthRateLimiter()
	for i := 0; i < authRateMaxFails; i++ {
		l.recordFailure("192.168.1.1")
	}
	assert.False(t, l.allow("192.168.1.1"))
}

func TestAuthRateLimiter_WindowExpiry(t *testing.T) {
	l := newAuthRateLimiter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < authRateMaxFails; i++ {
		l.recordFailure("10.0.0.1:1")
	}
	l.recordFailure("10.0.0.2:1")
	assert.False(t, l.allow("10.0.0.1:1"))

	now = now.Add(authRateWindow + time.Second)
	l.sweep()
	assert.Equal(t, 0, l.tracked())
	assert.True(t, l.allow("10.0.0.1:1"))
}

// --- checkWebSocketOrigin ---

func TestCheckWebSocketOrigin(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"empty allow list", nil, "http://evil.com", false},
		{"wildcard", []string{"*"}, "http://anything.com", true},
		{"listed", []string{"http://one.com", "http://two.com"}, "http://two.com", true},
		{"unlisted", []string{"http://one.com"}, "http://three.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkWebSocketOrigin(tt.allowed)(req(tt.origin)))
		})
	}
}
