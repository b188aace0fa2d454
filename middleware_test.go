package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDRs(t *testing.T) {
	nets := parseCIDRs("health_allowed_cidrs", " 10.0.0.0/8, 1.2.3.4 ,, ::1, not-a-cidr ")
	require.Len(t, nets, 3)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())
	assert.Equal(t, "1.2.3.4/32", nets[1].String())
	assert.Equal(t, "::1/128", nets[2].String())

	assert.Empty(t, parseCIDRs("health_allowed_cidrs", ""))
}

func TestClientIP(t *testing.T) {
	p := newAccessPolicy("", "10.0.0.0/8")

	tests := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{"direct peer", "192.0.2.7:4000", nil, "192.0.2.7"},
		{"untrusted peer ignores header", "192.0.2.7:4000", []string{"203.0.113.5"}, "192.0.2.7"},
		{"trusted proxy without header", "10.0.0.2:4000", nil, "10.0.0.2"},
		{"trusted proxy", "10.0.0.2:4000", []string{"203.0.113.5"}, "203.0.113.5"},
		{"rightmost untrusted hop wins", "10.0.0.2:4000", []string{"198.51.100.1, 203.0.113.5, 10.0.0.9"}, "203.0.113.5"},
		{"repeated header lines", "10.0.0.2:4000", []string{"198.51.100.1", "203.0.113.5"}, "203.0.113.5"},
		{"only trusted hops", "10.0.0.2:4000", []string{"10.1.1.1"}, "10.0.0.2"},
		{"malformed hop", "10.0.0.2:4000", []string{"203.0.113.5, bogus"}, ""},
		{"unparsable peer", "garbage", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			got := p.clientIP(req)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			assert.True(t, net.ParseIP(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestAccessPolicyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	serve := func(h http.Handler, remote, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	open := newAccessPolicy("", "").middleware(ok)
	assert.Equal(t, http.StatusNoContent, serve(open, "198.51.100.1:1", ""))

	guarded := newAccessPolicy("203.0.113.0/24", "10.0.0.0/8").middleware(ok)

	assert.Equal(t, http.StatusNoContent, serve(guarded, "203.0.113.9:1", ""))
	assert.Equal(t, http.StatusForbidden, serve(guarded, "198.51.100.1:1", ""))
	// a client cannot talk its way in with a forged header
	assert.Equal(t, http.StatusForbidden, serve(guarded, "198.51.100.1:1", "203.0.113.9"))
	// but a trusted proxy can vouch for it
	assert.Equal(t, http.StatusNoContent, serve(guarded, "10.0.0.2:1", "203.0.113.9"))
	assert.Equal(t, http.StatusForbidden, serve(guarded, "10.0.0.2:1", "198.51.100.1"))
	assert.Equal(t, http.StatusForbidden, serve(guarded, "10.0.0.2:1", "not-an-ip"))
}
