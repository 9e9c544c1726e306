package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPIsLocal(t *testing.T) {
	cases := []struct {
		addr            string
		expectedIsLocal bool
	}{
		{addr: "83.12.53.65:2145", expectedIsLocal: false},
		{addr: "127.23.0.1:35325", expectedIsLocal: false},
		{addr: "127.0.0.1:35325", expectedIsLocal: true},
		{addr: "[::1]:8080", expectedIsLocal: true},
		{addr: "172.20.0.1:60102", expectedIsLocal: true},
		{addr: "172.200.0.1:60096", expectedIsLocal: true},
		{addr: "172.19.0.1", expectedIsLocal: true},
		{addr: "172.19.0.12:42452", expectedIsLocal: false},
		{addr: "111.12.56.65:8080", expectedIsLocal: false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expectedIsLocal, IPIsLocal(tc.addr), tc.addr)
	}
}

func TestReadUserIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1"})
	require.NoError(t, err)

	cases := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
		wantErr    bool
	}{
		{name: "remote addr", remoteAddr: "83.12.53.65:2145", want: "83.12.53.65"},
		{name: "real ip header from proxy", remoteAddr: "10.0.0.2:80", realIP: "91.1.2.3", want: "91.1.2.3"},
		{name: "forwarded chain from proxy", remoteAddr: "10.0.0.2:80", forwarded: "91.1.2.3, 10.0.0.1", want: "91.1.2.3"},
		{name: "spoofed first hop", remoteAddr: "10.0.0.2:80", forwarded: "1.1.1.1, 91.1.2.3, 10.0.0.1", want: "91.1.2.3"},
		{name: "only proxies in chain", remoteAddr: "10.0.0.2:80", forwarded: "10.0.0.5, 10.0.0.1", want: "10.0.0.5"},
		{name: "real ip header from client", remoteAddr: "83.12.53.65:2145", realIP: "91.1.2.3", want: "83.12.53.65"},
		{name: "forwarded from client", remoteAddr: "83.12.53.65:2145", forwarded: "91.1.2.3", want: "83.12.53.65"},
		{name: "local proxy", remoteAddr: "127.0.0.1:5555", realIP: "91.1.2.3", want: "91.1.2.3"},
		{name: "ipv6", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "local", remoteAddr: "127.0.0.1:5555", want: "localhost"},
		{name: "garbage", remoteAddr: "not-an-ip", wantErr: true},
		{name: "garbage header from proxy", remoteAddr: "10.0.0.2:80", realIP: "nope", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.realIP != "" {
				r.Header.Set("X-Real-Ip", tc.realIP)
			}
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}

			got, err := ReadUserIP(r, trusted)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReadUserIP_NoTrustedProxies(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.2:80"
	r.Header.Set("X-Real-Ip", "91.1.2.3")
	r.Header.Set("X-Forwarded-For", "91.1.2.4")

	got, err := ReadUserIP(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", got)
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.1.2.3/8", " ::1 ", "192.168.1.10"})
	require.NoError(t, err)
	assert.True(t, proxies.Contains("10.200.0.1"))
	assert.True(t, proxies.Contains("::1"))
	assert.True(t, proxies.Contains("192.168.1.10"))
	assert.False(t, proxies.Contains("192.168.1.11"))
	assert.False(t, proxies.Contains("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}
