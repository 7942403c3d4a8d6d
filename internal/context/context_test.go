package context

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "1.2.3.4"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"}, "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "5.6.7.8"},
		{"empty forwarded entry", map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"no headers", nil, UnknownIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			r.RemoteAddr = "192.0.2.1:4321"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestWithClientIP(t *testing.T) {
	_, ok := ExtractClientIP(context.Background())
	assert.False(t, ok)

	ip, ok := ExtractClientIP(WithClientIP(context.Background(), "1.2.3.4"))
	assert.True(t, ok)
	assert.Equal(t, "1.2.3.4", ip)
}
