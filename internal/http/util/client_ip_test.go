package util

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "first forwarded entry",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:    "real ip only",
			headers: map[string]string{"X-Real-IP": "10.0.0.1"},
			want:    "10.0.0.1",
		},
		{
			name:    "forwarded wins over real ip",
			headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 ", "X-Real-IP": "10.0.0.1"},
			want:    "1.2.3.4",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    "unknown",
		},
		{
			name:    "empty first forwarded entry falls back",
			headers: map[string]string{"X-Forwarded-For": " , 5.6.7.8", "X-Real-IP": "10.0.0.1"},
			want:    "10.0.0.1",
		},
		{
			name:    "no validation of value",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "not-an-ip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ResolveClientIP(h))
		})
	}
}
