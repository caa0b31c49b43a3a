package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPeekBodyField(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "field present",
			body: `{"tenantId":"t-123","other":true}`,
			want: "t-123",
		},
		{
			name: "field absent",
			body: `{"other":true}`,
			want: "",
		},
		{
			name: "non-string field",
			body: `{"tenantId":42}`,
			want: "",
		},
		{
			name: "not JSON",
			body: `tenantId=t-123`,
			want: "",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))

			got := PeekBodyField(r, "tenantId")
			if got != tt.want {
				t.Errorf("PeekBodyField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPeekBodyField_BodyStillReadable(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"tenantId":"t-123","name":"La Trattoria"}`))

	if got := PeekBodyField(r, "tenantId"); got != "t-123" {
		t.Fatalf("PeekBodyField() = %q, want t-123", got)
	}

	// The body must survive the peek for downstream decoding
	var payload struct {
		TenantID string `json:"tenantId"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("body not readable after peek: %v", err)
	}
	if payload.Name != "La Trattoria" {
		t.Errorf("Expected name La Trattoria, got %q", payload.Name)
	}
}
