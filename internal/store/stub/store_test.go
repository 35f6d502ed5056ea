package stub

import (
	"context"
	"errors"
	"testing"

	"qms/kiosk-service/internal/store"
)

func TestAuthenticate(t *testing.T) {
	cases := []struct {
		username string
		password string
		wantErr  error
	}{
		{"desk1", "abc", nil},
		{"desk1", "secret", nil},
		{"desk1", "ab", store.ErrInvalidCredentials},
		{"  ", "secret", store.ErrInvalidCredentials},
	}
	st := NewStore()
	for _, tt := range cases {
		operator, err := st.Authenticate(context.Background(), tt.username, tt.password)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("Authenticate(%q, %q) err=%v, want %v", tt.username, tt.password, err, tt.wantErr)
		}
		if err == nil && operator.Username != tt.username {
			t.Fatalf("unexpected operator %+v", operator)
		}
	}
}
