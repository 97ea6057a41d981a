package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRestProviderDeleteAccount(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		status  int
		wantErr error
		fails   bool
	}{
		{status: http.StatusNoContent},
		{status: http.StatusOK},
		{status: http.StatusNotFound},
		{status: http.StatusUnauthorized, wantErr: ErrUnauthorized, fails: true},
		{status: http.StatusForbidden, wantErr: ErrUnauthorized, fails: true},
		{status: http.StatusInternalServerError, fails: true},
	}

	for _, tc := range cases {
		var method, path, auth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			path = r.URL.Path
			auth = r.Header.Get("Authorization")
			w.WriteHeader(tc.status)
		}))

		provider := &RestProvider{BaseUrl: server.URL + "/", AdminToken: "admin-secret", Timeout: time.Second}
		err := provider.DeleteAccount(context.Background(), "bob@x.com")
		server.Close()

		assert.Equal(http.MethodDelete, method, tc.status)
		assert.Equal("/users/bob@x.com", path, tc.status)
		assert.Equal("Bearer admin-secret", auth, tc.status)
		if !tc.fails {
			assert.NoError(err, tc.status)
			continue
		}
		assert.Error(err, tc.status)
		if tc.wantErr != nil {
			assert.ErrorIs(err, tc.wantErr, tc.status)
		}
	}
}

func TestRestProviderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &RestProvider{BaseUrl: "http://127.0.0.1:1"}
	assert.ErrorIs(t, provider.DeleteAccount(ctx, "bob@x.com"), context.Canceled)
}
