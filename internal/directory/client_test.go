package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret-token", "tenant-1", time.Second)
}

func TestClientSendsBearerAuthAndTenantPath(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(Member{AccountID: "acct-a", Rank: 3})
	})

	member, err := client.Member(context.Background(), "acct-a")
	require.NoError(t, err)
	assert.Equal(t, "/v1/tenants/tenant-1/members/acct-a", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, 3, member.Rank)
}

func TestClientErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, shared.ErrPermission},
		{http.StatusForbidden, shared.ErrPermission},
		{http.StatusNotFound, shared.ErrNotFound},
		{http.StatusTooManyRequests, shared.ErrTransient},
		{http.StatusInternalServerError, shared.ErrTransient},
		{http.StatusBadGateway, shared.ErrTransient},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		err := client.GrantMarker(context.Background(), "acct-a", "marker-1")
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestClientTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(srv.URL, "t", "tenant-1", time.Second)
	srv.Close()

	err := client.SendNotification(context.Background(), "acct-a", "hello")
	require.ErrorIs(t, err, shared.ErrTransient)
}

func TestClientNotificationPayload(t *testing.T) {
	var got notification
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/tenants/tenant-1/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, client.SendNotification(context.Background(), "acct-a", "your leave has started"))
	assert.Equal(t, "acct-a", got.AccountID)
	assert.Equal(t, "your leave has started", got.Message)
}

func TestHasMarker(t *testing.T) {
	m := Member{MarkerIDs: []string{"a", "b"}}
	assert.True(t, m.HasMarker("b"))
	assert.False(t, m.HasMarker("c"))
}
