package main

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-client/internal/apiclient"
	"github.com/kuitang/notes-client/internal/model"
)

func TestNewBackend_SeedsAccounts(t *testing.T) {
	t.Parallel()
	seed := seedOptions{adminEmail: "a@example.com", userEmail: "u@example.com", password: "hunter22"}
	srv := httptest.NewServer(withRequestLog(newBackend(seed).Handler()))
	t.Cleanup(srv.Close)

	client := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
	ctx := context.Background()

	resp, err := client.Login(ctx, "a@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.True(t, resp.User.Roles.Has(model.RoleAdmin))

	resp, err = client.Login(ctx, "u@example.com", "hunter22")
	require.NoError(t, err)
	assert.False(t, resp.User.Roles.Has(model.RoleAdmin))

	_, err = client.Login(ctx, "u@example.com", "wrong")
	require.Error(t, err)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, newBackend(seedOptions{adminEmail: "a@example.com", userEmail: "u@example.com", password: "pw1234"}).Handler()) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}
