package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fabro-storefront/internal/config"

	"github.com/stretchr/testify/require"
)

func TestResendSendEmail(t *testing.T) {
	var got resendSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	c := NewResendClient(&config.Resend{BaseApiURL: srv.URL, APIKey: "re_test", From: "orders@fabro.in"})

	id, err := c.SendEmail(context.Background(), &EmailMessage{
		To:      "asha@example.com",
		Subject: "Order Confirmation - FABRO-20260208-A7K2M",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	require.Equal(t, "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794", id)
	require.Equal(t, "orders@fabro.in", got.From)
	require.Equal(t, []string{"asha@example.com"}, got.To)
	require.Equal(t, "<p>hi</p>", got.HTML)
}

func TestResendSendEmailFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	c := NewResendClient(&config.Resend{BaseApiURL: srv.URL, APIKey: "re_test", From: "orders@fabro.in"})

	_, err := c.SendEmail(context.Background(), &EmailMessage{To: "bad", Subject: "s", HTML: "h"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
}

func TestResendSendEmailWithoutKey(t *testing.T) {
	c := NewResendClient(&config.Resend{BaseApiURL: "http://127.0.0.1:1"})

	_, err := c.SendEmail(context.Background(), &EmailMessage{To: "a@b.c"})
	require.Error(t, err)
}
