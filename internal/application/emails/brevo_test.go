package emails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoClient_NoAPIKeyIsNoop(t *testing.T) {
	c := &BrevoClient{Endpoint: "http://127.0.0.1:1"}
	assert.NoError(t, c.SendWelcome(context.Background(), "a@b.com", "Ann"))
}

func TestBrevoClient_SendDonationNotice(t *testing.T) {
	var got BrevoSendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", MailFrom: "team@handover.test", SiteURL: "https://handover.test/", Endpoint: srv.URL}
	require.NoError(t, c.SendDonationNotice(context.Background(), "rita@example.com", "Rita", "Oak <table>"))

	assert.Equal(t, "k", apiKey)
	assert.Equal(t, "team@handover.test", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "rita@example.com", got.To[0].Email)
	assert.Equal(t, "Oak <table> is yours", got.Subject)
	assert.Contains(t, got.HTMLContent, "Oak &lt;table&gt;")
	assert.Contains(t, got.HTMLContent, "https://handover.test/messages")
}

func TestBrevoClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", Endpoint: srv.URL}
	assert.Error(t, c.SendWelcome(context.Background(), "a@b.com", ""))
}
