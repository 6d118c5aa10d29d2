package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageReturnsMessageID(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"chat":{"id":1133}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN")
	id, err := c.SendMessage(context.Background(), 1133, "hello", Keyboard(Row(Button("ok", "approve_T1"))))
	require.NoError(t, err)

	assert.Equal(t, int64(77), id)
	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, "Markdown", gotBody["parse_mode"])
	assert.NotNil(t, gotBody["reply_markup"])
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN")
	_, err := c.SendMessage(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestEditMessageTextStripsKeyboardByDefault(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN")
	require.NoError(t, c.EditMessageText(context.Background(), 1133, 42, "final", nil))

	markup, ok := gotBody["reply_markup"].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, markup["inline_keyboard"])
}

func TestSetWebhookSendsSecretToken(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN")
	require.NoError(t, c.SetWebhook(context.Background(), "https://relay.example.com/webhook", "s3cret"))

	assert.Equal(t, "https://relay.example.com/webhook", gotBody["url"])
	assert.Equal(t, "s3cret", gotBody["secret_token"])
}
