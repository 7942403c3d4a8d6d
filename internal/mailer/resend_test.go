package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSender_Send(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"4ef9a417-02e9-4d39-ad75-9611e0fcc33c"}`))
	}))
	defer srv.Close()

	msg := testMessage()
	msg.Attachments = []Attachment{{Filename: "brief.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}}

	id, err := NewResendSender("re_test", srv.URL).Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "4ef9a417-02e9-4d39-ad75-9611e0fcc33c", id)

	assert.Equal(t, msg.From, got.From)
	assert.Equal(t, msg.To, got.To)
	assert.Equal(t, "jane@acme.io", got.ReplyTo)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "brief.pdf", got.Attachments[0].Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), got.Attachments[0].Content)
}

func TestResendSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Attachment content is invalid"}`))
	}))
	defer srv.Close()

	msg := testMessage()
	msg.Attachments = []Attachment{{Filename: "x.bin", Data: []byte{1}}}

	_, err := NewResendSender("re_test", srv.URL).Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "Attachment content is invalid")
	assert.True(t, IsAttachmentError(err))
}

func TestResendSender_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewResendSender("re_test", srv.URL).Send(context.Background(), testMessage())
	assert.Error(t, err)
}
