package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewReturnsNopWithoutWebhook(t *testing.T) {
	sink := New("", zerolog.Nop())
	assert.IsType(t, Nop{}, sink)

	// Safe to call.
	sink.Notify(context.Background(), "hello")
}

func TestSlackPostsTextPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewSlack(srv.URL, zerolog.Nop())
	s.Notify(context.Background(), "entry filled: A069500")

	assert.Equal(t, "entry filled: A069500", got["text"])
}

func TestSlackDeliveryFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel_is_archived", http.StatusGone)
	}))
	defer srv.Close()

	s := NewSlack(srv.URL, zerolog.Nop())
	// Must not panic or block trading logic.
	s.Notify(context.Background(), "ignored")

	// An unreachable endpoint is also fine.
	srv.Close()
	s.Notify(context.Background(), "also ignored")
}

func TestAlertName(t *testing.T) {
	assert.Equal(t, "golden cross (5MA > 20MA)", AlertName(45))
	assert.Equal(t, "new 5-day high", AlertName(29))
	assert.Equal(t, "alert(999)", AlertName(999))
}
