/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webedmilson/bancoCred/config"
)

func TestRegisterWebhookSender_ReplacesPrevious(t *testing.T) {
	defer RegisterWebhookSender(nil)

	callCount := 0
	RegisterWebhookSender(func(event string, payload interface{}) error {
		callCount = 1
		return nil
	})
	RegisterWebhookSender(func(event string, payload interface{}) error {
		callCount = 2
		return nil
	})

	_ = currentSender()("test.event", nil)
	assert.Equal(t, 2, callCount)
}

func TestSlackPayload_IsValidJSON(t *testing.T) {
	// quotes and newlines in the error text must not break the payload
	payload := slackPayload(errors.New(`store failure: "accounts" unavailable`+"\n"), time.Now())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Len(t, decoded["blocks"], 3)
}

func TestSlackNotification(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	err := SlackNotification(context.Background(), server.URL, errors.New("boom"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "boom")
	assert.Contains(t, string(body), "Error From BancoCred")
}

func TestSlackNotification_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := SlackNotification(context.Background(), server.URL, errors.New("boom"))
	assert.Error(t, err)
}

func TestNotifyError_ForwardsToWebhookSender(t *testing.T) {
	config.MockConfig(&config.Configuration{})
	defer RegisterWebhookSender(nil)

	events := make(chan string, 1)
	RegisterWebhookSender(func(event string, payload interface{}) error {
		p := payload.(map[string]interface{})
		events <- event + "|" + p["error"].(string)
		return nil
	})

	NotifyError(errors.New("database down"))

	select {
	case got := <-events:
		assert.Equal(t, SystemErrorEvent+"|database down", got)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook sender was not called")
	}
}
