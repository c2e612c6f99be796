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
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/internal/request"
)

// SystemErrorEvent is the webhook event emitted for store and provider failures.
const SystemErrorEvent = "system.error"

// WebhookSender forwards an event to the configured webhook pipeline. It is
// registered by the service at start up so this package stays free of import
// cycles.
type WebhookSender func(event string, payload interface{}) error

var (
	senderMu      sync.RWMutex
	webhookSender WebhookSender
)

// RegisterWebhookSender installs the sender used by NotifyError. A later call
// replaces the previous sender.
func RegisterWebhookSender(sender WebhookSender) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func currentSender() WebhookSender {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

func slackPayload(err error, at time.Time) json.RawMessage {
	msg, _ := json.Marshal(fmt.Sprintf("*Error:*\n%v", err.Error()))
	ts, _ := json.Marshal(fmt.Sprintf("*Time:*\n%v", at.Format(time.RFC822)))
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Error From BancoCred 🐞",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [{"type": "mrkdwn", "text": %s}]
			},
			{
				"type": "section",
				"fields": [{"type": "mrkdwn", "text": %s}]
			}
		]
	}`, msg, ts))
}

// SlackNotification posts err to the Slack incoming webhook at webhookURL.
func SlackNotification(ctx context.Context, webhookURL string, err error) error {
	data := slackPayload(err, time.Now())

	payload, err := request.ToJsonReq(&data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, payload)
	if err != nil {
		return err
	}

	// Slack answers with a plain "ok" body, so the response is not decoded.
	_, err = request.Call(req, nil)
	return err
}

// NotifyError reports a system error without blocking the caller. The error is
// logged, posted to Slack when a webhook URL is configured and forwarded to
// the registered webhook sender.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Error(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := SlackNotification(ctx, conf.Notification.Slack.WebhookUrl, systemError); err != nil {
				logrus.Errorf("slack notification failed: %v", err)
			}
		}

		if sender := currentSender(); sender != nil {
			payload := map[string]interface{}{
				"error":     systemError.Error(),
				"timestamp": time.Now().UTC(),
			}
			if err := sender(SystemErrorEvent, payload); err != nil {
				logrus.Errorf("system error webhook failed: %v", err)
			}
		}
	}(systemError)
}
