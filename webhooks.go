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

package bancocred

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/internal/request"
)

// WEBHOOK_QUEUE is the asynq queue and task type used for webhook delivery.
const WEBHOOK_QUEUE = "bancocred_webhook_queue"

// NewWebhook is the body posted to the configured webhook URL.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// processHTTP posts data to the configured webhook URL with the configured
// headers.
func processHTTP(ctx context.Context, conf *config.Configuration, data NewWebhook) error {
	body, err := request.ToJsonReq(data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, body)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	if _, err := request.Call(req, nil); err != nil {
		logrus.WithError(err).WithField("event", data.Event).Error("webhook delivery failed")
		return err
	}
	logrus.WithField("event", data.Event).Info("webhook notification sent")
	return nil
}

// SendWebhook enqueues a webhook notification. It is a no-op when no webhook
// URL is configured.
func SendWebhook(newWebhook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := json.Marshal(newWebhook)
	if err != nil {
		return err
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: conf.Redis.Dns})
	defer func() {
		_ = client.Close()
	}()

	task := asynq.NewTask(WEBHOOK_QUEUE, payload, asynq.Queue(WEBHOOK_QUEUE), asynq.MaxRetry(5))
	info, err := client.Enqueue(task)
	if err != nil {
		logrus.WithError(err).WithField("event", newWebhook.Event).Error("failed to enqueue webhook")
		return err
	}
	logrus.WithField("task_id", info.ID).Debug("webhook enqueued")
	return nil
}

// ProcessWebhook is the asynq handler for WEBHOOK_QUEUE tasks.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("error unmarshaling webhook task payload")
		return err
	}
	return processHTTP(ctx, conf, payload)
}
