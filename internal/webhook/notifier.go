// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Notifier fans alerts out to every configured webhook.
type Notifier struct {
	clients []*Client
	now     func() time.Time
}

// NotifierConfig contains configuration for the notifier
type NotifierConfig struct {
	Enabled  bool
	Webhooks []Config
}

// NewNotifier builds a notifier. A disabled or empty configuration yields a
// notifier whose Notify is a no-op.
func NewNotifier(config NotifierConfig) (*Notifier, error) {
	n := &Notifier{now: time.Now}
	if !config.Enabled || len(config.Webhooks) == 0 {
		return n, nil
	}

	for _, whConfig := range config.Webhooks {
		client, err := NewClient(whConfig)
		if err != nil {
			logger.Logger.Warn("Failed to create webhook client", "type", whConfig.Type, "error", err)
			continue
		}
		n.clients = append(n.clients, client)
	}

	if len(n.clients) == 0 {
		return nil, errors.WrapConfigError("webhooks", fmt.Errorf("no valid webhook clients could be created"))
	}
	return n, nil
}

// Notify posts subject and body to all webhooks concurrently and waits. The
// returned error joins every delivery failure.
func (n *Notifier) Notify(ctx context.Context, subject, body string) error {
	if !n.IsEnabled() {
		return nil
	}
	alert := Alert{Subject: subject, Body: body, Timestamp: n.now().UTC()}

	errs := make([]error, len(n.clients))
	var g errgroup.Group
	for i, client := range n.clients {
		g.Go(func() error {
			if err := client.Send(ctx, alert); err != nil {
				errs[i] = fmt.Errorf("%s: %w", client.Type(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := stderrors.Join(errs...); err != nil {
		logger.Logger.Error("Failed to send webhook notification", "subject", subject, "error", err)
		return err
	}
	return nil
}

// IsEnabled returns whether notifications are enabled
func (n *Notifier) IsEnabled() bool {
	return n != nil && len(n.clients) > 0
}

// ClientCount returns the number of configured webhook clients
func (n *Notifier) ClientCount() int {
	if n == nil {
		return 0
	}
	return len(n.clients)
}
