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
	"fmt"
	"strings"
	"time"
)

// Alert is one escalation notification.
type Alert struct {
	Subject   string
	Body      string
	Timestamp time.Time
}

// SlackMessage represents Slack webhook payload
type SlackMessage struct {
	Blocks []interface{} `json:"blocks"`
	Text   string        `json:"text"`
}

// DiscordMessage represents Discord webhook payload
type DiscordMessage struct {
	Username string         `json:"username"`
	Content  string         `json:"content"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       int                `json:"color"`
	Timestamp   string             `json:"timestamp"`
	Footer      DiscordEmbedFooter `json:"footer"`
}

// DiscordEmbedFooter represents footer in Discord embed
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	slackSectionLimit    = 2900
	discordEmbedLimit    = 4000
	colorCritical        = "e67e22"
	colorExploit         = "e74c3c"
	colorDefault         = "95a5a6"
	discordUsername      = "scalewatch"
	timestampLayoutHuman = "2006-01-02 15:04:05 MST"
)

// FormatSlackMessage renders an alert as Slack blocks. Long digests are
// split across sections to stay under the per-block text limit.
func FormatSlackMessage(alert Alert) SlackMessage {
	blocks := []interface{}{
		map[string]interface{}{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": truncateString(alert.Subject, 150),
			},
		},
		map[string]interface{}{
			"type": "context",
			"elements": []interface{}{
				map[string]interface{}{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Detected:* %s", alert.Timestamp.Format(timestampLayoutHuman)),
				},
			},
		},
	}

	for _, chunk := range chunk(alert.Body, slackSectionLimit) {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("```%s```", chunk),
			},
		})
	}
	blocks = append(blocks, map[string]interface{}{"type": "divider"})

	return SlackMessage{Blocks: blocks, Text: alert.Subject}
}

// FormatDiscordMessage renders an alert as a single Discord embed.
func FormatDiscordMessage(alert Alert) DiscordMessage {
	embed := DiscordEmbed{
		Title:       truncateString(alert.Subject, 256),
		Description: fmt.Sprintf("```\n%s\n```", truncateString(alert.Body, discordEmbedLimit)),
		Color:       hexToDecimal(colorForSubject(alert.Subject)),
		Timestamp:   alert.Timestamp.Format(time.RFC3339),
		Footer:      DiscordEmbedFooter{Text: "scalewatch bytecode audit"},
	}
	return DiscordMessage{
		Username: discordUsername,
		Content:  alert.Subject,
		Embeds:   []DiscordEmbed{embed},
	}
}

func colorForSubject(subject string) string {
	switch {
	case strings.HasPrefix(subject, "Exploit"):
		return colorExploit
	case strings.HasPrefix(subject, "Critical"):
		return colorCritical
	default:
		return colorDefault
	}
}

func hexToDecimal(hex string) int {
	var value int
	fmt.Sscanf(hex, "%x", &value)
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func chunk(s string, size int) []string {
	if s == "" {
		return []string{"(no details)"}
	}
	var out []string
	for len(s) > size {
		cut := strings.LastIndex(s[:size], "\n")
		if cut <= 0 {
			cut = size
		}
		out = append(out, s[:cut])
		s = strings.TrimLeft(s[cut:], "\n")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
