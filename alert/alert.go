// Package alert e-mails a chosen subset of pushed door messages.
package alert

import (
	"context"
	"strings"
	"time"

	mailgun "github.com/mailgun/mailgun-go/v3"

	"coopdoor/logging"
)

const sendTimeout = 10 * time.Second

// Config holds Mailgun settings. Alerts are off unless Domain is set.
type Config struct {
	Domain     string   `yaml:"domain"`
	APIKey     string   `yaml:"api_key"`
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`

	// Match lists substrings of pushed messages that trigger a mail.
	// Default: automatic door moves.
	Match []string `yaml:"match"`
}

var defaultMatch = []string{"DM:0", "DM:1"}

// subjects names the well-known pushes.
var subjects = map[string]string{
	"DM:0": "door closed",
	"DM:1": "door opened",
}

// Mailer sends alerts. It implements the hatch notifier.
type Mailer struct {
	name  string
	match []string
	send  func(subject, body string) error
	log   *logging.Logger
}

// New creates a Mailer for cfg. Returns nil if no domain is configured.
func New(cfg Config, clientID string, log *logging.Logger) *Mailer {
	if cfg.Domain == "" {
		return nil
	}
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	return newMailer(cfg, clientID, log, func(subject, body string) error {
		message := mg.NewMessage(cfg.Sender, subject, body, cfg.Recipients...)

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		_, _, err := mg.Send(ctx, message)
		return err
	})
}

func newMailer(cfg Config, clientID string, log *logging.Logger, send func(subject, body string) error) *Mailer {
	m := &Mailer{
		name:  clientID,
		match: cfg.Match,
		send:  send,
		log:   logging.OrDiscard(log).With("component", "alert"),
	}
	if len(m.match) == 0 {
		m.match = defaultMatch
	}
	return m
}

// Notify mails msg in the background if it matches.
func (m *Mailer) Notify(msg string) {
	subject, ok := m.subject(msg)
	if !ok {
		return
	}
	go func() {
		if err := m.send(subject, msg); err != nil {
			m.log.Warn("alert not sent", "subject", subject, "error", err)
		}
	}()
}

func (m *Mailer) subject(msg string) (string, bool) {
	for _, pattern := range m.match {
		if !strings.Contains(msg, pattern) {
			continue
		}
		what, ok := subjects[pattern]
		if !ok {
			what = pattern
		}
		return "coopdoor " + m.name + ": " + what, true
	}
	return "", false
}
