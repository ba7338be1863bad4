package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary notifier for a system
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithTwofaPasscodeTemplate registers the passcode email template
func WithTwofaPasscodeTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(TwofaPasscodeNotice, EmailSystem, NoticeTemplate{
			Subject: "Your verification code",
			Html:    loadTemplate("templates/email/twofa_passcode.html"),
		})
	}
}

// WithTwofaEnabledTemplate registers the 2FA-enabled confirmation template
func WithTwofaEnabledTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(TwofaEnabledNotice, EmailSystem, NoticeTemplate{
			Subject: "Two-factor authentication enabled",
			Html:    loadTemplate("templates/email/twofa_enabled.html"),
		})
	}
}

// WithTwofaDisabledTemplate registers the 2FA-disabled confirmation template
func WithTwofaDisabledTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(TwofaDisabledNotice, EmailSystem, NoticeTemplate{
			Subject: "Two-factor authentication disabled",
			Html:    loadTemplate("templates/email/twofa_disabled.html"),
		})
	}
}

// WithDefaultTemplates registers all default notification templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithTwofaPasscodeTemplate(),
			WithTwofaEnabledTemplate(),
			WithTwofaDisabledTemplate(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}

		return nil
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
