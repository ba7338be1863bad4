package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name       string
		noticeType NoticeType
		system     NotificationSystem
		wantErr    bool
	}{
		{
			name:       "Valid registration",
			noticeType: TwofaPasscodeNotice,
			system:     EmailSystem,
			wantErr:    false,
		},
		{
			name:       "Empty notice type",
			noticeType: "",
			system:     EmailSystem,
			wantErr:    true,
		},
		{
			name:       "Empty system",
			noticeType: TwofaPasscodeNotice,
			system:     "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, NoticeTemplate{Subject: "s"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSend_DispatchesToRegisteredNotifier(t *testing.T) {
	nm := NewNotificationManager()
	mock := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, mock)

	err := nm.RegisterNotification(TwofaPasscodeNotice, EmailSystem, NoticeTemplate{
		Subject: "Your verification code",
		Text:    "Code: {{.Passcode}}",
	})
	require.NoError(t, err)

	err = nm.Send(TwofaPasscodeNotice, NotificationData{
		To:   "user@example.com",
		Data: map[string]string{"Passcode": "482913"},
	})
	require.NoError(t, err)

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "user@example.com", mock.SentNotifications[0].To)
	assert.Equal(t, TwofaPasscodeNotice, mock.SentNoticeTypes[0])
}

func TestSend_UnregisteredNoticeType(t *testing.T) {
	nm := NewNotificationManager()
	err := nm.Send("unknown_notice", NotificationData{To: "user@example.com"})
	assert.Error(t, err)
}

func TestSend_NotifierFailure(t *testing.T) {
	nm := NewNotificationManager()
	mock := &MockNotifier{Err: errors.New("smtp unavailable")}
	nm.RegisterNotifier(EmailSystem, mock)

	err := nm.RegisterNotification(TwofaEnabledNotice, EmailSystem, NoticeTemplate{Subject: "s"})
	require.NoError(t, err)

	err = nm.Send(TwofaEnabledNotice, NotificationData{To: "user@example.com"})
	assert.Error(t, err)
	assert.Empty(t, mock.SentNotifications)
}

func TestWithDefaultTemplates(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, &MockNotifier{}),
		WithDefaultTemplates(),
	)
	require.NoError(t, err)

	for _, nt := range []NoticeType{TwofaPasscodeNotice, TwofaEnabledNotice, TwofaDisabledNotice} {
		err := nm.Send(nt, NotificationData{To: "user@example.com", Data: map[string]string{}})
		assert.NoError(t, err, "notice type %s should be registered", nt)
	}
}
