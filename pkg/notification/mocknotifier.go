package notification

// MockNotifier records every notification it is asked to send.
// Useful for tests and for running the server without an SMTP relay.
type MockNotifier struct {
	SentNotifications []NotificationData
	SentNoticeTypes   []NoticeType

	// Err, when set, is returned from Send to simulate dispatch failure
	Err error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentNoticeTypes = append(m.SentNoticeTypes, noticeType)
	return nil
}
