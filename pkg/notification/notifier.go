package notification

// NotificationSystem represents a delivery channel (e.g. email, SMS).
type NotificationSystem string

// NoticeType identifies a kind of notice (e.g. "twofa_passcode").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	// TwofaPasscodeNotice carries a one-time passcode to the user
	TwofaPasscodeNotice NoticeType = "twofa_passcode"
	// TwofaEnabledNotice confirms that two-factor auth was turned on
	TwofaEnabledNotice NoticeType = "twofa_enabled"
	// TwofaDisabledNotice confirms that two-factor auth was turned off
	TwofaDisabledNotice NoticeType = "twofa_disabled"
)

// NoticeTemplate holds the subject and bodies for a registered notice.
// Text and Html are Go templates executed against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData is the per-send payload.
type NotificationData struct {
	To      string            // Recipient identifier (e.g. email address)
	Subject string            // Optional subject override
	Body    string            // Optional pre-rendered body
	Data    map[string]string // Template data
}

// Notifier delivers a notice over one channel.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
