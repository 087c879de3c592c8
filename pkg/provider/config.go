package provider

// EmailConfig holds the Postmark credentials. Tokens are optional so local
// environments can run with email delivery disabled.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"notifications@practicedesk.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@practicedesk.app"`
}

// PushConfig holds the OneSignal credentials. AppID and APIKey are optional
// for the same reason.
type PushConfig struct {
	OneSignalAppID  string `env:"ONESIGNAL_APP_ID"`
	OneSignalAPIKey string `env:"ONESIGNAL_API_KEY"`
	OneSignalAPIURL string `env:"ONESIGNAL_API_URL" envDefault:"https://onesignal.com/api/v1"`
}
