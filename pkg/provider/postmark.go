package provider

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers notification emails through Postmark's
// transactional API.
type PostmarkSender struct {
	client  *postmark.Client
	cfg     EmailConfig
	enabled bool
}

// NewPostmarkSender builds the email adapter. Missing tokens yield a
// disabled adapter rather than an error: the rest of the pipeline keeps
// working without the channel.
func NewPostmarkSender(cfg EmailConfig) *PostmarkSender {
	s := &PostmarkSender{cfg: cfg}
	if cfg.PostmarkServerToken != "" && cfg.SenderEmail != "" {
		s.client = postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
		s.enabled = true
	}
	return s
}

func (s *PostmarkSender) Name() string { return "postmark" }

func (s *PostmarkSender) Enabled() bool { return s.enabled }

func (s *PostmarkSender) Send(ctx context.Context, address string, msg Message) error {
	if !s.enabled {
		return ErrChannelDisabled
	}
	if address == "" {
		return fmt.Errorf("%w: empty recipient address", ErrSendFailed)
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.cfg.SenderEmail,
		ReplyTo:    s.cfg.SupportEmail,
		To:         address,
		Subject:    msg.Title,
		Tag:        "notification",
		HTMLBody:   renderEmailBody(msg),
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

// renderEmailBody produces a minimal HTML body; all user-originated text is
// escaped.
func renderEmailBody(msg Message) string {
	body := fmt.Sprintf("<h2>%s</h2><p>%s</p>",
		html.EscapeString(msg.Title), html.EscapeString(msg.Body))
	if msg.URL != "" {
		body += fmt.Sprintf(`<p><a href="%s">View in PracticeDesk</a></p>`,
			html.EscapeString(msg.URL))
	}
	return body
}
