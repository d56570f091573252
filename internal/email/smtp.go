package email

import (
	"context"
	"fmt"
	"time"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	secure    bool
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the EMAIL_* settings.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetEmailHost(),
		port:      cfg.GetEmailPort(),
		secure:    cfg.GetEmailSecure(),
		username:  cfg.GetEmailUser(),
		password:  cfg.GetEmailPass(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

type outgoing struct {
	to      string
	cc      []string
	subject string
	text    string
	html    string
}

func (s *SMTPSender) configured() bool {
	return s.host != "" && s.username != "" && s.password != ""
}

func (s *SMTPSender) buildMessage(m outgoing) (*gomail.Msg, error) {
	from := s.fromEmail
	if from == "" {
		from = s.username
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, from); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	if len(m.cc) > 0 {
		if err := msg.Cc(m.cc...); err != nil {
			return nil, fmt.Errorf("smtp cc: %w", err)
		}
	}
	msg.Subject(m.subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.text)
	if m.html != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, m.html)
	}
	return msg, nil
}

func (s *SMTPSender) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTimeout(smtpTimeout),
	}
	if s.secure {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}
	return opts
}

func (s *SMTPSender) send(ctx context.Context, m outgoing) error {
	if !s.configured() {
		return ErrNotConfigured
	}

	msg, err := s.buildMessage(m)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendLeadNotification sends the new-lead email, copying the assigned agent.
func (s *SMTPSender) SendLeadNotification(ctx context.Context, toEmail string, lead domain.Lead) error {
	html, err := RenderLeadHTML(lead)
	if err != nil {
		return err
	}

	var cc []string
	if agentEmail := lead.AgentEmail(); agentEmail != "" {
		cc = append(cc, agentEmail)
	}

	return s.send(ctx, outgoing{
		to:      toEmail,
		cc:      cc,
		subject: LeadSubject(lead),
		text:    RenderLeadText(lead),
		html:    html,
	})
}

// SendText sends a plain-text message such as a follow-up reminder or an ops alert.
func (s *SMTPSender) SendText(ctx context.Context, toEmail, subject, text string) error {
	return s.send(ctx, outgoing{to: toEmail, subject: subject, text: text})
}
