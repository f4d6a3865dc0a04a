package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPSender implements Sender with a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("smtp send panic: %v", r)}
		}
	}()

	if msg.To == "" {
		return Result{Err: errors.New("smtp to: empty recipient")}
	}

	m, err := s.build(msg)
	if err != nil {
		return Result{Err: err}
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return Result{Err: fmt.Errorf("smtp client: %w", err)}
	}

	sendCtx, cancel := context.WithTimeout(ctx, smtpTimeout)
	defer cancel()
	if err := client.DialAndSendWithContext(sendCtx, m); err != nil {
		return Result{Err: fmt.Errorf("smtp send: %w", err)}
	}

	return Result{Success: true, MessageID: m.GetMessageID()}
}

func (s *SMTPSender) build(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()

	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	html := msg.HTML
	if html == "" {
		html = msg.Text
	}
	m.AddAlternativeString(gomail.TypeTextHTML, html)
	return m, nil
}
