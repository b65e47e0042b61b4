package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/Skotchmaster/sweet_shop/pkg/config"
)

var (
	ErrNotConfigured    = errors.New("mail: MAIL_USERNAME not configured")
	ErrInvalidRecipient = errors.New("mail: invalid recipient")
)

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTP struct {
	cfg     config.Mail
	timeout time.Duration
}

func NewSMTP(cfg config.Mail) *SMTP {
	return &SMTP{cfg: cfg, timeout: 10 * time.Second}
}

func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.cfg.Username == "" {
		return ErrNotConfigured
	}
	rcpt, err := recipient(to)
	if err != nil {
		return err
	}

	raw := BuildMessage(s.cfg.FromName, s.cfg.From, rcpt, subject, htmlBody)
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.deliver(addr, auth, rcpt, raw)
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mail: send to %s: %w", rcpt, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mail: send to %s: timeout", rcpt)
	}
}

// recipient returns the bare address, rejecting anything that could inject
// extra headers.
func recipient(to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRecipient)
	}
	if strings.ContainsAny(to, "\r\n") {
		return "", fmt.Errorf("%w: line break in address", ErrInvalidRecipient)
	}
	a, err := netmail.ParseAddress(to)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRecipient, err)
	}
	return a.Address, nil
}

// deliver runs the whole SMTP exchange under one connection deadline, so a
// stalled server cannot hold the goroutine past the send timeout.
func (s *SMTP) deliver(addr string, auth smtp.Auth, to string, raw []byte) error {
	dialer := &net.Dialer{Timeout: s.timeout}
	implicitTLS := s.cfg.Port == "465"

	var conn net.Conn
	var err error
	if implicitTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		_ = conn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if !implicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func BuildMessage(fromName, from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + mime.QEncoding.Encode("utf-8", fromName) + " <" + from + ">\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
