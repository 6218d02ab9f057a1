package smtpadapter

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// Ensure Transport implements the ports.
var (
	_ port.Transport       = (*Transport)(nil)
	_ port.TransportHealth = (*Transport)(nil)
)

// Transport delivers mail over SMTP with STARTTLS, one connection per
// send. Each sender authenticates with its own credential, so there is no
// shared client to pool.
type Transport struct {
	host string
	port int
}

// New returns a transport for the given SMTP relay.
func New(host string, smtpPort int) *Transport {
	return &Transport{host: host, port: smtpPort}
}

// Send attempts exactly one delivery. The context bounds the whole
// attempt; a hung relay returns ctx.Err() instead of blocking the
// dispatch loop forever. Credential rejections are classified as
// *port.AuthError so the rotator can exclude the sender for the cycle.
func (t *Transport) Send(ctx context.Context, sender domain.Sender, recipient, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n",
		sender.Email, recipient, subject, body))
	auth := smtp.PlainAuth("", sender.Email, sender.Password, t.host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, sender.Email, []string{recipient}, msg)
	}()

	select {
	case err := <-done:
		return classify(sender.Email, err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckSender probes the credential with a login and immediate quit. The
// result is advisory; dispatch eligibility never depends on it.
func (t *Transport) CheckSender(ctx context.Context, sender domain.Sender) error {
	done := make(chan error, 1)
	go func() {
		done <- t.login(sender)
	}()

	select {
	case err := <-done:
		return classify(sender.Email, err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) login(sender domain.Sender) error {
	c, err := smtp.Dial(fmt.Sprintf("%s:%d", t.host, t.port))
	if err != nil {
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err = c.StartTLS(&tls.Config{ServerName: t.host}); err != nil {
			return err
		}
	}
	if err = c.Auth(smtp.PlainAuth("", sender.Email, sender.Password, t.host)); err != nil {
		return err
	}
	return c.Quit()
}

// classify maps SMTP authentication reply codes onto port.AuthError.
func classify(sender string, err error) error {
	if err == nil {
		return nil
	}
	var reply *textproto.Error
	if errors.As(err, &reply) {
		switch reply.Code {
		case 530, 534, 535:
			return &port.AuthError{Sender: sender, Err: err}
		}
	}
	return err
}
