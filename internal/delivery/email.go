package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Email sends the "Budget Limit Exceeded" mail over SMTP with PLAIN auth.
type Email struct {
	Host     string
	Port     string
	User     string
	Pass     string
	To       string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(host, port, user, pass, to string) *Email {
	return &Email{Host: host, Port: port, User: user, Pass: pass, To: to, sendMail: smtp.SendMail}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Deliver(ctx context.Context, a BudgetAlert) error {
	if e.User == "" || e.Pass == "" || e.To == "" {
		return errors.New("email credentials or recipient not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := budgetExceededMail(e.User, e.To, a)
	auth := smtp.PlainAuth("", e.User, e.Pass, e.Host)
	if err := e.sendMail(net.JoinHostPort(e.Host, e.Port), auth, e.User, []string{e.To}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func budgetExceededMail(from, to string, a BudgetAlert) []byte {
	const boundary = "chainspend-alert"
	amount := a.Overage.String() + " " + a.Currency

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Budget Limit Exceeded\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("Alert! You have exceeded your budget by " + amount + ".\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString("<h2>Budget Alert</h2>\r\n")
	b.WriteString("<p>Your crypto spending has exceeded the budget limit.</p>\r\n")
	b.WriteString("<p>Amount over budget: <strong>" + amount + "</strong></p>\r\n")
	b.WriteString("<p>Please review your transactions and adjust your spending accordingly.</p>\r\n")
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}
