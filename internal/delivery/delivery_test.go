package delivery

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

var alert = BudgetAlert{UserID: 1, Message: "over", Overage: decimal.RequireFromString("0.5"), Currency: "ETH"}

func TestEmailDeliver(t *testing.T) {
	e := NewEmail("smtp.example.com", "587", "me@example.com", "secret", "you@example.com")
	var gotAddr string
	var gotMsg []byte
	e.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		if from != "me@example.com" || len(to) != 1 || to[0] != "you@example.com" {
			t.Fatalf("unexpected envelope from=%s to=%v", from, to)
		}
		return nil
	}

	if err := e.Deliver(context.Background(), alert); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %s", gotAddr)
	}
	body := string(gotMsg)
	if !strings.Contains(body, "Subject: Budget Limit Exceeded") || !strings.Contains(body, "0.5 ETH") {
		t.Fatalf("unexpected mail body:\n%s", body)
	}
}

func TestEmailRequiresCredentials(t *testing.T) {
	e := NewEmail("smtp.example.com", "587", "", "", "you@example.com")
	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not send without credentials")
		return nil
	}
	if err := e.Deliver(context.Background(), alert); err == nil {
		t.Fatal("expected error without credentials")
	}
}

type fakeSender struct {
	channel, content string
	err              error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.content = channelID, content
	return &discordgo.Message{}, f.err
}

func TestDiscordDeliver(t *testing.T) {
	s := &fakeSender{}
	d := &Discord{sender: s, channelID: "123"}
	if err := d.Deliver(context.Background(), alert); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if s.channel != "123" || !strings.Contains(s.content, "0.5 ETH") {
		t.Fatalf("unexpected message to %s: %q", s.channel, s.content)
	}
}

type failing struct{ name string }

func (f failing) Name() string                               { return f.name }
func (f failing) Deliver(context.Context, BudgetAlert) error { return errors.New("boom") }

func TestMultiJoinsErrors(t *testing.T) {
	m := Multi{Noop{}, failing{"a"}, failing{"b"}}
	err := m.Deliver(context.Background(), alert)
	if err == nil {
		t.Fatal("expected joined error")
	}
	var ce *ChannelError
	if !errors.As(err, &ce) || ce.Channel != "a" {
		t.Fatalf("expected first channel error for a, got %v", err)
	}
	if !strings.Contains(err.Error(), "b: boom") {
		t.Fatalf("expected b in error, got %v", err)
	}
}
