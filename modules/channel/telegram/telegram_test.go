package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/internal/gateway"
	"github.com/flemzord/sigma/pkg/message"
	"gopkg.in/yaml.v3"
)

func configure(t *testing.T, tg *Telegram, src string) {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	if err := tg.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
}

func TestModuleRegistered(t *testing.T) {
	info, ok := core.GetModule("channel.telegram")
	if !ok {
		t.Fatal("channel.telegram not registered")
	}
	if _, ok := info.New().(*Telegram); !ok {
		t.Errorf("New() returned %T, want *Telegram", info.New())
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.defaults()

	if cfg.Mode != "polling" {
		t.Errorf("Mode = %q, want polling", cfg.Mode)
	}
	if cfg.PollingTimeout != 30 {
		t.Errorf("PollingTimeout = %d, want 30", cfg.PollingTimeout)
	}
	if cfg.MaxMessageLength != 4096 {
		t.Errorf("MaxMessageLength = %d, want 4096", cfg.MaxMessageLength)
	}
	if cfg.APIURL != "https://api.telegram.org" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "invalid token", mutate: func(c *Config) { c.Token = "not-a-token" }, wantErr: "token format"},
		{name: "invalid api url", mutate: func(c *Config) { c.APIURL = "ftp://example.com" }, wantErr: "api_url"},
		{name: "polling timeout too high", mutate: func(c *Config) { c.PollingTimeout = 51 }, wantErr: "polling_timeout"},
		{name: "max length too high", mutate: func(c *Config) { c.MaxMessageLength = 5000 }, wantErr: "max_message_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Token: "123456:ABC-def_ghi"}
			cfg.defaults()
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"empty token", `mode: polling`, true},
		{"invalid mode", "token: \"1:A\"\nmode: carrier-pigeon", true},
		{"webhook without url", "token: \"1:A\"\nmode: webhook", true},
		{"webhook with url", "token: \"1:A\"\nmode: webhook\nwebhook_url: https://example.com/webhooks/telegram", false},
		{"polling", "token: \"1:A\"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &Telegram{}
			configure(t, tg, tt.yaml)
			if err := tg.Provision(core.NewAppContext(discardLogger(), t.TempDir())); err != nil {
				t.Fatalf("Provision() error: %v", err)
			}
			err := tg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartRequiresInbox(t *testing.T) {
	tg := &Telegram{}
	configure(t, tg, `token: "1:A"`)
	if err := tg.Provision(core.NewAppContext(discardLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := tg.Start(); !errors.Is(err, channel.ErrNoInbox) {
		t.Errorf("Start() error = %v, want ErrNoInbox", err)
	}
}

// fakeBotAPI serves getMe, a single getUpdates batch, sendMessage and
// sendChatAction, recording every sendMessage request.
type fakeBotAPI struct {
	t       *testing.T
	mu      sync.Mutex
	sent    []SendMessageRequest
	typing  int
	webhook *SetWebhookRequest
	updates []Update
	served  bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		writeJSON(f.t, w, APIResponse[User]{OK: true, Result: User{ID: 1, IsBot: true, FirstName: "Sigma", Username: "sigma_bot"}})
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		if !f.served {
			f.served = true
			writeJSON(f.t, w, APIResponse[[]Update]{OK: true, Result: f.updates})
			return
		}
		f.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		f.mu.Lock()
		writeJSON(f.t, w, APIResponse[[]Update]{OK: true, Result: []Update{}})
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var req SendMessageRequest
		_ = json.Unmarshal(body, &req)
		f.sent = append(f.sent, req)
		writeJSON(f.t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: len(f.sent)}})
	case strings.HasSuffix(r.URL.Path, "/sendChatAction"):
		f.typing++
		writeJSON(f.t, w, APIResponse[bool]{OK: true, Result: true})
	case strings.HasSuffix(r.URL.Path, "/setWebhook"):
		var req SetWebhookRequest
		_ = json.Unmarshal(body, &req)
		f.webhook = &req
		writeJSON(f.t, w, APIResponse[bool]{OK: true, Result: true})
	case strings.HasSuffix(r.URL.Path, "/deleteWebhook"):
		writeJSON(f.t, w, APIResponse[bool]{OK: true, Result: true})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (f *fakeBotAPI) sentMessages() []SendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SendMessageRequest(nil), f.sent...)
}

// TestLifecycle exercises Configure → Provision → Validate → Start →
// inbound message → outbound reply → Stop against a fake Bot API.
func TestLifecycle(t *testing.T) {
	api := &fakeBotAPI{t: t, updates: []Update{{
		UpdateID: 1,
		Message: &Message{
			MessageID: 100,
			From:      &User{ID: 42, FirstName: "Ada", Username: "ada"},
			Chat:      Chat{ID: 42, Type: "private"},
			Text:      "/start",
			Entities:  []MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			Date:      int(time.Now().Unix()),
		},
	}}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tg := &Telegram{}
	configure(t, tg, `
token: "1:TEST"
polling_timeout: 0
max_message_length: 10
allow_users: ["42"]
api_url: "`+srv.URL+`"
`)
	if err := tg.Provision(core.NewAppContext(discardLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := tg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	inbound := make(chan message.InboundMessage, 1)
	tg.SetInbox(func(msg message.InboundMessage) error {
		inbound <- msg
		return nil
	})

	if err := tg.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer func() {
		if err := tg.Stop(context.Background()); err != nil {
			t.Errorf("Stop() error: %v", err)
		}
	}()

	if tg.BotUsername() != "sigma_bot" {
		t.Errorf("BotUsername() = %q, want sigma_bot", tg.BotUsername())
	}

	var msg message.InboundMessage
	select {
	case msg = <-inbound:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
	if !msg.IsCommand("start") {
		t.Errorf("Command = %+v, want start", msg.Command)
	}
	if msg.Channel != "channel.telegram" {
		t.Errorf("Channel = %q, want channel.telegram", msg.Channel)
	}

	if err := tg.SendTyping(context.Background(), msg.Chat); err != nil {
		t.Fatalf("SendTyping() error: %v", err)
	}

	// 10-byte limit forces the reply into two chunks; only the first replies.
	if err := tg.Send(context.Background(), message.ReplyTo(msg, "Hey there\nfriend")); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	sent := api.sentMessages()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2: %+v", len(sent), sent)
	}
	if sent[0].ChatID != 42 || sent[0].ReplyToMessageID != 100 {
		t.Errorf("sent[0] = %+v", sent[0])
	}
	if sent[1].ReplyToMessageID != 0 {
		t.Errorf("sent[1].ReplyToMessageID = %d, want 0", sent[1].ReplyToMessageID)
	}
	if sent[0].Text != "Hey there" || sent[1].Text != "friend" {
		t.Errorf("chunks = %q, %q", sent[0].Text, sent[1].Text)
	}
}

func TestWebhookModeRegistersWithGateway(t *testing.T) {
	api := &fakeBotAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	dispatcher := gateway.NewWebhookDispatcher(discardLogger())
	appCtx.RegisterService(gateway.DispatcherServiceName, dispatcher)

	tg := &Telegram{}
	configure(t, tg, `
token: "1:TEST"
mode: webhook
webhook_url: https://bot.example.com/webhooks/telegram
webhook_secret: s3cret
api_url: "`+srv.URL+`"
`)
	if err := tg.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	tg.SetInbox(func(message.InboundMessage) error { return nil })
	if err := tg.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer func() { _ = tg.Stop(context.Background()) }()

	if !dispatcher.Has("telegram") {
		t.Error("telegram source not registered with the dispatcher")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.webhook == nil {
		t.Fatal("setWebhook not called")
	}
	if api.webhook.SecretToken != "s3cret" {
		t.Errorf("SecretToken = %q, want s3cret", api.webhook.SecretToken)
	}
}

func TestWebhookModeWithoutGateway(t *testing.T) {
	api := &fakeBotAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tg := &Telegram{}
	configure(t, tg, `
token: "1:TEST"
mode: webhook
webhook_url: https://bot.example.com/webhooks/telegram
api_url: "`+srv.URL+`"
`)
	if err := tg.Provision(core.NewAppContext(discardLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	tg.SetInbox(func(message.InboundMessage) error { return nil })
	if err := tg.Start(); err == nil {
		t.Fatal("Start() succeeded without a gateway")
	}
}
