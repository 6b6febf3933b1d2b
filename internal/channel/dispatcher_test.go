package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/internal/channel/channeltest"
	"github.com/flemzord/sigma/pkg/message"
)

func TestDispatcher_RegisterAndSend(t *testing.T) {
	t.Parallel()
	d := channel.NewDispatcher()
	ch := channeltest.NewMockChannel("telegram", nil)

	if err := d.Register(ch.ID(), ch); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Register(ch.ID(), ch); !errors.Is(err, channel.ErrDuplicateChannel) {
		t.Errorf("second Register = %v, want ErrDuplicateChannel", err)
	}

	msg := message.NewTextMessage(ch.ID(), message.Chat{ID: "1"}, "hello")
	if err := d.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent := ch.SentMessages(); len(sent) != 1 || sent[0].Text != "hello" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestDispatcher_SendUnknown(t *testing.T) {
	t.Parallel()
	d := channel.NewDispatcher()
	err := d.Send(context.Background(), message.NewTextMessage("nope", message.Chat{}, "x"))
	if !errors.Is(err, channel.ErrNoChannel) {
		t.Errorf("err = %v, want ErrNoChannel", err)
	}
}

func TestDispatcher_Channels(t *testing.T) {
	t.Parallel()
	d := channel.NewDispatcher()
	_ = d.Register("b", channeltest.NewMockChannel("b", nil))
	_ = d.Register("a", channeltest.NewMockChannel("a", nil))

	got := d.Channels()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Channels = %v", got)
	}
}

func TestDispatcher_Typing(t *testing.T) {
	t.Parallel()
	d := channel.NewDispatcher()
	ch := channeltest.NewMockChannel("telegram", nil)
	_ = d.Register(ch.ID(), ch)

	chat := message.Chat{ID: "42"}
	stop := d.Typing(context.Background(), ch.ID(), chat)
	stop()
	stop()

	typed := ch.TypingChats()
	if len(typed) == 0 || typed[0] != chat {
		t.Errorf("typing chats = %+v", typed)
	}

	// Unknown channels yield a no-op stop.
	d.Typing(context.Background(), "missing", chat)()
}

func TestKeepTyping_Repeats(t *testing.T) {
	t.Parallel()
	ch := channeltest.NewMockChannel("telegram", nil)

	stop := channel.KeepTyping(context.Background(), ch, message.Chat{ID: "1"}, 10*time.Millisecond)
	deadline := time.After(2 * time.Second)
	for len(ch.TypingChats()) < 3 {
		select {
		case <-deadline:
			t.Fatal("typing indicator not repeated")
		case <-time.After(5 * time.Millisecond):
		}
	}
	stop()

	n := len(ch.TypingChats())
	time.Sleep(30 * time.Millisecond)
	if len(ch.TypingChats()) != n {
		t.Error("typing continued after stop")
	}
}

func TestMockChannel_SimulateMessage(t *testing.T) {
	t.Parallel()
	ch := channeltest.NewMockChannel("telegram", channel.NewAllowList([]string{"1"}, nil))

	if err := ch.SimulateMessage(message.InboundMessage{Sender: message.Sender{ID: "1"}}); !errors.Is(err, channel.ErrNoInbox) {
		t.Errorf("err = %v, want ErrNoInbox", err)
	}

	var got message.InboundMessage
	ch.SetInbox(func(m message.InboundMessage) error { got = m; return nil })

	if err := ch.SimulateMessage(message.InboundMessage{Sender: message.Sender{ID: "2"}}); !errors.Is(err, channel.ErrDenied) {
		t.Errorf("err = %v, want ErrDenied", err)
	}
	if err := ch.SimulateMessage(message.InboundMessage{Sender: message.Sender{ID: "1"}, Text: "hi"}); err != nil {
		t.Fatalf("SimulateMessage: %v", err)
	}
	if got.Channel != "channel.telegram" || got.Text != "hi" {
		t.Errorf("delivered = %+v", got)
	}
}
