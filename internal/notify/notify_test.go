package notify

import (
	"context"
	"testing"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func removePrompt(selected *string) domain.Prompt {
	return domain.Prompt{
		Title:   "Remove item",
		Message: "Remove this item from your cart?",
		Options: []domain.PromptOption{
			{Label: "Cancel", Style: domain.PromptStyleCancel, OnSelect: func() { *selected += "cancel" }},
			{Label: "Remove", Style: domain.PromptStyleDestructive, OnSelect: func() { *selected += "remove" }},
		},
	}
}

func TestConfirmers(t *testing.T) {
	tests := []struct {
		name      string
		confirmer domain.Confirmer
		ctx       context.Context
		want      string
	}{
		{name: "accept all", confirmer: AcceptAll(), ctx: context.Background(), want: "remove"},
		{name: "cancel all", confirmer: CancelAll(), ctx: context.Background(), want: "cancel"},
		{name: "context accept", confirmer: ContextConfirmer{}, ctx: WithDecision(context.Background(), true), want: "remove"},
		{name: "context reject", confirmer: ContextConfirmer{}, ctx: WithDecision(context.Background(), false), want: "cancel"},
		{name: "context without decision", confirmer: ContextConfirmer{}, ctx: context.Background(), want: "cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var selected string
			tt.confirmer.Confirm(tt.ctx, removePrompt(&selected))
			assert.Equal(t, tt.want, selected, "exactly one option must be selected")
		})
	}
}

func TestConfirm_SingleOptionPrompt(t *testing.T) {
	var selected string
	prompt := domain.Prompt{Options: []domain.PromptOption{
		{Label: "OK", Style: domain.PromptStyleDefault, OnSelect: func() { selected = "ok" }},
	}}

	CancelAll().Confirm(context.Background(), prompt)
	assert.Equal(t, "ok", selected)
}

func TestRecorder_DrainAndForward(t *testing.T) {
	inner := NewRecorder(nil)
	rec := NewRecorder(inner)

	rec.Notify(domain.Notification{Title: "Added to cart", Variant: domain.NotificationSuccess})
	rec.Notify(domain.Notification{Title: "Error", Variant: domain.NotificationDestructive})
	assert.Equal(t, 2, rec.Len())

	notes := rec.Drain()
	assert.Len(t, notes, 2)
	assert.Equal(t, "Added to cart", notes[0].Title)
	assert.Empty(t, rec.Drain())
	assert.Equal(t, 2, inner.Len())
}

func TestLogNotifier_DoesNotPanicWithoutMetrics(t *testing.T) {
	n := NewLogNotifier(nil, nil)
	n.Notify(domain.Notification{Title: "Sign in required", Variant: domain.NotificationDestructive})
	n.Notify(domain.Notification{Title: "Saved", Variant: domain.NotificationSuccess})
}

func TestEmit_UsesRequestRecorder(t *testing.T) {
	sink := NewRecorder(nil)
	session := NewRecorder(sink)

	first := session.Fork()
	second := session.Fork()
	ctxFirst := WithRecorder(context.Background(), first)
	ctxSecond := WithRecorder(context.Background(), second)

	Emit(ctxFirst, session, domain.Notification{Title: "Added to cart"})
	Emit(ctxSecond, session, domain.Notification{Title: "Error", Variant: domain.NotificationDestructive})
	Emit(context.Background(), session, domain.Notification{Title: "Saved"})

	assert.Equal(t, []domain.Notification{{Title: "Added to cart"}}, first.Drain())
	assert.Equal(t, "Error", second.Drain()[0].Title)
	assert.Equal(t, []domain.Notification{{Title: "Saved"}}, session.Drain())
	assert.Equal(t, 3, sink.Len(), "every notification still reaches the shared sink")

	assert.Nil(t, RecorderFrom(context.Background()))
	Emit(context.Background(), nil, domain.Notification{Title: "dropped"})
}
