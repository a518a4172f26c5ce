package notify

import (
	"context"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// AutoConfirmer всегда выбирает один и тот же ответ. Используется в тестах и фоновых сценариях.
type AutoConfirmer struct {
	accept bool
}

// AcceptAll подтверждает любой диалог.
func AcceptAll() AutoConfirmer { return AutoConfirmer{accept: true} }

// CancelAll отменяет любой диалог.
func CancelAll() AutoConfirmer { return AutoConfirmer{accept: false} }

// Confirm вызывает OnSelect выбранного варианта.
func (c AutoConfirmer) Confirm(_ context.Context, prompt domain.Prompt) {
	choose(prompt, c.accept)
}

type decisionKey struct{}

// WithDecision сохраняет решение пользователя в контексте запроса.
func WithDecision(ctx context.Context, accept bool) context.Context {
	return context.WithValue(ctx, decisionKey{}, accept)
}

// ContextConfirmer берёт решение из контекста; без решения диалог отменяется.
type ContextConfirmer struct{}

// Confirm вызывает OnSelect варианта, соответствующего решению из контекста.
func (ContextConfirmer) Confirm(ctx context.Context, prompt domain.Prompt) {
	accept, _ := ctx.Value(decisionKey{}).(bool)
	choose(prompt, accept)
}

// choose вызывает ровно один OnSelect. Подтверждением считается первый вариант не в стиле cancel.
func choose(prompt domain.Prompt, accept bool) {
	var cancel, confirm *domain.PromptOption
	for i := range prompt.Options {
		opt := &prompt.Options[i]
		if opt.Style == domain.PromptStyleCancel {
			if cancel == nil {
				cancel = opt
			}
		} else if confirm == nil {
			confirm = opt
		}
	}

	selected := cancel
	if accept {
		selected = confirm
	}
	if selected == nil {
		selected = firstNonNil(confirm, cancel)
	}
	if selected != nil && selected.OnSelect != nil {
		selected.OnSelect()
	}
}

func firstNonNil(opts ...*domain.PromptOption) *domain.PromptOption {
	for _, o := range opts {
		if o != nil {
			return o
		}
	}
	return nil
}

var (
	_ domain.Confirmer = AutoConfirmer{}
	_ domain.Confirmer = ContextConfirmer{}
)
