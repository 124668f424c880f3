package delivery

import (
	"fmt"
	"strings"
	"sync"
)

// Template ids the dispatcher selects between, keyed by how far before the due
// instant the notification fires.
const (
	TemplateAdvance = "vaccination-advance"
	TemplateDueSame = "vaccination-due"
	TemplateOverdue = "vaccination-overdue"
)

// Renderer produces localized display text for a notification. Translation is
// out of scope for the engine; implementations may delegate to an external
// service keyed on lang.
type Renderer interface {
	Render(templateID, lang string, data map[string]string) (Message, error)
}

// Template defines a reusable notification template with {{key}} placeholders.
type Template struct {
	ID    string
	Title string
	Body  string
}

// TemplateEngine is the default Renderer: template lookup plus {{key}}
// replacement. Keys present in the template but absent from data are left
// as-is.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in vaccination
// templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:    TemplateAdvance,
			Title: "Upcoming vaccination: {{vaccine}}",
			Body:  "{{vaccine}} is due on {{due_date}} at {{due_time}} ({{days_left}} day(s) from now). Please plan your visit.",
		},
		{
			ID:    TemplateDueSame,
			Title: "Vaccination due today: {{vaccine}}",
			Body:  "{{vaccine}} is due today at {{due_time}}. Do not miss it.",
		},
		{
			ID:    TemplateOverdue,
			Title: "Vaccination overdue: {{vaccine}}",
			Body:  "{{vaccine}} was due on {{due_date}}. Please visit your health centre as soon as possible.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render implements Renderer. The lang parameter is accepted for interface
// compatibility; the built-in engine only carries one locale.
func (e *TemplateEngine) Render(templateID, _ string, data map[string]string) (Message, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return Message{}, fmt.Errorf("template %q not found", templateID)
	}

	title := t.Title
	body := t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return Message{Title: title, Body: body}, nil
}
