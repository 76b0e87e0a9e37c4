package html

import (
	"context"

	"github.com/a-h/templ"
)

// Step is one entry of the stage indicator.
type Step struct {
	Key   string
	Label string
}

// Steps are the workflow stages in order.
var Steps = []Step{
	{Key: "loading", Label: "Loading"},
	{Key: "transfer", Label: "Stock Transfer"},
	{Key: "picking", Label: "Picking"},
	{Key: "gross", Label: "Gross Weight"},
}

// Layout wraps body in the page shell. current is the active stage key;
// stages before it render as done.
func Layout(title, current string, body templ.Component) templ.Component {
	return View(func(ctx context.Context, p *Writer) {
		p.Raw(`<!doctype html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.Printf(`<title>%s · Dock-out</title>`, title)
		p.Raw(`<link rel="stylesheet" href="/assets/app.css"></head><body><header class="topbar"><span class="brand">Dock-out</span><ol class="steps">`)
		done := true
		for _, s := range Steps {
			class := "step"
			switch {
			case s.Key == current:
				class += " step-current"
				done = false
			case done && current != "":
				class += " step-done"
			}
			p.Printf(`<li class="%s">%s</li>`, class, s.Label)
		}
		p.Raw(`</ol><a class="link" href="/exports">Exports</a><a class="link" href="/help">Help</a></header><main class="container">`)
		p.Component(ctx, body)
		p.Raw(`</main>`)
		p.Raw(CSRFFormScript())
		p.Raw(`</body></html>`)
	})
}

// Alert renders a dismissable message box. kind is success, warning or error.
func Alert(kind, title, message string) templ.Component {
	return View(func(_ context.Context, p *Writer) {
		if message == "" {
			return
		}
		p.Printf(`<div class="alert alert-%s" role="alert"><strong>%s</strong> <span>%s</span></div>`, kind, title, message)
	})
}

// StatusBadge renders a group or validation status.
func StatusBadge(status string) templ.Component {
	return View(func(_ context.Context, p *Writer) {
		if status == "" {
			return
		}
		p.Printf(`<span class="badge badge-%s">%s</span>`, status, status)
	})
}

// PostButton renders a single-button form.
func PostButton(action, label, class string, disabled bool) templ.Component {
	return View(func(_ context.Context, p *Writer) {
		p.Printf(`<form method="post" action="%s" class="inline">`, action)
		if disabled {
			p.Printf(`<button class="btn %s" type="submit" disabled>%s</button>`, class, label)
		} else {
			p.Printf(`<button class="btn %s" type="submit">%s</button>`, class, label)
		}
		p.Raw(`</form>`)
	})
}

// Flash renders the ?status= and ?error= redirect messages.
func Flash(status, errMsg string) templ.Component {
	return View(func(ctx context.Context, p *Writer) {
		p.Component(ctx, Alert("success", "Done", status))
		p.Component(ctx, Alert("error", "Error", errMsg))
	})
}
