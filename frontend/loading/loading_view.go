package loading

import (
	"context"

	"github.com/a-h/templ"

	"dockout/frontend/shared/html"
)

func LoadingPage(data PageData) templ.Component {
	body := html.View(func(ctx context.Context, p *html.Writer) {
		p.Raw(`<section class="card"><h1>Enter VEP Token</h1><p class="muted">Enter the VEP Token to fetch Outbound Delivery details.</p>`)
		p.Raw(`<form method="post" action="/loading" class="stack">`)
		p.Printf(`<label for="vep_token">VEP Token</label><input id="vep_token" name="vep_token" value="%s" placeholder="e.g., VEP12345" autofocus>`, data.VepToken)
		p.Raw(`<button class="btn btn-primary" type="submit">Fetch Details</button></form>`)
		p.Component(ctx, html.Alert("error", "Error", data.Error))
		p.Raw(`</section>`)
	})
	return html.Layout("Loading", "loading", body)
}
