package picking

import (
	"context"
	"net/url"

	"github.com/a-h/templ"

	"dockout/frontend/shared/html"
	"dockout/models"
)

func PickingPage(data PageData) templ.Component {
	body := html.View(func(ctx context.Context, p *html.Writer) {
		p.Printf(`<section class="card"><div class="row between"><h1>Picking Confirmation</h1><span class="muted">VEP Token: %s</span></div>`, data.VepToken)
		p.Component(ctx, html.Flash(data.Status, data.Error))
		p.Raw(`<div class="row">`)
		p.Component(ctx, html.PostButton("/picking/all", "Complete All Picking", "btn-primary", !data.HasReady))
		p.Component(ctx, html.PostButton("/picking/complete", "Continue to Gross Weight", "btn-success", !data.AllPicked))
		p.Raw(`</div></section>`)

		p.Raw(`<section class="card"><table class="table"><thead><tr><th>DO</th><th>Items</th><th>Status</th><th>Message</th><th></th></tr></thead><tbody>`)
		for _, g := range data.Groups {
			p.Printf(`<tr id="do-%s"><td>%s</td><td>%s</td><td>`, g.DoNo, g.DoNo, len(g.Items))
			p.Component(ctx, html.StatusBadge(string(g.Status)))
			p.Printf(`</td><td class="message">%s</td><td>`, g.Validation.Message)
			canPick := g.PickingPayload != nil && (g.Status == models.StatusTransferred || g.Status == models.StatusError)
			if canPick {
				label := "Confirm Picking"
				if g.Status == models.StatusError {
					label = "Retry"
				}
				p.Component(ctx, html.PostButton("/picking/"+url.PathEscape(g.DoNo)+"/confirm", label, "btn-primary btn-small", false))
			}
			p.Raw(`</td></tr>`)
		}
		p.Raw(`</tbody></table></section>`)
	})
	return html.Layout("Picking", "picking", body)
}
