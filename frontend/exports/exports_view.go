package exports

import (
	"context"
	"net/url"

	"github.com/a-h/templ"

	"dockout/frontend/shared/html"
)

func ExportsPage(data PageData) templ.Component {
	body := html.View(func(ctx context.Context, p *html.Writer) {
		query := ""
		if data.VepToken != "" {
			query = "?token=" + url.QueryEscape(data.VepToken)
		}
		p.Raw(`<section class="card"><h1>Exports</h1>`)
		p.Printf(`<form method="get" action="/exports" class="row"><label for="token">VEP Token</label><input id="token" name="token" value="%s" placeholder="All tokens"><button class="btn btn-secondary" type="submit">Filter</button></form>`, data.VepToken)
		p.Raw(`<table class="table"><thead><tr><th>Log</th><th>Rows</th><th>Download</th></tr></thead><tbody>`)
		p.Printf(`<tr><td>Picking logs</td><td>%s</td><td><a href="/exports/picking-logs.csv%s">CSV</a> · <a href="/exports/picking-logs.xlsx%s">Excel</a></td></tr>`, data.PickingCount, query, query)
		p.Printf(`<tr><td>Transfer logs</td><td>%s</td><td><a href="/exports/transfer-logs.csv%s">CSV</a></td></tr>`, data.TransferCount, query)
		p.Raw(`</tbody></table></section>`)
	})
	return html.Layout("Exports", "", body)
}
