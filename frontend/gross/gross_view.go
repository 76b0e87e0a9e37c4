package gross

import (
	"context"

	"github.com/a-h/templ"

	"dockout/frontend/shared/html"
)

const materialRows = 3

func GrossPage(data PageData) templ.Component {
	body := html.View(func(ctx context.Context, p *html.Writer) {
		st := data.State
		p.Printf(`<section class="card"><div class="row between"><h1>Gross Weight Check</h1><span class="muted">VEP Token: %s</span></div>`, data.VepToken)
		p.Component(ctx, html.Flash(data.Status, data.Error))

		switch {
		case st.Completed:
			p.Component(ctx, html.Alert("success", "Completed", "TEG update completed for VEP Token "+data.VepToken+"."))
			p.Raw(`<div class="row"><a class="btn btn-secondary" href="/gross/slip.pdf" target="_blank">Print Loading Slip</a>`)
			p.Component(ctx, html.PostButton("/gross/start-new", "Start New", "btn-primary", false))
			p.Raw(`</div>`)
		case len(st.Lines) == 0:
			p.Raw(`<p class="muted">Fetch the loaded data from SAP to verify quantities.</p>`)
			p.Component(ctx, html.Alert("error", "Error", st.Error))
			label := "Fetch Data"
			if st.Error != "" {
				label = "Retry"
			}
			p.Component(ctx, html.PostButton("/gross/fetch", label, "btn-primary", false))
		default:
			title := "Error"
			if st.Mismatch {
				title = "Validation Failed"
			}
			p.Component(ctx, html.Alert("error", title, st.Error))
			if st.Error != "" && st.LastAttempt != nil {
				p.Component(ctx, html.PostButton("/gross/retry", "Retry Update", "btn-secondary", false))
			}
		}
		p.Raw(`</section>`)

		if len(st.Lines) == 0 {
			return
		}
		p.Raw(`<section class="card"><table class="table"><thead><tr><th>DO</th><th>Item</th><th>Material</th><th>Batch</th><th>LFIMG</th><th>PRQTY</th><th>Net</th><th>Gross</th><th>Sloc</th></tr></thead><tbody>`)
		for _, l := range st.Lines {
			class := ""
			if l.Lfimg != l.Prqty {
				class = "row-error"
			}
			p.Printf(`<tr class="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				class, l.ObdNo, l.Posnr, l.Matnr, l.Charg, l.Lfimg, l.Prqty, l.Ntgew, l.Brgew, l.Lgort)
		}
		p.Printf(`</tbody></table><p class="total">Total Gross Weight: <strong>%s KG</strong></p>`, st.Total.StringFixed(2))

		if data.CanSubmit {
			p.Raw(`<div class="row">`)
			p.Raw(`<form method="post" action="/gross/submit" class="inline"><input type="hidden" name="mode" value="complete"><button class="btn btn-primary" type="submit">Submit Loading</button></form>`)
			p.Raw(`</div><form method="post" action="/gross/submit" class="stack"><input type="hidden" name="mode" value="materials"><h2>Additional Materials</h2>`)
			for i := 0; i < materialRows; i++ {
				p.Raw(`<div class="row"><select name="material"><option value="">Select Material</option>`)
				for _, m := range MaterialOptions {
					p.Printf(`<option value="%s">%s</option>`, m, m)
				}
				p.Raw(`</select><input name="weight" inputmode="decimal" placeholder="Quantity"><select name="uom">`)
				for _, u := range UOMOptions {
					p.Printf(`<option value="%s">%s</option>`, u, u)
				}
				p.Raw(`</select></div>`)
			}
			p.Raw(`<button class="btn btn-secondary" type="submit">Add Materials and Submit</button></form>`)
		}
		p.Raw(`</section>`)
	})
	return html.Layout("Gross Weight", "gross", body)
}
