package help

import (
	"context"

	"github.com/a-h/templ"

	"dockout/frontend/shared/html"
)

var stageHelp = map[string]string{
	"loading":  "Enter the VEP token printed on the gate pass. Its delivery orders are read from SAP and grouped by ODB number.",
	"transfer": "Check the actual quantity and batch of each line, then transfer. Use Edit to correct a line, duplicate it for a split batch, or retry after an error. Actual quantities may not differ from proposed by more than the tolerance per material.",
	"picking":  "Confirm picking for every transferred ODB. Failed confirmations can be retried.",
	"gross":    "Fetch the loaded details, check the totals, then submit to TEG with any additional packing material. Print the loading slip and start the next token.",
}

func HelpPage(data PageData) templ.Component {
	body := html.View(func(ctx context.Context, p *html.Writer) {
		p.Raw(`<section class="card"><h1>How dock-out works</h1>`)
		if data.VepToken != "" {
			p.Printf(`<p class="muted">Current token: <strong>%s</strong></p>`, data.VepToken)
		}
		p.Raw(`<ol class="help">`)
		for _, s := range html.Steps {
			class := ""
			if s.Key == data.Stage {
				class = ` class="step-current"`
			}
			p.Printf(`<li`+class+`><h2>%s</h2><p>%s</p></li>`, s.Label, stageHelp[s.Key])
		}
		p.Raw(`</ol>`)
		p.Printf(`<p><a class="btn btn-primary" href="/%s">Back to current stage</a></p></section>`, data.Stage)
	})
	return html.Layout("Help", data.Stage, body)
}
