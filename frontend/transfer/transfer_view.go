package transfer

import (
	"context"
	"net/url"

	"github.com/a-h/templ"

	"dockout/frontend/shared/html"
	"dockout/models"
)

func TransferPage(data PageData) templ.Component {
	body := html.View(func(ctx context.Context, p *html.Writer) {
		p.Printf(`<section class="card"><div class="row between"><h1>Stock Transfer</h1><span class="muted">VEP Token: %s</span></div>`, data.VepToken)
		p.Component(ctx, html.Flash(data.Status, data.Error))
		p.Raw(`<div class="row">`)
		p.Component(ctx, html.PostButton("/transfer/all", "Transfer All Pending", "btn-primary", !data.HasPending))
		p.Component(ctx, html.PostButton("/transfer/complete", "Continue to Picking", "btn-success", !data.AllTransferred))
		p.Raw(`</div></section>`)
		for _, g := range data.Groups {
			p.Component(ctx, groupCard(g))
		}
	})
	return html.Layout("Stock Transfer", "transfer", body)
}

func groupCard(g models.DeliveryOrderGroup) templ.Component {
	return html.View(func(ctx context.Context, p *html.Writer) {
		base := "/transfer/" + url.PathEscape(g.DoNo)
		p.Printf(`<section class="card group" id="do-%s"><div class="row between"><h2>DO %s</h2>`, g.DoNo, g.DoNo)
		p.Component(ctx, html.StatusBadge(string(g.Status)))
		p.Raw(`</div>`)

		switch g.Validation.Status {
		case models.ValidationSuccess:
			p.Component(ctx, html.Alert("success", "Transferred", g.Validation.Message))
		case models.ValidationWarning:
			p.Component(ctx, html.Alert("warning", "Already transferred", g.Validation.Message))
		case models.ValidationError:
			p.Component(ctx, html.Alert("error", "Error", g.Validation.Message))
		}

		locked := g.Status == models.StatusCompleted || g.Status == models.StatusLoading
		canSubmit := g.Status == models.StatusPending || (g.Editing && !locked)
		editLabel := "Edit"
		if g.Editing {
			editLabel = "Done Editing"
		}
		p.Raw(`<div class="row">`)
		p.Component(ctx, html.PostButton(base+"/edit", editLabel, "btn-secondary", locked))
		p.Component(ctx, html.PostButton(base+"/submit", "Submit Transfer", "btn-primary", !canSubmit))
		p.Raw(`</div>`)

		p.Raw(`<table class="table"><thead><tr><th>#</th><th>Posnr</th><th>Material</th><th>Description</th><th>Proposed Qty</th><th>Proposed Batch</th><th>Actual Qty</th><th>Actual Batch</th><th>UOM</th><th>Storage Type</th><th>Dest. Sloc</th><th>Picking</th>`)
		if g.Editing {
			p.Raw(`<th></th>`)
		}
		p.Raw(`</tr></thead><tbody>`)
		for _, it := range g.Items {
			itemCells(ctx, p, base, g.Editing, it)
		}
		p.Raw(`</tbody></table>`)

		p.Raw(`<details><summary>Material totals</summary><table class="table compact"><thead><tr><th>Material</th><th>Proposed</th><th>Actual</th></tr></thead><tbody>`)
		for _, t := range MaterialTotals(g.Items) {
			p.Printf(`<tr><td>%s</td><td>%s</td><td>%s</td></tr>`, t.Material, t.Proposed.String(), t.Actual.String())
		}
		p.Raw(`</tbody></table></details></section>`)
	})
}

func itemCells(ctx context.Context, p *html.Writer, base string, editing bool, it models.DeliveryOrderItem) {
	class := ""
	if it.IsNew {
		class = "row-new"
	}
	p.Printf(`<tr class="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td>`,
		class, it.SNo, it.Posnr, it.Material, it.MaterialDes, it.ProposedQty.String(), it.ProposedBatch)
	if !editing {
		p.Printf(`<td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			it.ActualQty.String(), it.ActualBatch, it.UOM, it.StorageType, it.DestSloc, it.PickingStatus)
		return
	}

	itemURL := base + "/items/" + url.PathEscape(it.ID)
	formID := "item-" + it.ID
	p.Printf(`<td><input form="%s" name="actual_qty" inputmode="decimal" value="%s"></td>`, formID, it.ActualQty.String())
	p.Printf(`<td><input form="%s" name="actual_batch" value="%s"></td><td>%s</td>`, formID, it.ActualBatch, it.UOM)
	p.Raw(`<td>`)
	selectInput(p, formID, "storage_type", models.StorageTypes, it.StorageType)
	p.Raw(`</td><td>`)
	selectInput(p, formID, "dest_sloc", models.DestSlocs, it.DestSloc)
	p.Printf(`</td><td>%s</td><td class="actions">`, it.PickingStatus)
	p.Printf(`<form id="%s" method="post" action="%s" class="inline"><button class="btn btn-small" type="submit">Save</button></form>`, formID, itemURL)
	p.Component(ctx, html.PostButton(itemURL+"/duplicate", "Duplicate", "btn-small", false))
	p.Component(ctx, html.PostButton(itemURL+"/delete", "Delete", "btn-small btn-danger", false))
	p.Raw(`</td></tr>`)
}

func selectInput(p *html.Writer, formID, name string, options []string, selected string) {
	p.Printf(`<select form="%s" name="%s">`, formID, name)
	for _, o := range options {
		if o == selected {
			p.Printf(`<option value="%s" selected>%s</option>`, o, o)
		} else {
			p.Printf(`<option value="%s">%s</option>`, o, o)
		}
	}
	p.Raw(`</select>`)
}
