package gross

import (
	"strings"

	"github.com/shopspring/decimal"

	"dockout/infrastructure/config"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/teg"
)

// TotalGross sums brgew over the lines. Blank or unparseable weights count
// as zero.
func TotalGross(lines []sap.LoadedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		w, err := decimal.NewFromString(strings.TrimSpace(l.Brgew))
		if err != nil {
			continue
		}
		total = total.Add(w)
	}
	return total
}

// Mismatched reports whether any line's delivered quantity differs from
// its picked quantity. The comparison is on the raw text.
func Mismatched(lines []sap.LoadedLine) bool {
	for _, l := range lines {
		if l.Lfimg != l.Prqty {
			return true
		}
	}
	return false
}

// BuildUpdate maps the loaded lines to the TEG update, filling missing
// fields from the defaults table.
func BuildUpdate(vepToken string, isCompleted bool, lines []sap.LoadedLine, d config.TEGDefaults) teg.UpdateRequest {
	details := make([]teg.LoadingDetail, 0, len(lines))
	for _, l := range lines {
		lineItem := l.Uecha
		if lineItem == "" || lineItem == d.BlankLineItem {
			lineItem = d.LineItem
		}
		details = append(details, teg.LoadingDetail{
			DoNumber:        l.ObdNo,
			Quantity:        l.Prqty,
			BatchNo:         l.Charg,
			BatchLineNo:     or(l.Posnr, d.BatchLineNo),
			StorageLocation: l.Lgort,
			BatchQuantity:   l.Lfimg,
			LoadedQuantity:  l.Lfimg,
			MaterialCode:    l.Matnr,
			ActualWeight:    or(l.Ntgew, d.ActualWeight),
			LineItem:        lineItem,
			ChargedWeight:   or(l.Brgew, d.ChargedWeight),
		})
	}
	return teg.UpdateRequest{Token: vepToken, IsLoadingCompleted: isCompleted, LoadingDetails: details}
}

// BuildMaterials returns the additional-materials request, or nil when the
// first row names no material. The request always marks loading completed.
func BuildMaterials(vepToken string, materials []teg.AdditionalMaterial) *teg.AdditionalMaterialsRequest {
	if len(materials) == 0 || materials[0].MaterialDescription == "" {
		return nil
	}
	return &teg.AdditionalMaterialsRequest{
		Token:               vepToken,
		IsLoadingCompleted:  true,
		AdditionalMaterials: append([]teg.AdditionalMaterial(nil), materials...),
	}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
