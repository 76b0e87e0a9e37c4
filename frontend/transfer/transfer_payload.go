package transfer

import (
	"strings"

	"dockout/infrastructure/config"
	"dockout/infrastructure/sap"
	"dockout/models"
)

const (
	completedMessage        = "Transfer posting Completed"
	alreadyCompletedMessage = "Already Transfer posting Completed"
)

// Classify maps the gateway's domain message to a transfer outcome. The
// already-completed phrase contains the completed phrase, so it is checked
// first.
func Classify(message string) models.ValidationStatus {
	switch {
	case strings.Contains(message, alreadyCompletedMessage):
		return models.ValidationWarning
	case strings.Contains(message, completedMessage):
		return models.ValidationSuccess
	default:
		return models.ValidationError
	}
}

// BuildStockMoveRequest maps a group to the gateway payload using the
// operator-confirmed actuals.
func BuildStockMoveRequest(g models.DeliveryOrderGroup) sap.StockMoveRequest {
	items := make([]sap.StockMoveItem, 0, len(g.Items))
	for _, it := range g.Items {
		items = append(items, sap.StockMoveItem{
			Posnr:       it.Posnr,
			Matnr:       it.Material,
			Batch:       it.ActualBatch,
			Quantity:    it.ActualQty.String(),
			Uom:         it.UOM,
			StorageType: it.StorageType,
			Storage:     it.Storage,
			ToStorage:   it.DestSloc,
			VepToken:    it.VepToken,
			DocCata:     it.DocCata,
			UECHA:       it.Uecha,
		})
	}
	return sap.StockMoveRequest{Dono: g.DoNo, OrderToItem: items}
}

// BuildPickingPayload derives the picking request from a successful stock
// movement, one loading-sequence line per result item.
func BuildPickingPayload(resp *sap.StockMoveResponse, fallbackToken string, d config.PickingDefaults) *sap.PickingRequest {
	results := resp.Results()
	lines := make([]sap.LoadingSequenceItem, 0, len(results))
	for _, r := range results {
		lines = append(lines, sap.LoadingSequenceItem{
			Tokenno:    or(r.VepToken, fallbackToken),
			ObdNo:      resp.D.Dono,
			Posnr:      r.Posnr,
			Matnr:      r.Matnr,
			Charg:      r.Batch,
			Sequenceno: or(r.Sequenceno, d.SequenceNo),
			Maktx:      or(r.Matnr, d.Maktx),
			Pstyv:      r.DocCata,
			SpeLoekz:   d.SpeLoekz,
			Werks:      d.Werks,
			Lgort:      r.ToStorage,
			Lgnum:      r.Warehouse,
			Lgtyp:      r.StorageType,
			Docknum:    d.Docknum,
			Lgpla:      or(r.Bin, d.Lgpla),
			Lfimg:      r.Quantity,
			Meins:      r.Uom,
			Bolnr:      d.Bolnr,
			Tanum:      d.Tanum,
			Oldcharg:   r.OldBatch,
			Vtweg:      d.Vtweg,
			Uecha:      or(r.UECHA, d.Uecha),
		})
	}
	token := fallbackToken
	if len(results) > 0 && results[0].VepToken != "" {
		token = results[0].VepToken
	}
	return &sap.PickingRequest{Tokenno: token, Getloadingsequence: sap.LoadingSequence{Results: lines}}
}

// PickingPayloadFromItems derives the picking request from the group's own
// items. Used when the gateway reports the movement as already posted and
// returns nothing to derive from.
func PickingPayloadFromItems(g models.DeliveryOrderGroup, fallbackToken string, d config.PickingDefaults) *sap.PickingRequest {
	lines := make([]sap.LoadingSequenceItem, 0, len(g.Items))
	for _, it := range g.Items {
		lines = append(lines, sap.LoadingSequenceItem{
			Tokenno:    or(it.VepToken, fallbackToken),
			ObdNo:      g.DoNo,
			Posnr:      it.Posnr,
			Matnr:      it.Material,
			Charg:      it.ActualBatch,
			Sequenceno: or(it.SequenceNo, d.SequenceNo),
			Maktx:      or(or(it.MaterialDes, it.Material), d.Maktx),
			Pstyv:      it.DocCata,
			SpeLoekz:   d.SpeLoekz,
			Werks:      d.Werks,
			Lgort:      it.DestSloc,
			Lgnum:      it.Warehouse,
			Lgtyp:      it.StorageType,
			Docknum:    d.Docknum,
			Lgpla:      or(it.Bin, d.Lgpla),
			Lfimg:      it.ActualQty.String(),
			Meins:      it.UOM,
			Bolnr:      d.Bolnr,
			Tanum:      d.Tanum,
			Oldcharg:   it.ProposedBatch,
			Vtweg:      d.Vtweg,
			Uecha:      or(it.Uecha, d.Uecha),
		})
	}
	return &sap.PickingRequest{Tokenno: fallbackToken, Getloadingsequence: sap.LoadingSequence{Results: lines}}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
