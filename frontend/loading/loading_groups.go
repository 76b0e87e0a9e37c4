package loading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dockout/infrastructure/config"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/workflow"
	"dockout/models"
)

var (
	ErrBlankToken = errors.New("Please enter a VEP Token.")
	ErrNoData     = errors.New("No data found for the provided VEP Token.")
)

const notAvailable = "N/A"

// LoadGroups turns a token's loading sequence into delivery-order groups,
// in order of first appearance. Actuals start equal to the proposed values.
func LoadGroups(details *sap.TokenDetails, enteredToken string, defaults config.LoadingDefaults) ([]models.DeliveryOrderGroup, error) {
	if details == nil || len(details.Lines) == 0 {
		return nil, ErrNoData
	}
	token := details.TokenNo
	if token == "" {
		token = enteredToken
	}

	order := make([]string, 0)
	byDO := make(map[string][]models.DeliveryOrderItem)
	for i, line := range details.Lines {
		item := itemFromLine(i, line, token, defaults)
		if _, seen := byDO[item.DoNo]; !seen {
			order = append(order, item.DoNo)
		}
		byDO[item.DoNo] = append(byDO[item.DoNo], item)
	}

	groups := make([]models.DeliveryOrderGroup, 0, len(order))
	for _, doNo := range order {
		items := byDO[doNo]
		groups = append(groups, models.DeliveryOrderGroup{
			DoNo:   doNo,
			Items:  items,
			Status: workflow.InitialStatus(items),
		})
	}
	return groups, nil
}

func itemFromLine(i int, line sap.TokenLine, token string, defaults config.LoadingDefaults) models.DeliveryOrderItem {
	qty, err := decimal.NewFromString(strings.TrimSpace(line.Lfimg))
	if err != nil {
		qty = decimal.Zero
	}
	batch := line.Oldcharg
	if batch == "" {
		batch = line.Charg
	}
	status := string(models.StatusPending)
	if strings.EqualFold(strings.TrimSpace(line.KOSTK), "C") {
		status = string(models.StatusCompleted)
	}

	return models.DeliveryOrderItem{
		ID:            uuid.NewString(),
		SNo:           i + 1,
		VepToken:      token,
		// Unnumbered lines each get their own DO so they post and retry alone.
		DoNo:          or(line.ObdNo, fmt.Sprintf("DO-%d", i+1)),
		WMSPicking:    or(line.LVSTK, notAvailable),
		PickingStatus: or(line.KOSTK, notAvailable),
		PGIStatus:     or(line.WBSTK, notAvailable),
		Posnr:         or(line.Posnr, fmt.Sprintf("%d0", i+1)),
		Material:      line.Matnr,
		MaterialDes:   line.Maktx,
		ProposedQty:   qty,
		ProposedBatch: batch,
		UOM:           or(line.Meins, defaults.UOM),
		Bin:           line.Lgpla,
		StorageType:   defaults.StorageType,
		DestSloc:      defaults.DestSloc,
		Warehouse:     line.Lgnum,
		Storage:       line.Lgort,
		Plant:         line.Werks,
		Dock:          line.Docknum,
		DocCata:       line.Pstyv,
		Net:           line.Ntgew,
		Gross:         line.Brgew,
		SequenceNo:    or(line.Sequenceno, fmt.Sprintf("%d", i+1)),
		Channel:       line.Vtweg,
		Uecha:         line.Uecha,
		ActualQty:     qty,
		ActualBatch:   batch,
		Status:        status,
	}
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
