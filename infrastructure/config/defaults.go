package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults is the table of fallback literals used when an upstream payload
// omits a field. Every payload builder receives the relevant section
// explicitly instead of embedding literals.
type Defaults struct {
	Picking PickingDefaults `yaml:"picking"`
	TEG     TEGDefaults     `yaml:"teg"`
	Loading LoadingDefaults `yaml:"loading"`
}

// PickingDefaults fill the SAP picking payload derived after a stock transfer.
type PickingDefaults struct {
	Werks      string `yaml:"werks" validate:"required"`
	SpeLoekz   bool   `yaml:"speLoekz"`
	SequenceNo string `yaml:"sequenceno" validate:"required"`
	Maktx      string `yaml:"maktx"`
	Docknum    string `yaml:"docknum"`
	Lgpla      string `yaml:"lgpla"`
	Bolnr      string `yaml:"bolnr"`
	Tanum      string `yaml:"tanum"`
	Vtweg      string `yaml:"vtweg"`
	Uecha      string `yaml:"uecha"`
}

// TEGDefaults fill the TEG loading-details update.
type TEGDefaults struct {
	BatchLineNo   string `yaml:"batchLineNo" validate:"required"`
	LineItem      string `yaml:"lineItem" validate:"required"`
	BlankLineItem string `yaml:"blankLineItem"`
	ActualWeight  string `yaml:"actualWeight" validate:"required,numeric"`
	ChargedWeight string `yaml:"chargedWeight" validate:"required,numeric"`
}

// LoadingDefaults seed new delivery-order items built from a token lookup.
type LoadingDefaults struct {
	StorageType string `yaml:"storageType" validate:"oneof=EDO RVP SCK PICKER"`
	DestSloc    string `yaml:"destSloc" validate:"oneof=ZF05 ZF04 ZF03 ZF02 ZF01"`
	UOM         string `yaml:"uom" validate:"required"`
}

// DefaultTable returns the built-in fallback table.
func DefaultTable() Defaults {
	return Defaults{
		Picking: PickingDefaults{
			Werks:      "M251",
			SpeLoekz:   false,
			SequenceNo: "01",
		},
		TEG: TEGDefaults{
			BatchLineNo:   "900005",
			LineItem:      "000010",
			BlankLineItem: "000000",
			ActualWeight:  "1183.096",
			ChargedWeight: "2127.870",
		},
		Loading: LoadingDefaults{
			StorageType: "EDO",
			DestSloc:    "ZF05",
			UOM:         "KG",
		},
	}
}

// LoadDefaults overlays the YAML file at path onto the built-in table. Keys
// absent from the file keep their built-in value. An empty path returns the
// built-in table.
func LoadDefaults(path string) (Defaults, error) {
	d := DefaultTable()
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse defaults file: %w", err)
	}
	if err := validate.Struct(d); err != nil {
		return Defaults{}, fmt.Errorf("invalid defaults file: %w", err)
	}
	return d, nil
}
