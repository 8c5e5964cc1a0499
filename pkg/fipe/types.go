package fipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Code is a source identifier. The API sends brand and year codes as JSON
// strings and model codes as JSON numbers; both decode to their text form.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("code must be a string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}

func (c Code) String() string {
	return string(c)
}

type namedCode struct {
	Code Code   `json:"codigo"`
	Name string `json:"nome"`
}

type modelsResponse struct {
	Models []namedCode `json:"modelos"`
}

type detailResponse struct {
	VehicleType    int    `json:"TipoVeiculo"`
	Price          string `json:"Valor"`
	Brand          string `json:"Marca"`
	Model          string `json:"Modelo"`
	ModelYear      int    `json:"AnoModelo"`
	FuelType       string `json:"Combustivel"`
	CatalogCode    string `json:"CodigoFipe"`
	ReferenceMonth string `json:"MesReferencia"`
	FuelAcronym    string `json:"SiglaCombustivel"`
	Error          string `json:"error"`
}

func (d detailResponse) empty() bool {
	return d.Price == "" && d.Model == "" && d.ModelYear == 0 &&
		d.FuelType == "" && d.CatalogCode == "" && d.ReferenceMonth == ""
}
