// Package receipt models the registration receipt: a summary page with the
// producer's data, a divider page, the embedded proof-of-registration
// attachment and a numbered footer on every page.
package receipt

import "github.com/shopspring/decimal"

// Record is the read-only snapshot of a registration that the composer renders.
type Record struct {
	Name                string
	CPF                 string
	Phone               string
	Email               string
	City                string
	Locality            string
	PropertyArea        decimal.Decimal
	PastureArea         decimal.Decimal
	TotalHerd           int
	ReproductionFemales int
	ProgramAnimals      int
	SemenType           string
}

// Row is one label/value line of a summary table
type Row struct {
	Label string
	Value string
}

// PersonalRows returns the "Dados Pessoais" table
func PersonalRows(r Record) []Row {
	return []Row{
		{Label: "Nome:", Value: r.Name},
		{Label: "CPF:", Value: r.CPF},
		{Label: "Telefone:", Value: r.Phone},
		{Label: "Email:", Value: r.Email},
		{Label: "Cidade:", Value: r.City},
		{Label: "Localidade:", Value: r.Locality},
	}
}

// PropertyRows returns the "Dados da Propriedade" table
func PropertyRows(r Record) []Row {
	return []Row{
		{Label: "Área do Imóvel:", Value: FormatHectares(r.PropertyArea)},
		{Label: "Área de Pastagem:", Value: FormatHectares(r.PastureArea)},
		{Label: "Rebanho Total:", Value: formatCount(r.TotalHerd)},
		{Label: "Fêmeas em Reprodução:", Value: formatCount(r.ReproductionFemales)},
		{Label: "Animais para +Genética:", Value: formatCount(r.ProgramAnimals)},
		{Label: "Sêmen Utilizado:", Value: r.SemenType},
	}
}
