package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	listsSheet        = "Lists"
	instructionsSheet = "Instructions"
	templateRows      = 1000
)

// Template returns a blank XLSX workbook for importType. Taxonomy-backed
// columns get a drop-down fed by a fresh ship-type snapshot.
func (s *Service) Template(ctx context.Context, importType string) ([]byte, error) {
	def, err := s.definition(importType)
	if err != nil {
		return nil, err
	}

	taxonomy, err := LoadTaxonomy(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	return BuildTemplate(def, taxonomy)
}

// BuildTemplate renders the blank workbook. The data sheet comes first so the
// file can be filled in and uploaded as-is.
func BuildTemplate(def ImportDefinition, taxonomy Taxonomy) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := def.Info.Label
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(listsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(def.Columns))
	for i, c := range def.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	lastCol, err := excelize.ColumnNumberToName(len(def.Columns))
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return nil, err
	}

	listCol := 0
	for i, c := range def.Columns {
		values, taxonomyBacked := templateValues(def, c, taxonomy)
		if len(values) == 0 {
			continue
		}
		listCol++
		if err := addDropList(f, sheet, i+1, listCol, values, taxonomyBacked && def.CreatesTaxonomy); err != nil {
			return nil, fmt.Errorf("drop-down for %s: %w", c.Name, err)
		}
	}
	if err := f.SetSheetVisible(listsSheet, false); err != nil {
		return nil, err
	}

	if err := writeInstructions(f, def); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func templateValues(def ImportDefinition, c ColumnSpec, taxonomy Taxonomy) ([]string, bool) {
	switch {
	case slices.Contains(def.TaxonomyColumns, c.Name):
		return taxonomy.Names(), true
	case c.Type == FieldEnum:
		return c.EnumValues, false
	case c.Type == FieldBool:
		return []string{"yes", "no"}, false
	default:
		return nil, false
	}
}

// addDropList writes values to a column of the hidden lists sheet and points
// a data validation on the data column at them. When allowNew is set the
// validation only warns, since unseen names are created on commit.
func addDropList(f *excelize.File, sheet string, dataCol, listCol int, values []string, allowNew bool) error {
	listName, err := excelize.ColumnNumberToName(listCol)
	if err != nil {
		return err
	}
	for j, v := range values {
		if err := f.SetCellValue(listsSheet, fmt.Sprintf("%s%d", listName, j+1), v); err != nil {
			return err
		}
	}

	dataName, err := excelize.ColumnNumberToName(dataCol)
	if err != nil {
		return err
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("%s2:%s%d", dataName, dataName, templateRows)
	dv.SetSqrefDropList(fmt.Sprintf("'%s'!$%s$1:$%s$%d", listsSheet, listName, listName, len(values)))
	if allowNew {
		dv.SetError(excelize.DataValidationErrorStyleWarning, "New value", "This name is not in the list yet and will be created on import.")
	} else {
		dv.SetError(excelize.DataValidationErrorStyleStop, "Invalid value", "Pick a value from the list.")
	}
	return f.AddDataValidation(sheet, dv)
}

func writeInstructions(f *excelize.File, def ImportDefinition) error {
	rows := [][]any{
		{def.Info.Label, def.Info.Description},
		{},
		{"column", "required", "type", "allowed values"},
	}
	for _, c := range def.Columns {
		required := "no"
		if c.Required {
			required = "yes"
		}
		rows = append(rows, []any{c.Name, required, fieldTypeName(c.Type), strings.Join(c.EnumValues, ", ")})
	}
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if err := f.SetSheetRow(instructionsSheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return err
		}
	}
	return nil
}
