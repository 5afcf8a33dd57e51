package normalize

import (
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ExportColumns is the fixed column order of the flat export
// projection.
var ExportColumns = []string{
	"Entity_ID",
	"Risk_ID",
	"Entity_Name",
	"Entity_Type",
	"Is_PEP",
	"PEP_Type",
	"PEP_Level",
	"PEP_Description",
	"PEP_Associations",
	"Risk_Score",
	"Risk_Category",
	"Birth_Year",
	"Cross_Reference_ID",
	"Source_ID",
	"System_ID",
}

// ExportRecord flattens one canonical record into the fixed-key export
// projection. Every value is stringified; missing values export as
// empty strings.
func ExportRecord(rec *domain.EntityRecord) map[string]string {
	isPep := "No"
	if rec.Pep.IsPep {
		isPep = "Yes"
	}

	birthYear := ""
	if rec.BirthYear != nil {
		birthYear = strconv.Itoa(*rec.BirthYear)
	}

	return map[string]string{
		"Entity_ID":          rec.EntityID,
		"Risk_ID":            rec.RiskID,
		"Entity_Name":        rec.EntityName,
		"Entity_Type":        rec.EntityType,
		"Is_PEP":             isPep,
		"PEP_Type":           rec.Pep.PepType,
		"PEP_Level":          rec.Pep.PepLevel,
		"PEP_Description":    rec.Pep.PepDescription,
		"PEP_Associations":   strings.Join(rec.Pep.Associations, "; "),
		"Risk_Score":         strconv.Itoa(rec.Risk.RiskScore),
		"Risk_Category":      rec.Risk.RiskCategory,
		"Birth_Year":         birthYear,
		"Cross_Reference_ID": rec.CrossRefID,
		"Source_ID":          rec.SourceItemID,
		"System_ID":          rec.SystemID,
	}
}

// ExportRow renders one record's export values in ExportColumns order,
// ready for a CSV writer.
func ExportRow(rec *domain.EntityRecord) []string {
	flat := ExportRecord(rec)
	row := make([]string, len(ExportColumns))
	for i, col := range ExportColumns {
		row[i] = flat[col]
	}
	return row
}
