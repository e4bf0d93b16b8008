// pkg/impute/plan.go
package impute

import (
	"github.com/David-Botos/housing-fill/pkg/model"
)

// Scope selects which tables a step applies to
type Scope int

const (
	ScopeTrain Scope = 1 << iota
	ScopeTest
	ScopeBoth = ScopeTrain | ScopeTest
)

// String returns a string representation of the scope
func (s Scope) String() string {
	switch s {
	case ScopeTrain:
		return "train"
	case ScopeTest:
		return "test"
	case ScopeBoth:
		return "both"
	default:
		return "none"
	}
}

// Includes reports whether s covers every table in other
func (s Scope) Includes(other Scope) bool {
	return other != 0 && s&other == other
}

// Step binds a rule to the tables it runs against
type Step struct {
	Scope Scope
	Rule  Rule
}

// Plan is an ordered list of steps. Order matters: indicator masks see the
// values written by earlier steps.
type Plan struct {
	Name  string
	Steps []Step
}

// CategoricalTargets returns every column the plan writes category names
// into, without duplicates, in first-seen order
func (p *Plan) CategoricalTargets() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, step := range p.Steps {
		for _, col := range step.Rule.CategoricalTargets() {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	return cols
}

// Column groups of the housing dataset
var (
	BasementCategories = []string{"BsmtQual", "BsmtCond", "BsmtExposure", "BsmtFinType1", "BsmtFinType2"}
	BasementAreas      = []string{"BsmtFinSF1", "BsmtFinSF2", "BsmtUnfSF", "TotalBsmtSF"}
	BasementBaths      = []string{"BsmtFullBath", "BsmtHalfBath"}

	GarageCategories = []string{"GarageType", "GarageFinish", "GarageQual", "GarageCond"}
	GarageSizes      = []string{"GarageCars", "GarageArea"}
)

// Fixed rows of the test split with hand-checked anomalies
const (
	rowBasementUnrecorded = 660  // no basement sizes at all
	rowGarageInconsistent = 1116 // detached garage with no size
	rowGarageIncomplete   = 666  // one-car garage without finish or quality
)

// HousingPlan returns the imputation rules for the housing-price train and
// test splits
func HousingPlan() *Plan {
	return &Plan{
		Name: "housing",
		Steps: []Step{
			// Basement
			{ScopeTest, FillAt{Name: "basement_size_unrecorded", Row: rowBasementUnrecorded, Columns: BasementAreas, Value: 0}},
			{ScopeBoth, FillWhereZero{Name: "no_basement", Indicator: "TotalBsmtSF", Columns: BasementCategories, Value: "NoBasement"}},
			{ScopeBoth, FillWhereZero{Name: "no_basement_baths", Indicator: "TotalBsmtSF", Columns: BasementBaths, Value: 0}},
			{ScopeTest, FillAll{Name: "basement_quality_mode", Columns: []string{"BsmtQual"}, Value: "TA", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "basement_condition_mode", Columns: []string{"BsmtCond"}, Value: "TA", Kind: model.OpModeFill}},
			{ScopeBoth, FillAll{Name: "basement_exposure_mode", Columns: []string{"BsmtExposure"}, Value: "No", Kind: model.OpModeFill}},
			// Same category as BsmtFinType1 on the affected row
			{ScopeTrain, FillAll{Name: "basement_fin_type2_guess", Columns: []string{"BsmtFinType2"}, Value: "GLQ"}},

			// Garage
			{ScopeTest, FillAt{Name: "garage_size_unrecorded", Row: rowGarageInconsistent, Columns: GarageSizes, Value: 0}},
			{ScopeTest, SetAt{Name: "garage_type_inconsistent", Row: rowGarageInconsistent, Column: "GarageType", Value: nil}},
			{ScopeBoth, FillWhereZero{Name: "no_garage", Indicator: "GarageArea", Columns: GarageCategories, Value: "NoGarage"}},
			{ScopeBoth, FillWhereZero{Name: "no_garage_year", Indicator: "GarageArea", Columns: []string{"GarageYrBlt"}, Value: 0}},
			{ScopeTest, SetAt{Name: "garage_finish_mode", Row: rowGarageIncomplete, Column: "GarageFinish", Value: "Unf"}},
			{ScopeTest, FillAt{Name: "garage_quality_mode", Row: rowGarageIncomplete, Columns: []string{"GarageQual", "GarageCond"}, Value: "TA", Kind: model.OpModeFill}},
			{ScopeTest, CopyAt{Name: "garage_year_from_house", Row: rowGarageIncomplete, Target: "GarageYrBlt", Source: "YearBuilt"}},
			{ScopeTest, SetAt{Name: "garage_type_no_garage", Row: rowGarageInconsistent, Column: "GarageType", Value: "NoGarage"}},

			// Exterior
			{ScopeBoth, FillAll{Name: "no_veneer_area", Columns: []string{"MasVnrArea"}, Value: 0}},
			{ScopeBoth, FillWhereZero{Name: "no_veneer", Indicator: "MasVnrArea", Columns: []string{"MasVnrType"}, Value: "None"}},
			{ScopeTest, FillAll{Name: "veneer_type_mode", Columns: []string{"MasVnrType"}, Value: "BrkFace", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "exterior_mode", Columns: []string{"Exterior1st", "Exterior2nd"}, Value: "VinylSd", Kind: model.OpModeFill}},

			// Other features
			{ScopeBoth, FillAll{Name: "lot_frontage_unrecorded", Columns: []string{"LotFrontage"}, Value: 0}},
			{ScopeBoth, FillAll{Name: "no_alley", Columns: []string{"Alley"}, Value: "NoAlley"}},
			{ScopeBoth, FillAll{Name: "no_fireplace", Columns: []string{"FireplaceQu"}, Value: "NoFire"}},
			{ScopeBoth, FillAll{Name: "no_pool", Columns: []string{"PoolQC"}, Value: "NoPool"}},
			{ScopeBoth, FillAll{Name: "no_fence", Columns: []string{"Fence"}, Value: "NoFence"}},
			{ScopeBoth, FillAll{Name: "no_misc_feature", Columns: []string{"MiscFeature"}, Value: "NoMisc"}},
			{ScopeTrain, FillAll{Name: "electrical_mode", Columns: []string{"Electrical"}, Value: "SBrkr", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "zoning_mode", Columns: []string{"MSZoning"}, Value: "RL", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "utilities_mode", Columns: []string{"Utilities"}, Value: "AllPub", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "kitchen_quality_mode", Columns: []string{"KitchenQual"}, Value: "TA", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "functional_mode", Columns: []string{"Functional"}, Value: "Typ", Kind: model.OpModeFill}},
			{ScopeTest, FillAll{Name: "sale_type_mode", Columns: []string{"SaleType"}, Value: "WD", Kind: model.OpModeFill}},
		},
	}
}

// ModeConstant is a literal "most common value" the plan substitutes
type ModeConstant struct {
	Scope  Scope
	Column string
	Value  string
}

// ModeConstants lists the plan's literal mode substitutions
func (p *Plan) ModeConstants() []ModeConstant {
	var out []ModeConstant
	for _, step := range p.Steps {
		var (
			cols  []string
			value interface{}
		)
		switch r := step.Rule.(type) {
		case FillAll:
			if r.Kind != model.OpModeFill {
				continue
			}
			cols, value = r.Columns, r.Value
		case FillAt:
			if r.Kind != model.OpModeFill {
				continue
			}
			cols, value = r.Columns, r.Value
		default:
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		for _, col := range cols {
			out = append(out, ModeConstant{Scope: step.Scope, Column: col, Value: s})
		}
	}
	return out
}
