package impute

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/David-Botos/housing-fill/pkg/dataset"
)

// housingColumns is the subset of the housing schema the plan reads or writes
var housingColumns = []string{
	"Id", "MSZoning", "LotFrontage", "Alley", "Utilities", "YearBuilt",
	"Exterior1st", "Exterior2nd", "MasVnrType", "MasVnrArea",
	"BsmtQual", "BsmtCond", "BsmtExposure", "BsmtFinType1", "BsmtFinSF1",
	"BsmtFinType2", "BsmtFinSF2", "BsmtUnfSF", "TotalBsmtSF", "Electrical",
	"BsmtFullBath", "BsmtHalfBath", "KitchenQual", "Functional", "FireplaceQu",
	"GarageType", "GarageYrBlt", "GarageFinish", "GarageCars", "GarageArea",
	"GarageQual", "GarageCond", "PoolQC", "Fence", "MiscFeature", "SaleType",
}

// typicalRow holds a fully populated house with a basement, a garage and veneer
var typicalRow = map[string]string{
	"MSZoning": "RL", "LotFrontage": "65", "Alley": "Pave", "Utilities": "AllPub", "YearBuilt": "1995",
	"Exterior1st": "HdBoard", "Exterior2nd": "HdBoard", "MasVnrType": "BrkFace", "MasVnrArea": "196",
	"BsmtQual": "Gd", "BsmtCond": "TA", "BsmtExposure": "Av", "BsmtFinType1": "GLQ", "BsmtFinSF1": "706",
	"BsmtFinType2": "Unf", "BsmtFinSF2": "0", "BsmtUnfSF": "150", "TotalBsmtSF": "856", "Electrical": "SBrkr",
	"BsmtFullBath": "1", "BsmtHalfBath": "0", "KitchenQual": "Gd", "Functional": "Typ", "FireplaceQu": "Gd",
	"GarageType": "Attchd", "GarageYrBlt": "1995", "GarageFinish": "RFn", "GarageCars": "2", "GarageArea": "548",
	"GarageQual": "TA", "GarageCond": "TA", "PoolQC": "Ex", "Fence": "MnPrv", "MiscFeature": "Shed", "SaleType": "WD",
}

// fixture renders a CSV of typical rows with per-cell overrides
type fixture struct {
	rows      int
	extra     []string
	overrides map[int]map[string]string
}

func newFixture(rows int) *fixture {
	return &fixture{rows: rows, overrides: make(map[int]map[string]string)}
}

// withColumn appends a column holding a fixed sale price
func (f *fixture) withColumn(name string) *fixture {
	f.extra = append(f.extra, name)
	return f
}

func (f *fixture) set(row int, values map[string]string) *fixture {
	if f.overrides[row] == nil {
		f.overrides[row] = make(map[string]string)
	}
	for k, v := range values {
		f.overrides[row][k] = v
	}
	return f
}

func (f *fixture) header() []string {
	return append(append([]string{}, housingColumns...), f.extra...)
}

func (f *fixture) csv() string {
	header := f.header()

	var sb strings.Builder
	sb.WriteString(strings.Join(header, ","))
	sb.WriteString("\n")

	fields := make([]string, len(header))
	for row := 0; row < f.rows; row++ {
		for i, col := range header {
			switch {
			case col == "Id":
				fields[i] = strconv.Itoa(row + 1)
			case f.overrides[row] != nil && hasKey(f.overrides[row], col):
				fields[i] = f.overrides[row][col]
			case typicalRow[col] != "":
				fields[i] = typicalRow[col]
			default:
				fields[i] = "208500"
			}
		}
		sb.WriteString(strings.Join(fields, ","))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *fixture) table(t *testing.T, name string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(name, strings.NewReader(f.csv()),
		dataset.Categorical(HousingPlan().CategoricalTargets()...))
	require.NoError(t, err)
	return tbl
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// na marks every listed column missing
func na(cols ...string) map[string]string {
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c] = "NA"
	}
	return out
}

// merge combines override maps; later maps win
func merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// cell reads a rendered value, failing the test on structural errors
func cell(t *testing.T, tbl *dataset.Table, row int, col string) string {
	t.Helper()
	value, ok, err := tbl.Value(row, col)
	require.NoError(t, err)
	if !ok {
		return "<missing>"
	}
	return value
}

func number(t *testing.T, tbl *dataset.Table, row int, col string) float64 {
	t.Helper()
	f, err := tbl.Float(row, col)
	require.NoError(t, err)
	return f
}
