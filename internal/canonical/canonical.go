package canonical

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"cotcli/internal/config"
	"cotcli/internal/cot"
	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
)

// TableName names the loaded canonical frame.
const TableName = "canonical"

// ContractCodeColumn holds the CFTC contract market code.
const ContractCodeColumn = "contract_code"

// CountColumns are the numeric columns read from the canonical table.
var CountColumns = []string{
	"open_interest_all",
	"comm_long", "comm_short",
	"nc_long", "nc_short",
	"nr_long", "nr_short",
}

// RequiredColumns lists every column the canonical table must carry.
func RequiredColumns() []string {
	return append([]string{frame.MarketColumn, frame.DateColumn, ContractCodeColumn}, CountColumns...)
}

// Load reads the canonical CSV at path.
func Load(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewStorageError(fmt.Sprintf("canonical table not found at %s", path), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("open canonical table %s", path), err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a canonical CSV. Contract codes stay text so leading zeros
// survive; counts that are empty or non-numeric become NaN. Columns beyond
// the required set are ignored.
func Read(r io.Reader) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.NewStorageError("read canonical csv", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewSchemaError(TableName, RequiredColumns())
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range RequiredColumns() {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError(TableName, missing)
	}

	rows := records[1:]
	keys := make([]frame.Key, len(rows))
	codes := make([]string, len(rows))
	for i, rec := range rows {
		d, err := frame.ParseDate(rec[idx[frame.DateColumn]])
		if err != nil {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("canonical row %d: %v", i+1, err))
		}
		keys[i] = frame.NewKey(strings.TrimSpace(rec[idx[frame.MarketColumn]]), d)
		codes[i] = rec[idx[ContractCodeColumn]]
	}

	out := frame.New(TableName, keys)
	out.SetString(ContractCodeColumn, codes)
	for _, c := range CountColumns {
		vals := make([]float64, len(rows))
		for i, rec := range rows {
			vals[i] = frame.ParseFloat(rec[idx[c]])
		}
		out.SetFloat(c, vals)
	}
	return out, nil
}

// FilterStats reports how many rows survived the market filter.
type FilterStats struct {
	Before int
	After  int
}

// Filter keeps the rows whose (market_key, contract_code) pair is in the
// catalog. Contract codes are normalized on both sides. An empty result or
// a repeated (market_key, report_date) is an integrity error.
func Filter(f *frame.Frame, catalog cot.Catalog) (*frame.Frame, FilterStats, error) {
	stats := FilterStats{Before: f.Len()}
	codes := f.MustString(ContractCodeColumn)

	allowed := make(map[[2]string]bool, len(catalog))
	for key, m := range catalog {
		allowed[[2]string{key, config.CleanContractCode(m.ContractCode)}] = true
	}

	var keep []int
	cleaned := make([]string, 0, f.Len())
	for i, k := range f.Keys() {
		code := config.CleanContractCode(codes[i])
		if allowed[[2]string{k.Market, code}] {
			keep = append(keep, i)
			cleaned = append(cleaned, code)
		}
	}
	out := f.Take(keep)
	out.SetString(ContractCodeColumn, cleaned)
	stats.After = out.Len()

	if out.Len() == 0 {
		return nil, stats, apperrors.NewIntegrityError(
			"canonical has 0 rows after the markets filter (market_key + contract_code)", nil)
	}

	triples := make(map[string]int, out.Len())
	dupTriples := 0
	for i, k := range out.Keys() {
		id := k.String() + "|" + cleaned[i]
		triples[id]++
		if triples[id] == 2 {
			dupTriples++
		}
	}
	if dupTriples > 0 {
		return nil, stats, apperrors.NewIntegrityError(
			fmt.Sprintf("canonical has %d duplicate (market_key, report_date, contract_code) rows after filter", dupTriples), nil)
	}
	if err := frame.CheckUnique(out); err != nil {
		return nil, stats, apperrors.NewIntegrityError("canonical keys after filter", err)
	}
	return out, stats, nil
}
