package export

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/fare-cli/internal/model"
)

// ReadRecords loads the flight records from every route sheet of a workbook
// written by Export. The Analysis sheet is ignored. Columns are matched by
// header name, so sheets written with extra or reordered columns still load.
func ReadRecords(path string) ([]model.FlightRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open workbook")
	}

	var records []model.FlightRecord
	for _, sheet := range f.Sheets {
		if sheet.Name == AnalysisSheet || len(sheet.Rows) == 0 {
			continue
		}

		cols := headerIndex(rowToStrings(sheet.Rows[0]))
		for i, row := range sheet.Rows[1:] {
			cells := rowToStrings(row)
			rec, err := recordFromRow(cols, cells)
			if err != nil {
				return nil, eris.Wrapf(err, "export: sheet %s row %d", sheet.Name, i+2)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}

func recordFromRow(cols map[string]int, cells []string) (model.FlightRecord, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	price, err := decimal.NewFromString(get("price"))
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "parse price %q", get("price"))
	}
	dir, err := model.ParseDirection(get("direction"))
	if err != nil {
		return model.FlightRecord{}, err
	}

	return model.FlightRecord{
		DepartureStation: get("departure_station"),
		ArrivalStation:   get("arrival_station"),
		DepartureDate:    get("departure_date"),
		Price:            price,
		FormattedPrice:   get("formatted_price"),
		ShortPrice:       get("short_price"),
		AirlineProfile:   get("airline_profile"),
		FlightNumber:     get("flight_number"),
		Direction:        dir,
		FetchDate:        get("fetch_date"),
	}, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
