package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// Column names of the upload header
const (
	ColTicker   = "ticker"
	ColQuantity = "quantity"
	ColDate     = "date"
	ColPrice    = "price"
	ColCurrency = "currency"
	ColType     = "type"
)

var requiredColumns = []string{ColTicker, ColQuantity, ColDate, ColPrice, ColCurrency, ColType}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one raw data row of an upload
type Row struct {
	Index    int
	Ticker   string
	Quantity string
	Date     string
	Price    string
	Currency string
	Type     string
	Content  string
}

// ParseCSV decodes an upload into raw rows. Columns are matched by header name.
func ParseCSV(upload []byte) ([]Row, error) {
	upload = bytes.TrimPrefix(upload, utf8BOM)
	if !utf8.Valid(upload) {
		return nil, &ParseError{Reason: "not valid UTF-8 text"}
	}
	if len(bytes.TrimSpace(upload)) == 0 {
		return nil, &ParseError{Reason: "empty file"}
	}

	r := csv.NewReader(bytes.NewReader(upload))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, parseError(err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Line: 1, Reason: "missing columns " + strings.Join(missing, ", ")}
	}

	var rows []Row
	for {
		start := r.InputOffset()
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		if isBlank(record) {
			continue
		}

		field := func(col string) string {
			return strings.TrimSpace(record[index[col]])
		}
		rows = append(rows, Row{
			Index:    len(rows) + 1,
			Ticker:   field(ColTicker),
			Quantity: field(ColQuantity),
			Date:     field(ColDate),
			Price:    field(ColPrice),
			Currency: field(ColCurrency),
			Type:     field(ColType),
			Content:  strings.Trim(string(upload[start:r.InputOffset()]), "\r\n"),
		})
	}

	if len(rows) == 0 {
		return nil, &ParseError{Reason: "no data rows"}
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Reason: csvErr.Err.Error(), Err: err}
	}
	return &ParseError{Reason: err.Error(), Err: err}
}
