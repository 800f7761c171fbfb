package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// header aliases accepted for each canonical column.
var aliases = map[string]string{
	"data":               "data",
	"date":               "data",
	"dia":                "data",
	"codigo_produto":     "codigo_produto",
	"codigo":             "codigo_produto",
	"product_code":       "codigo_produto",
	"nome_produto":       "nome_produto",
	"produto":            "nome_produto",
	"product_name":       "nome_produto",
	"nome_marca":         "nome_marca",
	"marca":              "nome_marca",
	"nome_departamento":  "nome_departamento",
	"departamento":       "nome_departamento",
	"nome_classificacao": "nome_classificacao",
	"classificacao":      "nome_classificacao",
	"nome_grupo":         "nome_grupo",
	"grupo":              "nome_grupo",
	"nome_modelo":        "nome_modelo",
	"modelo":             "nome_modelo",
	"nome_fornecedor":    "nome_fornecedor",
	"fornecedor":         "nome_fornecedor",
	"nome_loja":          "nome_loja",
	"loja":               "nome_loja",
	"venda_liquida":      "venda_liquida",
	"quantidade_vendida": "quantidade_vendida",
	"sold_quantity":      "quantidade_vendida",
	"estoque_atual":      "estoque_atual",
	"closing_stock":      "estoque_atual",
	"estoque_pdv":        "estoque_pdv",
}

// csvReader yields records as column maps keyed by canonical header name.
type csvReader struct {
	r    *csv.Reader
	cols []string
	line int
}

// newCSVReader sniffs the delimiter from the header line and maps the header onto
// canonical columns. Unrecognized columns are ignored.
func newCSVReader(in io.Reader) (*csvReader, error) {
	br := bufio.NewReader(in)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	r := csv.NewReader(br)
	r.Comma = detectDelimiter(head)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = aliases[normalizeHeader(h)]
	}
	return &csvReader{r: r, cols: cols, line: 1}, nil
}

func detectDelimiter(line []byte) rune {
	best, count := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > count {
			best, count = d, n
		}
	}
	return best
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func (c *csvReader) has(col string) bool {
	for _, k := range c.cols {
		if k == col {
			return true
		}
	}
	return false
}

func (c *csvReader) require(cols ...string) error {
	var missing []string
	for _, col := range cols {
		if !c.has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// next reads one record. It returns io.EOF at the end of the input.
func (c *csvReader) next() (map[string]string, error) {
	fields, err := c.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("line %d: %w", c.line+1, err)
	}
	c.line++

	rec := make(map[string]string, len(c.cols))
	for i, col := range c.cols {
		if col == "" || i >= len(fields) {
			continue
		}
		rec[col] = strings.TrimSpace(fields[i])
	}
	return rec, nil
}

// parseDecimal accepts plain and pt-BR formatted numbers ("1.234,56").
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

func parseCount(s string) (int64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return d.IntPart(), nil
}

var dateLayouts = []string{time.DateOnly, "02/01/2006", time.DateTime, "2006-01-02T15:04:05"}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
