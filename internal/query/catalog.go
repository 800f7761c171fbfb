// Package query is the dynamic OLAP query engine of the data mart. It turns a request
// for dimensions and metrics into grouped aggregates over the sales and stock fact
// tables and reconciles both into one row set.
package query

import (
	"fmt"

	"datamart/internal/warehouse"
	"datamart/models"
)

// Dimension is a client-facing grouping attribute.
type Dimension string

const (
	NomeProduto       Dimension = "nome_produto"
	CodigoProduto     Dimension = "codigo_produto"
	NomeMarca         Dimension = "nome_marca"
	NomeDepartamento  Dimension = "nome_departamento"
	NomeClassificacao Dimension = "nome_classificacao"
	NomeGrupo         Dimension = "nome_grupo"
	NomeModelo        Dimension = "nome_modelo"
	NomeFornecedor    Dimension = "nome_fornecedor"
	NomeLoja          Dimension = "nome_loja"
	Mes               Dimension = "mes"
)

// Metric is a client-facing measure.
type Metric string

const (
	VendaLiquida      Metric = "venda_liquida"
	QuantidadeVendida Metric = "quantidade_vendida"
	EstoqueAtual      Metric = "estoque_atual"
	EstoquePDV        Metric = "estoque_pdv"
)

// Fact is one of the two fact tables.
type Fact int

const (
	FactSales Fact = iota
	FactStock
)

func (f Fact) table() string {
	if f == FactStock {
		return models.TableEstoque
	}
	return models.TableVendas
}

func (f Fact) String() string {
	if f == FactStock {
		return "stock"
	}
	return "sales"
}

// Table aliases used by every generated query.
const (
	factAlias    = "f"
	productAlias = "p"
	storeAlias   = "l"
)

type source int

const (
	sourceProduct source = iota
	sourceStore
	sourceFactMonth
)

type dimensionSpec struct {
	source source
	column string
}

var dimensions = map[Dimension]dimensionSpec{
	NomeProduto:       {sourceProduct, "nome_produto"},
	CodigoProduto:     {sourceProduct, "codigo_produto"},
	NomeMarca:         {sourceProduct, "nome_marca"},
	NomeDepartamento:  {sourceProduct, "nome_departamento"},
	NomeClassificacao: {sourceProduct, "nome_classificacao"},
	NomeGrupo:         {sourceProduct, "nome_grupo"},
	NomeModelo:        {sourceProduct, "nome_modelo"},
	NomeFornecedor:    {sourceProduct, "nome_fornecedor"},
	NomeLoja:          {sourceStore, "nome_loja"},
	Mes:               {sourceFactMonth, "data"},
}

type metricSpec struct {
	fact   Fact
	column string
}

var metrics = map[Metric]metricSpec{
	VendaLiquida:      {FactSales, "venda_liquida"},
	QuantidadeVendida: {FactSales, "quantidade_vendida"},
	EstoqueAtual:      {FactStock, "estoque_atual"},
	EstoquePDV:        {FactStock, "estoque_pdv"},
}

// Catalog maps client names onto column expressions for one SQL dialect.
type Catalog struct {
	dialect warehouse.Dialect
}

func NewCatalog(d warehouse.Dialect) Catalog {
	return Catalog{dialect: d}
}

// ResolveDimension returns the column expression behind name. The month bucket is
// computed over the date of whichever fact table the query reads.
func (c Catalog) ResolveDimension(name Dimension) (string, bool) {
	spec, ok := dimensions[name]
	if !ok {
		return "", false
	}
	switch spec.source {
	case sourceProduct:
		return productAlias + "." + spec.column, true
	case sourceStore:
		return storeAlias + "." + spec.column, true
	default:
		return c.dialect.MonthExpr(factAlias + "." + spec.column), true
	}
}

// ResolveMetric returns the fact table and aggregate expression behind name.
func (c Catalog) ResolveMetric(name Metric) (Fact, string, bool) {
	spec, ok := metrics[name]
	if !ok {
		return 0, "", false
	}
	return spec.fact, fmt.Sprintf("SUM(%s.%s)", factAlias, spec.column), true
}

// Fact reports which fact table feeds m.
func (m Metric) Fact() Fact {
	return metrics[m].fact
}

// KnownDimension reports whether name is in the catalog.
func KnownDimension(name string) bool {
	_, ok := dimensions[Dimension(name)]
	return ok
}

// KnownMetric reports whether name is in the catalog.
func KnownMetric(name string) bool {
	_, ok := metrics[Metric(name)]
	return ok
}
