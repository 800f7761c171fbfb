// Package loader bulk-loads CSV extracts into the data mart.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"datamart/internal/warehouse"
	"datamart/models"
	"datamart/pkg/logger"
)

// Kind names the table a file is loaded into.
type Kind string

const (
	KindProdutos Kind = "produtos"
	KindLojas    Kind = "lojas"
	KindVendas   Kind = "vendas"
	KindEstoque  Kind = "estoque"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindProdutos, KindLojas, KindVendas, KindEstoque:
		return k, nil
	default:
		return "", fmt.Errorf("unknown load kind %q (want produtos, lojas, vendas or estoque)", s)
	}
}

func (k Kind) Table() string {
	switch k {
	case KindProdutos:
		return models.TableProduto
	case KindLojas:
		return models.TableLoja
	case KindVendas:
		return models.TableVendas
	default:
		return models.TableEstoque
	}
}

// Stats counts the rows of one load.
type Stats struct {
	Read    int
	Loaded  int
	Skipped int
}

type Loader struct {
	wh        warehouse.Warehouse
	batchSize int
	progress  io.Writer
}

func New(wh warehouse.Warehouse, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Loader{wh: wh, batchSize: batchSize, progress: io.Discard}
}

// SetProgressOutput enables the progress bar on w.
func (l *Loader) SetProgressOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.progress = w
}

// LoadURI opens uri through src and loads it.
func (l *Loader) LoadURI(ctx context.Context, src Opener, uri string, kind Kind, truncate bool) (Stats, error) {
	rc, err := src.Open(ctx, uri)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()

	stats, err := l.Load(ctx, rc, kind, truncate)
	if err != nil {
		return stats, fmt.Errorf("load %s: %w", uri, err)
	}
	return stats, nil
}

// Load reads a CSV extract with a header row into the table of kind. Dimension rows are
// deduplicated by natural key keeping the first. Fact rows whose product or store is
// unknown are skipped. A malformed row aborts the load; batches already written stay.
func (l *Loader) Load(ctx context.Context, r io.Reader, kind Kind, truncate bool) (Stats, error) {
	log := logger.WithModule("loader").WithField("kind", kind)

	in, err := newCSVReader(r)
	if err != nil {
		return Stats{}, err
	}
	if err := in.require(requiredColumns[kind]...); err != nil {
		return Stats{}, err
	}

	if truncate {
		if err := l.wh.Truncate(ctx, kind.Table()); err != nil {
			return Stats{}, fmt.Errorf("failed to truncate %s: %w", kind.Table(), err)
		}
		log.WithField("table", kind.Table()).Info("table truncated")
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(l.progress),
		progressbar.OptionSetDescription("loading "+string(kind)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	defer bar.Finish()

	var b batcher
	switch kind {
	case KindProdutos:
		b = &productBatch{seen: map[string]bool{}}
	case KindLojas:
		b = &storeBatch{seen: map[string]bool{}}
	default:
		keys, err := warehouse.LoadKeys(ctx, l.wh)
		if err != nil {
			return Stats{}, err
		}
		if kind == KindVendas {
			b = &salesBatch{keys: keys, index: map[models.FactKey]int{}}
		} else {
			b = &stockBatch{keys: keys, index: map[models.FactKey]int{}}
		}
	}

	var stats Stats
	flush := func() error {
		n := b.len()
		if n == 0 {
			return nil
		}
		if err := b.flush(ctx, l.wh); err != nil {
			return fmt.Errorf("failed to write %s batch: %w", kind, err)
		}
		stats.Loaded += n
		_ = bar.Add(n)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec, err := in.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Read++

		added, err := b.add(rec)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", in.line, err)
		}
		if !added {
			stats.Skipped++
			log.WithFields(logrus.Fields{"line": in.line}).Debug("row skipped")
		}
		if b.len() >= l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	log.WithFields(logrus.Fields{
		"read":    stats.Read,
		"loaded":  stats.Loaded,
		"skipped": stats.Skipped,
	}).Info("load finished")
	return stats, nil
}

var requiredColumns = map[Kind][]string{
	KindProdutos: {"codigo_produto", "nome_produto"},
	KindLojas:    {"nome_loja"},
	KindVendas:   {"data", "codigo_produto", "nome_loja", "venda_liquida", "quantidade_vendida"},
	KindEstoque:  {"data", "codigo_produto", "nome_loja", "estoque_atual"},
}

// batcher accumulates parsed rows of one kind. add reports false for rows it skips.
type batcher interface {
	add(rec map[string]string) (bool, error)
	len() int
	flush(ctx context.Context, wh warehouse.Sink) error
}

type productBatch struct {
	seen map[string]bool
	rows []models.Produto
}

func (b *productBatch) add(rec map[string]string) (bool, error) {
	code := rec["codigo_produto"]
	if code == "" || b.seen[code] {
		return false, nil
	}
	b.seen[code] = true
	b.rows = append(b.rows, models.Produto{
		CodigoProduto:     code,
		NomeProduto:       rec["nome_produto"],
		NomeMarca:         rec["nome_marca"],
		NomeDepartamento:  rec["nome_departamento"],
		NomeClassificacao: rec["nome_classificacao"],
		NomeGrupo:         rec["nome_grupo"],
		NomeModelo:        rec["nome_modelo"],
		NomeFornecedor:    rec["nome_fornecedor"],
	})
	return true, nil
}

func (b *productBatch) len() int { return len(b.rows) }

func (b *productBatch) flush(ctx context.Context, wh warehouse.Sink) error {
	err := wh.InsertProducts(ctx, b.rows)
	b.rows = b.rows[:0]
	return err
}

type storeBatch struct {
	seen map[string]bool
	rows []models.Loja
}

func (b *storeBatch) add(rec map[string]string) (bool, error) {
	name := rec["nome_loja"]
	if name == "" || b.seen[name] {
		return false, nil
	}
	b.seen[name] = true
	b.rows = append(b.rows, models.Loja{NomeLoja: name})
	return true, nil
}

func (b *storeBatch) len() int { return len(b.rows) }

func (b *storeBatch) flush(ctx context.Context, wh warehouse.Sink) error {
	err := wh.InsertStores(ctx, b.rows)
	b.rows = b.rows[:0]
	return err
}

// factKey parses the grain columns. ok is false when a dimension member is unknown.
func factKey(keys *warehouse.KeyMap, rec map[string]string) (models.FactKey, bool, error) {
	day, err := parseDay(rec["data"])
	if err != nil {
		return models.FactKey{}, false, err
	}
	produtoID, ok := keys.Products[rec["codigo_produto"]]
	if !ok {
		return models.FactKey{}, false, nil
	}
	lojaID, ok := keys.Stores[rec["nome_loja"]]
	if !ok {
		return models.FactKey{}, false, nil
	}
	return models.FactKey{Data: day, ProdutoID: produtoID, LojaID: lojaID}, true, nil
}

// salesBatch keeps the last row per fact key so one batch never touches a key twice.
type salesBatch struct {
	keys  *warehouse.KeyMap
	index map[models.FactKey]int
	rows  []models.Venda
}

func (b *salesBatch) add(rec map[string]string) (bool, error) {
	key, ok, err := factKey(b.keys, rec)
	if err != nil || !ok {
		return false, err
	}
	venda, err := parseDecimal(rec["venda_liquida"])
	if err != nil {
		return false, err
	}
	qty, err := parseCount(rec["quantidade_vendida"])
	if err != nil {
		return false, err
	}

	row := models.Venda{Data: key.Data, ProdutoID: key.ProdutoID, LojaID: key.LojaID, VendaLiquida: venda, QuantidadeVendida: qty}
	if i, dup := b.index[key]; dup {
		b.rows[i] = row
		return true, nil
	}
	b.index[key] = len(b.rows)
	b.rows = append(b.rows, row)
	return true, nil
}

func (b *salesBatch) len() int { return len(b.rows) }

func (b *salesBatch) flush(ctx context.Context, wh warehouse.Sink) error {
	err := wh.UpsertSales(ctx, b.rows)
	b.rows = b.rows[:0]
	clear(b.index)
	return err
}

type stockBatch struct {
	keys  *warehouse.KeyMap
	index map[models.FactKey]int
	rows  []models.Estoque
}

func (b *stockBatch) add(rec map[string]string) (bool, error) {
	key, ok, err := factKey(b.keys, rec)
	if err != nil || !ok {
		return false, err
	}
	qty, err := parseCount(rec["estoque_atual"])
	if err != nil {
		return false, err
	}
	if qty < 0 {
		return false, fmt.Errorf("negative stock %d", qty)
	}
	pdv, err := parseDecimal(rec["estoque_pdv"])
	if err != nil {
		return false, err
	}

	row := models.Estoque{Data: key.Data, ProdutoID: key.ProdutoID, LojaID: key.LojaID, EstoqueAtual: qty, EstoquePDV: pdv}
	if i, dup := b.index[key]; dup {
		b.rows[i] = row
		return true, nil
	}
	b.index[key] = len(b.rows)
	b.rows = append(b.rows, row)
	return true, nil
}

func (b *stockBatch) len() int { return len(b.rows) }

func (b *stockBatch) flush(ctx context.Context, wh warehouse.Sink) error {
	err := wh.UpsertStock(ctx, b.rows)
	b.rows = b.rows[:0]
	clear(b.index)
	return err
}
