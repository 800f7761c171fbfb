package warehouse

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"datamart/models"
)

// KeyMap resolves natural keys of the dimensions to their surrogate ids.
type KeyMap struct {
	Products map[string]int64 // codigo_produto -> id
	Stores   map[string]int64 // nome_loja -> id
}

// LoadKeys reads every dimension key in two scans.
func LoadKeys(ctx context.Context, s Store) (*KeyMap, error) {
	products, err := loadKeyColumn(ctx, s, "SELECT id, codigo_produto AS k FROM "+models.TableProduto)
	if err != nil {
		return nil, fmt.Errorf("load product keys: %w", err)
	}
	stores, err := loadKeyColumn(ctx, s, "SELECT id, nome_loja AS k FROM "+models.TableLoja)
	if err != nil {
		return nil, fmt.Errorf("load store keys: %w", err)
	}
	return &KeyMap{Products: products, Stores: stores}, nil
}

// ProductID looks up one product by code. ok is false when it does not exist.
func ProductID(ctx context.Context, s Store, codigo string) (int64, bool, error) {
	return lookupID(ctx, s, "SELECT id FROM "+models.TableProduto+" WHERE codigo_produto = ?", codigo)
}

// StoreID looks up one store by name.
func StoreID(ctx context.Context, s Store, nome string) (int64, bool, error) {
	return lookupID(ctx, s, "SELECT id FROM "+models.TableLoja+" WHERE nome_loja = ?", nome)
}

// MaxID returns the largest id of a dimension table, zero when empty.
func MaxID(ctx context.Context, s Store, table string) (int64, error) {
	if err := CheckTable(table); err != nil {
		return 0, err
	}
	recs, err := s.Query(ctx, "SELECT MAX(id) AS id FROM "+table)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 || recs[0]["id"] == nil {
		return 0, nil
	}
	return AsInt64(recs[0]["id"])
}

func lookupID(ctx context.Context, s Store, q string, arg any) (int64, bool, error) {
	recs, err := s.Query(ctx, q, arg)
	if err != nil {
		return 0, false, err
	}
	if len(recs) == 0 {
		return 0, false, nil
	}
	id, err := AsInt64(recs[0]["id"])
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func loadKeyColumn(ctx context.Context, s Store, q string) (map[string]int64, error) {
	recs, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(recs))
	for _, r := range recs {
		id, err := AsInt64(r["id"])
		if err != nil {
			return nil, err
		}
		out[fmt.Sprint(r["k"])] = id
	}
	return out, nil
}

// AsInt64 converts the integer representations drivers use for id columns.
func AsInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("id %d overflows int64", x)
		}
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}
