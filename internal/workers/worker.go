// Package workers keeps the fact tables in sync with the upstream event queues.
package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"datamart/internal/rabbitmq"
	"datamart/internal/warehouse"
	"datamart/models"
)

// Consumer feeds the messages of a queue to handler until ctx is done.
type Consumer interface {
	ConsumeQueue(ctx context.Context, queueName string, handler rabbitmq.Handler) error
}

const handleTimeout = 30 * time.Second

// resolveKey maps the natural keys of an event onto the grain of a fact row. Malformed
// dates and unknown dimension members are permanent failures.
func resolveKey(ctx context.Context, store warehouse.Store, data, codigo, loja string) (models.FactKey, error) {
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(data))
	if err != nil {
		return models.FactKey{}, rabbitmq.Permanent(fmt.Errorf("invalid fact date %q", data))
	}

	produtoID, ok, err := warehouse.ProductID(ctx, store, codigo)
	if err != nil {
		return models.FactKey{}, fmt.Errorf("failed to look up product %s: %w", codigo, err)
	}
	if !ok {
		return models.FactKey{}, rabbitmq.Permanent(fmt.Errorf("unknown product %q", codigo))
	}

	lojaID, ok, err := warehouse.StoreID(ctx, store, loja)
	if err != nil {
		return models.FactKey{}, fmt.Errorf("failed to look up store %s: %w", loja, err)
	}
	if !ok {
		return models.FactKey{}, rabbitmq.Permanent(fmt.Errorf("unknown store %q", loja))
	}

	return models.FactKey{Data: day, ProdutoID: produtoID, LojaID: lojaID}, nil
}

func checkEvent(event string) error {
	switch event {
	case models.EventUpsert, models.EventDelete:
		return nil
	default:
		return rabbitmq.Permanent(fmt.Errorf("unknown event type: %s", event))
	}
}
