package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"datamart/internal/rabbitmq"
	"datamart/internal/warehouse"
	"datamart/models"
	"datamart/pkg/logger"
)

type StockWorker struct {
	consumer  Consumer
	wh        warehouse.Warehouse
	queueName string
}

func NewStockWorker(consumer Consumer, wh warehouse.Warehouse, queueName string) *StockWorker {
	return &StockWorker{
		consumer:  consumer,
		wh:        wh,
		queueName: queueName,
	}
}

func (w *StockWorker) Start(ctx context.Context) error {
	logger.WithModule("workers").WithField("queue", w.queueName).Info("starting stock worker")
	return w.consumer.ConsumeQueue(ctx, w.queueName, w.HandleMessage)
}

// HandleMessage applies one closing-stock event. A negative quantity can never be
// stored and is dropped.
func (w *StockWorker) HandleMessage(ctx context.Context, body []byte) error {
	var evt models.StockFactEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return rabbitmq.Permanent(fmt.Errorf("failed to unmarshal stock event: %w", err))
	}
	if err := checkEvent(evt.Event); err != nil {
		return err
	}
	if evt.Event == models.EventUpsert && evt.EstoqueAtual < 0 {
		return rabbitmq.Permanent(fmt.Errorf("negative stock %d", evt.EstoqueAtual))
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	key, err := resolveKey(ctx, w.wh, evt.Data, evt.CodigoProduto, evt.NomeLoja)
	if err != nil {
		return err
	}

	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"module":         "workers",
		"fact":           models.TableEstoque,
		"event":          evt.Event,
		"data":           evt.Data,
		"codigo_produto": evt.CodigoProduto,
		"nome_loja":      evt.NomeLoja,
	})

	switch evt.Event {
	case models.EventDelete:
		if err := w.wh.DeleteStock(ctx, key); err != nil {
			return fmt.Errorf("failed to delete stock fact: %w", err)
		}
		log.Info("stock fact deleted")
	default:
		row := models.Estoque{
			Data:         key.Data,
			ProdutoID:    key.ProdutoID,
			LojaID:       key.LojaID,
			EstoqueAtual: evt.EstoqueAtual,
			EstoquePDV:   evt.EstoquePDV,
		}
		if err := w.wh.UpsertStock(ctx, []models.Estoque{row}); err != nil {
			return fmt.Errorf("failed to upsert stock fact: %w", err)
		}
		log.WithField("estoque_atual", evt.EstoqueAtual).Info("stock fact upserted")
	}
	return nil
}
