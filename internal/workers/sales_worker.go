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

type SalesWorker struct {
	consumer  Consumer
	wh        warehouse.Warehouse
	queueName string
}

func NewSalesWorker(consumer Consumer, wh warehouse.Warehouse, queueName string) *SalesWorker {
	return &SalesWorker{
		consumer:  consumer,
		wh:        wh,
		queueName: queueName,
	}
}

func (w *SalesWorker) Start(ctx context.Context) error {
	logger.WithModule("workers").WithField("queue", w.queueName).Info("starting sales worker")
	return w.consumer.ConsumeQueue(ctx, w.queueName, w.HandleMessage)
}

// HandleMessage applies one sales fact event.
func (w *SalesWorker) HandleMessage(ctx context.Context, body []byte) error {
	var evt models.SalesFactEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return rabbitmq.Permanent(fmt.Errorf("failed to unmarshal sales event: %w", err))
	}
	if err := checkEvent(evt.Event); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	key, err := resolveKey(ctx, w.wh, evt.Data, evt.CodigoProduto, evt.NomeLoja)
	if err != nil {
		return err
	}

	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"module":         "workers",
		"fact":           models.TableVendas,
		"event":          evt.Event,
		"data":           evt.Data,
		"codigo_produto": evt.CodigoProduto,
		"nome_loja":      evt.NomeLoja,
	})

	if evt.Event == models.EventDelete {
		if err := w.wh.DeleteSales(ctx, key); err != nil {
			return fmt.Errorf("failed to delete sales fact: %w", err)
		}
		log.Info("sales fact deleted")
		return nil
	}

	row := models.Venda{
		Data:              key.Data,
		ProdutoID:         key.ProdutoID,
		LojaID:            key.LojaID,
		VendaLiquida:      evt.VendaLiquida,
		QuantidadeVendida: evt.QuantidadeVendida,
	}
	if err := w.wh.UpsertSales(ctx, []models.Venda{row}); err != nil {
		return fmt.Errorf("failed to upsert sales fact: %w", err)
	}
	log.WithField("venda_liquida", evt.VendaLiquida.String()).Info("sales fact upserted")
	return nil
}
