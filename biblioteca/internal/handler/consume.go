package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"go.uber.org/zap"
)

type createFine func(ctx context.Context, req model.CreateFineRequest) (model.Fine, error)

// Consumer ingests fines issued outside the circulation flow (damage, loss,
// non-return) from the fines topic.
type Consumer struct {
	createFineHandler createFine
	log               *zap.Logger
	ready             chan bool
}

func NewConsumer(createFineHandler createFine, log *zap.Logger) *Consumer {
	return &Consumer{
		createFineHandler: createFineHandler,
		log:               log.Named("consumer"),
		ready:             make(chan bool),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as ready
	close(consumer.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var req model.CreateFineRequest
			if err := json.Unmarshal(message.Value, &req); err != nil {
				consumer.log.Error("unmarshal fine", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			fine, err := consumer.createFineHandler(context.Background(), req)
			if err != nil {
				consumer.log.Error("consumer.createFineHandler", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			consumer.log.Debug("fine ingested",
				zap.String("fineUid", fine.FineUid),
				zap.String("loanUid", fine.LoanUid),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
