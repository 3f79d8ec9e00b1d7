package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibliotek/biblioteca-service/biblioteca/config"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/handler"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/openlibrary"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/queue"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/repository"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/server"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/service/catalog"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/service/circulation"
	"github.com/bibliotek/biblioteca-service/biblioteca/migrations"
	"github.com/bibliotek/biblioteca-service/pkg/kafka"
	"github.com/bibliotek/biblioteca-service/pkg/logger"
	"github.com/bibliotek/biblioteca-service/pkg/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "biblioteca")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("kafka.NewProducer", zap.Error(err))
	}

	circulationSvc := circulation.NewService(repo, queue.NewEnqueuer(producer), cfg.Policy, log)
	catalogSvc := catalog.NewService(repo, openlibrary.NewClient(cfg.OpenLibrary, log), log)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.CirculationConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}

	consumeCtx, stopConsume := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(consumeCtx)
	g.Go(func() error {
		kafka.Consume(consumeCtx, consumer, handler.NewConsumer(circulationSvc.CreateManualFine, log), kafka.FinesTopic, log)
		return nil
	})

	h := handler.New(circulationSvc, catalogSvc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	g.Go(func() error {
		if err := srv.Run(); err != nil && err != http.ErrServerClosed {
			log.Error("server run", zap.Error(err))
			return err
		}
		return nil
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	stopConsume()
	if err = consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	if err = producer.Close(); err != nil {
		log.Error("producer.Close", zap.Error(err))
	}
	if err = g.Wait(); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
