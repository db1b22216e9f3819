package main

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"tickbook/api/grpcserver"
	"tickbook/domain/orderbook"
	"tickbook/infra/kafka"
	"tickbook/infra/memory"
	"tickbook/infra/outbox"
	"tickbook/infra/sequence"
	"tickbook/internal/config"
	"tickbook/jobs/broadcaster"
	"tickbook/jobs/loadgen"
	"tickbook/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	// ---------------- Outbox ----------------

	var sink service.EventSink
	var ob *outbox.Outbox
	if cfg.Outbox.Dir != "" {
		ob, err = outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			logger.Fatalf("outbox init failed: %v", err)
		}
		defer ob.Close()
		sink = ob
		logger.WithField("dir", cfg.Outbox.Dir).WithField("last_seq", ob.LastSeq()).Info("outbox opened")
	}

	// ---------------- Domain ----------------

	book := orderbook.New(
		cfg.Symbol,
		orderbook.WithIDGenerator(sequence.New(0)),
		orderbook.WithAllocator(memory.NewOrderPool()),
	)
	eng := service.NewEngine(book, logger, sink)
	logger.WithField("symbol", cfg.Symbol).Info("created order book")

	var wg sync.WaitGroup

	// ---------------- Broadcaster ----------------

	if cfg.Kafka.Enabled() && ob != nil {
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Client:  cfg.Kafka.Client,
		})
		if err != nil {
			logger.Fatalf("kafka publisher init failed: %v", err)
		}
		bc := broadcaster.New(ob, pub, cfg.Kafka.BroadcastInterval, logger)
		defer bc.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			bc.Run(ctx)
		}()
	}

	// ---------------- gRPC ----------------

	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logger)))
		grpcserver.Register(grpcSrv, grpcserver.NewServer(eng))

		go func() {
			logger.Infof("market data gRPC listening on %s", lis.Addr())
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Errorf("gRPC server exited: %v", err)
			}
		}()
	}

	// ---------------- Load ----------------

	if cfg.Load.Enabled {
		if _, err := loadgen.New(cfg.Load, logger).Run(ctx, eng); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("load generation failed: %v", err)
		}
		if _, ok := eng.BBO(); !ok {
			logger.Info("book is one-sided, no bbo")
		}
	}

	if grpcSrv == nil {
		cancel()
	}
	<-ctx.Done()
	logger.Info("shutting down")

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	wg.Wait()
	logger.Info("engine stopped")
}
