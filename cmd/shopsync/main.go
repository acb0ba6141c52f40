package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/auth"
	"github.com/iurnickita/shopsync/internal/config"
	"github.com/iurnickita/shopsync/internal/discount"
	"github.com/iurnickita/shopsync/internal/handler"
	"github.com/iurnickita/shopsync/internal/idempotency"
	"github.com/iurnickita/shopsync/internal/logger"
	"github.com/iurnickita/shopsync/internal/secret"
	"github.com/iurnickita/shopsync/internal/service"
	"github.com/iurnickita/shopsync/internal/service/erpclient"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
	"github.com/iurnickita/shopsync/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	box, err := secret.NewBox(cfg.Secret)
	if err != nil {
		return err
	}

	audit := auditlog.NewLogger(cfg.Audit, store, auditlog.NewKafkaPublisher(cfg.Audit), zaplog)
	defer audit.Close()

	guard, err := idempotency.NewGuard(cfg.Idempotency)
	if err != nil {
		return err
	}

	binder := shopifyclient.NewBinder(cfg.Shopify, store, box, audit, zaplog)
	engine := discount.NewEngine(cfg.Discount, store, service.BindRemote(binder), audit, zaplog)

	service, err := service.NewService(cfg.Service, store, binder, erpclient.NewERPClient(cfg.ERP), guard, engine, audit, zaplog)
	if err != nil {
		return err
	}

	// откат просроченных скидок
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		discount.NewSweeper(engine, zaplog).Run(ctx)
	}()

	auth := auth.NewAuth(store, box, zaplog)

	err = handler.Serve(ctx, cfg.Handler, auth, service, zaplog)
	stop()
	<-sweeperDone
	zaplog.Info("shutdown complete", zap.Error(err))
	return err
}
