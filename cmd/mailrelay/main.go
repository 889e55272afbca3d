package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/internal/config"
	"github.com/fastygo/greenbite/internal/relay"
	"github.com/fastygo/greenbite/internal/services/lifecycle"
	"github.com/fastygo/greenbite/pkg/logger"
	"github.com/fastygo/greenbite/pkg/mailer"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  "greenbite-mailrelay",
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(0, zapLogger)
	manager.Listen(cancel)

	var sender mailer.Sender
	switch cfg.Mail.Transport {
	case "smtp":
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPass,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
		})
	default:
		sender = mailer.NewAPISender(mailer.APIConfig{
			URL:      cfg.Mail.APIURL,
			Key:      cfg.Mail.APIKey,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
			Timeout:  cfg.Mail.Timeout,
		})
	}

	handler := relay.NewHandler(sender, cfg.Mail.Timeout*2, zapLogger)
	server := &fasthttp.Server{
		Handler: handler.Router().Handler,
		Name:    "greenbite-mailrelay",
	}

	zapLogger.Info("mail relay started", zap.String("address", cfg.Address()), zap.String("transport", cfg.Mail.Transport))
	manager.Go("http_server", func() error {
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
