package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airbusgeo/ee-ingester/config"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/airbusgeo/ee-ingester/workflow"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

type serverConfig struct {
	AppPort    string
	EnvFile    string
	Token      string
	WithBucket bool
}

func newAppConfig() (*serverConfig, error) {
	appPort := flag.String("port", "8080", "workflow port to use")
	envFile := flag.String("env-file", "", "file defining environment variables (default: .env)")
	token := flag.String("token", os.Getenv("EEUTIL_TOKEN"), "bearer token required by the api (optional)")
	withBucket := flag.Bool("with-bucket", true, "open the staging bucket (required by /upload)")
	flag.Parse()

	if *appPort == "" {
		return nil, fmt.Errorf("failed to initialize port application flag")
	}
	return &serverConfig{
		AppPort:    *appPort,
		EnvFile:    *envFile,
		Token:      *token,
		WithBucket: *withBucket,
	}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	serverCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	var envFiles []string
	if serverCfg.EnvFile != "" {
		envFiles = append(envFiles, serverCfg.EnvFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	wf, closeFn, err := workflow.Open(ctx, cfg, serverCfg.WithBucket)
	if err != nil {
		return fmt.Errorf("workflow.Open: %w", err)
	}
	defer closeFn()

	bearerAuths = map[string]string{"default": serverCfg.Token}

	router := wf.NewHandler()
	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + serverCfg.AppPort,
		Handler: handlers.CORS(originsOk, headersOk, methodsOk)(BearerAuthenticate(router)),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Logger(ctx).Error(err.Error())
		}
	}()

	home, _ := wf.Home(ctx)
	log.Logger(ctx).Sugar().Infof("workflow listening on :%s (home: %s)", serverCfg.AppPort, home)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}
