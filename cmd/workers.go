package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	bancocred "github.com/webedmilson/bancoCred"
	"github.com/webedmilson/bancoCred/config"
	redis_db "github.com/webedmilson/bancoCred/internal/redis-db"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func redisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	opt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: conf.Worker.Concurrency,
		Queues:      map[string]int{bancocred.WEBHOOK_QUEUE: 1},
		Logger:      logrus.StandardLogger(),
	}), nil
}

func initializeTaskHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(bancocred.WEBHOOK_QUEUE, bancocred.ProcessWebhook)
}

// workerCommands starts the webhook delivery worker and the asynqmon
// dashboard.
func workerCommands(app *appInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start bancocred workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := app.cnf

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(mux)

			opt, _ := redisConnOpt(conf)
			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: opt,
			})
			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Worker.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
