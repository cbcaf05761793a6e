// cmd/rewards/main.go - standalone airtime reward disbursement worker
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"abiahub/internal/config"
	"abiahub/internal/database"
	"abiahub/internal/services"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		batchSize = flag.Int("batch-size", 0, "rewards per batch (0 = use REWARD_BATCH_SIZE)")
		delay     = flag.Duration("delay", 0, "pause between batches (0 = use REWARD_BATCH_DELAY)")
		once      = flag.Bool("once", false, "process a single batch and exit")
	)
	flag.Parse()

	cfg := config.Load()

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if *batchSize <= 0 {
		*batchSize = cfg.RewardBatchSize
	}
	if *delay <= 0 {
		*delay = time.Duration(cfg.RewardBatchDelaySec) * time.Second
	}

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("error disconnecting from MongoDB")
		}
	}()

	notificationService := services.NewNotificationService(db.Database, cfg)
	auditService := services.NewAuditService(db.Database)
	atService := services.NewAfricasTalkingService(cfg, db.Database)
	rewardService := services.NewRewardService(db.Database, cfg, notificationService, atService, auditService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		processed, err := rewardService.ProcessBatch(ctx, *batchSize)
		if err != nil {
			logrus.WithError(err).Fatal("batch failed")
		}
		logrus.WithField("processed", processed).Info("batch complete")
		return
	}

	logrus.WithFields(logrus.Fields{
		"batch_size": *batchSize,
		"delay":      delay.String(),
	}).Info("reward worker starting")

	rewardService.Run(ctx, *batchSize, *delay)

	logrus.Info("reward worker stopped")
}
