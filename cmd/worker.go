package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/photo-search/internal/cloud"
	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/kozaktomas/photo-search/internal/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Register faces of uploaded photos",
	Long: `Long-poll the S3 event notification queue and index the face of every
photo uploaded through the register flow.

Failed messages are left on the queue and redelivered after the visibility
timeout; configure a dead-letter queue to bound retries.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Int("concurrency", 4, "Messages handled in parallel")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg, "worker")

	if cfg.Queue.URL == "" {
		return errors.New("SQS_QUEUE_URL environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	registrar := worker.NewRegistrar(b.photos, b.recognizer, cfg.Tunables.Faces.CropPrefix)
	consumer := worker.NewConsumer(cloud.NewSQSClient(b.awsCfg, cfg), cfg.Queue.URL, registrar,
		logger, mustGetInt(cmd, "concurrency"))

	err = consumer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("worker stopped")
		return nil
	}
	return err
}
