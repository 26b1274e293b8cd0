package cmd

import (
	"context"
	"errors"
	"path"

	"github.com/kozaktomas/photo-search/internal/cloud"
	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/kozaktomas/photo-search/internal/provision"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/kozaktomas/photo-search/internal/web/static"
	"github.com/spf13/cobra"
)

// bundleFile is the frontend archive name under DEPLOYMENT_KEY.
const bundleFile = "ui.zip"

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Set up deployment resources",
	Long: `Idempotent setup run on every deployment.
Each subcommand takes the lifecycle event as --request-type; delete keeps
all resources in place.`,
}

var provisionBackendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Create the record schema and the face collection",
	RunE:  runProvisionBackend,
}

var provisionFrontendCmd = &cobra.Command{
	Use:   "frontend",
	Short: "Upload the frontend assets and runtime settings",
	Long: `Upload the frontend to FRONTEND_BUCKET_NAME and write settings.js.

Assets are taken from DEPLOYMENT_BUCKET at DEPLOYMENT_KEY/ui.zip when both are
set, otherwise from the assets embedded in this binary.`,
	RunE: runProvisionFrontend,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.AddCommand(provisionBackendCmd)
	provisionCmd.AddCommand(provisionFrontendCmd)

	provisionCmd.PersistentFlags().String("request-type", "create", "Lifecycle event: create, update or delete")
}

func requestType(cmd *cobra.Command) (provision.RequestType, error) {
	raw, err := cmd.Flags().GetString("request-type")
	if err != nil {
		return "", err
	}
	return provision.ParseRequestType(raw)
}

func runProvisionBackend(cmd *cobra.Command, args []string) error {
	rt, err := requestType(cmd)
	if err != nil {
		return err
	}
	cfg := config.Load()
	logger := newLogger(cfg, "provision")
	ctx := logger.WithContext(context.Background())

	if rt == provision.RequestDelete {
		return provision.NewBackend(nil, nil).Run(ctx, rt)
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return provision.NewBackend(b.photos, b.recognizer).Run(ctx, rt)
}

func runProvisionFrontend(cmd *cobra.Command, args []string) error {
	rt, err := requestType(cmd)
	if err != nil {
		return err
	}
	cfg := config.Load()
	logger := newLogger(cfg, "provision")
	ctx := logger.WithContext(context.Background())

	if cfg.Frontend.Bucket == "" && rt != provision.RequestDelete {
		return errors.New("FRONTEND_BUCKET_NAME environment variable is required")
	}

	awsCfg, err := cloud.LoadConfig(ctx, &cfg.AWS)
	if err != nil {
		return err
	}
	blobs := storage.NewS3Store(cloud.NewS3Client(awsCfg, cfg), cfg.Frontend.Bucket)

	var bundle storage.Location
	if cfg.Frontend.DeploymentBucket != "" && cfg.Frontend.DeploymentKey != "" {
		bundle = storage.Location{
			Bucket: cfg.Frontend.DeploymentBucket,
			Key:    path.Join(cfg.Frontend.DeploymentKey, bundleFile),
		}
	}

	settings := static.Settings{
		Region:         cfg.AWS.Region,
		APIID:          cfg.Frontend.APIID,
		IdentityPoolID: cfg.Frontend.IdentityPoolID,
	}
	return provision.NewFrontend(blobs, cfg.Frontend.Bucket, settings, bundle).Run(ctx, rt)
}
