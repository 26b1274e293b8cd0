package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/photo-search/internal/config"
	applog "github.com/kozaktomas/photo-search/internal/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-search",
	Short: "Find photos of people by name, tags or face",
	Long: `Photo Search stores photos in S3, keeps searchable metadata in PostgreSQL
and matches faces with Amazon Rekognition or a self-hosted InsightFace server.

Run "serve" for the HTTP API, "worker" to register faces of uploaded photos
and "provision" to set up the schema, the face collection and the frontend.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the process logger from the loaded config.
func newLogger(cfg *config.Config, component string) zerolog.Logger {
	return applog.New(cfg.App.Env, cfg.App.LogLevel).With().Str("component", component).Logger()
}
