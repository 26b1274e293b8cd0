package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/photo-search/internal/apiclient"
	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path> [path...]",
	Short: "Upload photos through the API",
	Long: `Upload photos to the photo bucket using presigned upload URLs.

Each path is a file or a folder; folders are searched non-recursively unless
-r is given. Only jpeg and png files are uploaded.

With --type register the photos become searchable and their faces are
registered by the worker. --name assigns a name to every uploaded photo.

Example:
  photo-search upload --type register --name "Tomas Novak" /path/to/photos
  photo-search upload --type search face.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().String("type", constants.UploadTypeRegister, "Upload type: register or search")
	uploadCmd.Flags().String("name", "", "Name registered for every uploaded photo")
	uploadCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
	uploadCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Parallel uploads")
	uploadCmd.Flags().String("endpoint", "", "API endpoint (overrides API_ENDPOINT)")
}

// imageContentTypes maps the supported extensions to their upload content type
var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	_, ok := imageContentTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// collectImages expands folders into their image files.
func collectImages(paths []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			if !isImageFile(p) {
				return nil, fmt.Errorf("%s is not a jpeg or png file", p)
			}
			filePaths = append(filePaths, p)
			continue
		}

		if recursive {
			err := filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", p, err)
			}
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", p, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImageFile(entry.Name()) {
				filePaths = append(filePaths, filepath.Join(p, entry.Name()))
			}
		}
	}
	return filePaths, nil
}

// requestUploadURLs asks for one URL per file, in batches the API accepts.
func requestUploadURLs(ctx context.Context, client *apiclient.Client, uploadType string, n, batch int) ([]apiclient.UploadURL, error) {
	urls := make([]apiclient.UploadURL, 0, n)
	for len(urls) < n {
		got, err := client.UploadURLs(ctx, uploadType, min(batch, n-len(urls)))
		if err != nil {
			return nil, fmt.Errorf("failed to get upload URLs: %w", err)
		}
		if len(got) == 0 {
			return nil, fmt.Errorf("failed to get upload URLs: empty response")
		}
		urls = append(urls, got...)
	}
	return urls[:n], nil
}

func newProgressBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func apiClient(cmd *cobra.Command, cfg *config.Config) (*apiclient.Client, error) {
	endpoint := mustGetString(cmd, "endpoint")
	if endpoint == "" {
		endpoint = cfg.Web.PublicAPIEndpoint
	}
	return apiclient.New(endpoint)
}

func runUpload(cmd *cobra.Command, args []string) error {
	uploadType := mustGetString(cmd, "type")
	name := strings.TrimSpace(mustGetString(cmd, "name"))
	if uploadType != constants.UploadTypeRegister && uploadType != constants.UploadTypeSearch {
		return fmt.Errorf("invalid --type %q: expected register or search", uploadType)
	}
	if name != "" && uploadType != constants.UploadTypeRegister {
		return fmt.Errorf("--name requires --type register")
	}

	cfg := config.Load()
	client, err := apiClient(cmd, cfg)
	if err != nil {
		return err
	}

	filePaths, err := collectImages(args, mustGetBool(cmd, "recursive"))
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified paths.")
		return nil
	}
	fmt.Printf("Found %d image(s) to upload\n", len(filePaths))

	ctx := cmd.Context()
	urls, err := requestUploadURLs(ctx, client, uploadType, len(filePaths), cfg.Tunables.Search.MaxUploadURLs)
	if err != nil {
		return err
	}

	bar := newProgressBar(len(filePaths), "Uploading")
	var (
		mu           sync.Mutex
		uploaded     []string
		uploadErrors []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, mustGetInt(cmd, "concurrency")))
	for i, filePath := range filePaths {
		target := urls[i]
		g.Go(func() error {
			defer bar.Add(1)
			err := uploadFile(gctx, client, filePath, target.URL)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
				return nil
			}
			uploaded = append(uploaded, target.ID)
			return nil
		})
	}
	_ = g.Wait()
	fmt.Println()

	for _, errMsg := range uploadErrors {
		fmt.Printf("Failed: %s\n", errMsg)
	}
	if len(uploaded) == 0 {
		return fmt.Errorf("no files were uploaded successfully")
	}

	if name != "" {
		if err := client.RegisterName(ctx, name, uploaded); err != nil {
			return fmt.Errorf("failed to register name: %w", err)
		}
		fmt.Printf("Registered name %q for %d photo(s)\n", name, len(uploaded))
	}

	fmt.Printf("\nDone! Uploaded %d file(s)\n", len(uploaded))
	for _, id := range uploaded {
		fmt.Println(id)
	}
	return nil
}

func uploadFile(ctx context.Context, client *apiclient.Client, filePath, url string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if info.Size() > constants.MaxUploadSize {
		return fmt.Errorf("file is larger than %d MB", constants.MaxUploadSize>>20)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return client.Upload(ctx, url, data, imageContentTypes[strings.ToLower(filepath.Ext(filePath))])
}
