package web

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-search/internal/web/handlers"
	"github.com/kozaktomas/photo-search/internal/web/middleware"
	"github.com/kozaktomas/photo-search/internal/web/static"
)

func (s *Server) setupRoutes() {
	tunables := s.config.Tunables
	photosHandler := handlers.NewPhotosHandler(s.deps.Photos, s.deps.Blobs, s.deps.Recognizer, tunables)
	facesHandler := handlers.NewFacesHandler(s.deps.Photos, s.deps.Blobs, s.deps.Recognizer, s.deps.Cropper, tunables)
	namesHandler := handlers.NewNamesHandler(s.deps.Photos)

	s.router.Get("/health", handlers.HealthCheck)

	s.router.Route("/photos", func(r chi.Router) {
		r.Get("/", photosHandler.List)
		r.Get("/upload_urls", photosHandler.UploadURLs)
		r.Get("/{id}", photosHandler.Get)
		r.Delete("/{id}", photosHandler.Delete)
		r.Get("/{id}/faces", facesHandler.Detect)
		r.Get("/{id}/similars", facesHandler.Similars)
		r.Put("/{id}/tags", photosHandler.SetTags)
	})
	s.router.Patch("/names", namesHandler.Register)

	// Frontend
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders())
		r.Get("/"+static.SettingsFile, s.serveSettings)
		r.Get("/*", s.serveSPA)
	})
}

// serveSettings renders the runtime configuration for a locally served frontend.
func (s *Server) serveSettings(w http.ResponseWriter, r *http.Request) {
	data, err := static.SettingsJS(static.Settings{
		Region:         s.config.AWS.Region,
		APIID:          s.config.Frontend.APIID,
		IdentityPoolID: s.config.Frontend.IdentityPoolID,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// serveSPA serves the single-page application
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if !static.HasDist() {
		http.NotFound(w, r)
		return
	}

	fsys := static.FS()
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	if serveFile(w, fsys, name) {
		return
	}

	// For SPA routing, serve index.html for non-asset paths
	if !strings.HasPrefix(name, "assets/") && serveFile(w, fsys, "index.html") {
		return
	}
	http.NotFound(w, r)
}

// serveFile copies a regular file from fsys with a content type from its extension.
func serveFile(w http.ResponseWriter, fsys fs.FS, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		return false
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	// Add cache headers for static assets
	if strings.HasPrefix(name, "assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
	return true
}
