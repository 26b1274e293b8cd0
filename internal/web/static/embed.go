package static

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed all:dist/*
var distFS embed.FS

// SettingsFile is the runtime configuration script loaded by the frontend.
const SettingsFile = "settings.js"

// FS returns the embedded dist directory.
func FS() fs.FS {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return fsys
}

// GetFileSystem returns an http.FileSystem for the embedded dist directory.
func GetFileSystem() http.FileSystem {
	return http.FS(FS())
}

// HasDist returns true if the dist directory exists and has content.
func HasDist() bool {
	entries, err := fs.ReadDir(distFS, "dist")
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Settings are the backend coordinates the browser bundle discovers at runtime.
type Settings struct {
	Region         string `json:"AWS_REGION"`
	APIID          string `json:"APP_API_ID"`
	IdentityPoolID string `json:"IDENTITY_POOL_ID"`
}

// SettingsJS renders settings as a window.env assignment.
func SettingsJS(s Settings) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("window.env = ")
	buf.Write(data)
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}
