// Package apiclient is a client for the photo search HTTP API used by the
// CLI upload and search commands.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to one API endpoint
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a client for the API at endpoint
func New(endpoint string) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api endpoint %q: scheme must be http or https", endpoint)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// resolveURL joins the path to the base URL; a query string in the
// endpoint is kept as is.
func (c *Client) resolveURL(endpoint string) string {
	pathPart, query, _ := strings.Cut(endpoint, "?")
	u := c.baseURL.JoinPath(pathPart)
	u.RawQuery = query
	return u.String()
}

// SearchPhotos returns one page of photos matching query.
func (c *Client) SearchPhotos(ctx context.Context, query string, page, perPage int) (*PhotoList, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	params.Set("page", strconv.Itoa(page))
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}
	return doGetJSON[PhotoList](ctx, c, "photos?"+params.Encode())
}

// GetPhoto returns a single photo.
func (c *Client) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	return doGetJSON[Photo](ctx, c, "photos/"+url.PathEscape(id))
}

// UploadURLs issues count upload URLs for the given upload type.
func (c *Client) UploadURLs(ctx context.Context, uploadType string, count int) ([]UploadURL, error) {
	params := url.Values{}
	params.Set("type", uploadType)
	params.Set("count", strconv.Itoa(count))
	resp, err := doGetJSON[uploadURLs](ctx, c, "photos/upload_urls?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Upload PUTs the photo bytes to a presigned URL.
func (c *Client) Upload(ctx context.Context, presignedURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return newAPIError(resp)
	}
	return nil
}

// RegisterName sets name on every listed photo.
func (c *Client) RegisterName(ctx context.Context, name string, photoIDs []string) error {
	return doRequestRaw(ctx, c, http.MethodPatch, "names", registerName{Name: name, PhotoIDs: photoIDs},
		http.StatusOK, http.StatusNoContent)
}

// SetTags replaces the tags of a photo.
func (c *Client) SetTags(ctx context.Context, id string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return doRequestRaw(ctx, c, http.MethodPut, "photos/"+url.PathEscape(id)+"/tags", tags, http.StatusOK)
}

// DeletePhoto removes a photo.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	return doRequestRaw(ctx, c, http.MethodDelete, "photos/"+url.PathEscape(id), nil,
		http.StatusOK, http.StatusNoContent)
}

// DetectFaces returns the faces found in a photo.
func (c *Client) DetectFaces(ctx context.Context, id string) ([]Face, error) {
	faces, err := doGetJSON[[]Face](ctx, c, "photos/"+url.PathEscape(id)+"/faces")
	if err != nil {
		return nil, err
	}
	return *faces, nil
}

// Similars returns registered photos whose face matches the face at location
// in photo id. location is "width height left top" as fractions.
func (c *Client) Similars(ctx context.Context, id string, face Face) (*PhotoList, error) {
	location := strings.Join([]string{
		strconv.FormatFloat(face.Width, 'f', -1, 64),
		strconv.FormatFloat(face.Height, 'f', -1, 64),
		strconv.FormatFloat(face.Left, 'f', -1, 64),
		strconv.FormatFloat(face.Top, 'f', -1, 64),
	}, " ")
	params := url.Values{}
	params.Set("location", location)
	return doGetJSON[PhotoList](ctx, c, "photos/"+url.PathEscape(id)+"/similars?"+params.Encode())
}
