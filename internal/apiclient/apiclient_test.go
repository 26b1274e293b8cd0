package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func setupMockServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /photos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "tom" || q.Get("page") != "1" || q.Get("per_page") != "2" {
			http.Error(w, "unexpected query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":"p1","name":"Tom","url":"https://s3/p1","tags":["a"]}],"page":1,"per_page":2,"page_count":3}`))
	})

	mux.HandleFunc("GET /photos/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Image not found"}`))
	})

	mux.HandleFunc("GET /photos/upload_urls", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "register" || r.URL.Query().Get("count") != "2" {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"results":[{"id":"a","url":"https://s3/a"},{"id":"b","url":"https://s3/b"}]}`))
	})

	mux.HandleFunc("GET /photos/p1/faces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"left":0.1,"top":0.2,"width":0.3,"height":0.4}]`))
	})

	mux.HandleFunc("GET /photos/p1/similars", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("location") != "0.3 0.4 0.1 0.2" {
			http.Error(w, "unexpected location "+r.URL.Query().Get("location"), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"results":[{"id":"p2","url":"u","tags":[]}],"page":1,"per_page":1}`))
	})

	mux.HandleFunc("PATCH /names", func(w http.ResponseWriter, r *http.Request) {
		var body registerName
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name != "Tom" || len(body.PhotoIDs) != 2 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PUT /photos/p1/tags", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `[]` {
			http.Error(w, "bad body "+string(body), http.StatusBadRequest)
			return
		}
		w.Write(body)
	})

	mux.HandleFunc("DELETE /photos/p1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PUT /upload/a", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "jpeg" || r.Header.Get("Content-Type") != "image/jpeg" {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(server.URL + "/")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return server, client
}

func TestSearchPhotos(t *testing.T) {
	_, client := setupMockServer(t)

	list, err := client.SearchPhotos(context.Background(), "tom", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.PageCount != 3 || len(list.Results) != 1 || list.Results[0].Name != "Tom" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestGetPhoto_NotFound(t *testing.T) {
	_, client := setupMockServer(t)

	_, err := client.GetPhoto(context.Background(), "missing")
	if !IsNotFoundError(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if err.Error() != "request failed with status 404: Image not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestUploadURLs(t *testing.T) {
	_, client := setupMockServer(t)

	urls, err := client.UploadURLs(context.Background(), "register", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 2 || urls[0].ID != "a" || urls[1].URL != "https://s3/b" {
		t.Errorf("unexpected urls %+v", urls)
	}
}

func TestUploadURLs_BadRequest(t *testing.T) {
	_, client := setupMockServer(t)

	_, err := client.UploadURLs(context.Background(), "other", 2)
	if err == nil || IsNotFoundError(err) {
		t.Fatalf("expected bad request error, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	server, client := setupMockServer(t)

	if err := client.Upload(context.Background(), server.URL+"/upload/a", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.Upload(context.Background(), server.URL+"/upload/a", []byte("png"), "image/png"); err == nil {
		t.Error("expected upload error")
	}
}

func TestFacesAndSimilars(t *testing.T) {
	_, client := setupMockServer(t)

	faces, err := client.DetectFaces(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}

	list, err := client.Similars(context.Background(), "p1", faces[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Results) != 1 || list.Results[0].ID != "p2" {
		t.Errorf("unexpected similars %+v", list)
	}
}

func TestWrites(t *testing.T) {
	_, client := setupMockServer(t)
	ctx := context.Background()

	if err := client.RegisterName(ctx, "Tom", []string{"a", "b"}); err != nil {
		t.Errorf("register name: %v", err)
	}
	if err := client.SetTags(ctx, "p1", nil); err != nil {
		t.Errorf("set tags: %v", err)
	}
	if err := client.DeletePhoto(ctx, "p1"); err != nil {
		t.Errorf("delete: %v", err)
	}
}

func TestNew_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://host", "://bad"} {
		if _, err := New(endpoint); err == nil {
			t.Errorf("expected error for %q", endpoint)
		}
	}
}
