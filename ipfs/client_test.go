package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DogStark/petchain-anchor/errors"
)

// fakeStore is an in-memory stand-in for the IPFS HTTP API.
type fakeStore struct {
	blobs map[string][]byte
	adds  int
	cats  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}}
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		f.adds++
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(file)
		cid := fmt.Sprintf("bafytest%d", len(f.blobs))
		f.blobs[cid] = content
		json.NewEncoder(w).Encode(map[string]string{"Name": "blob", "Hash": cid, "Size": fmt.Sprint(len(content))})
	})
	mux.HandleFunc("/api/v0/cat", func(w http.ResponseWriter, r *http.Request) {
		f.cats++
		cid := r.URL.Query().Get("arg")
		content, ok := f.blobs[cid]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"Message": "block not found", "Code": 0})
			return
		}
		w.Write(content)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeStore) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func TestUploadRetrieveRoundTrip(t *testing.T) {
	fake := newFakeStore()
	client := newTestClient(t, fake)
	ctx := context.Background()

	content := []byte("encrypted medical record bytes")
	cid, err := client.Upload(ctx, content)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if cid == "" {
		t.Fatal("Upload returned empty address")
	}

	got, err := client.Retrieve(ctx, cid)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("Retrieved bytes differ from uploaded bytes")
	}
}

func TestRetrieveNotFound(t *testing.T) {
	client := newTestClient(t, newFakeStore())

	_, err := client.Retrieve(context.Background(), "bafymissing")
	if !errors.IsNotFoundError(err) {
		t.Errorf("Expected ErrNotFound for missing CID, got %v", err)
	}
}

func TestUploadStoreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "daemon shutting down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	_, err := client.Upload(context.Background(), []byte("x"))
	if !errors.IsStoreUnavailableError(err) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestUploadConnectionRefused(t *testing.T) {
	// Port from a server that is already closed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, 2*time.Second, nil)
	_, err := client.Upload(context.Background(), []byte("x"))
	if !errors.IsStoreUnavailableError(err) {
		t.Errorf("Expected ErrStoreUnavailable for refused connection, got %v", err)
	}
}
