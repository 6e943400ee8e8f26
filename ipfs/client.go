// Package ipfs implements the content-addressable store client over the IPFS
// HTTP API (Kubo RPC): add for upload, cat for retrieval. Content addressing
// gives write-once semantics — re-uploading different bytes yields a
// different address, and duplicate uploads of identical bytes are idempotent.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DogStark/petchain-anchor/errors"
	"github.com/DogStark/petchain-anchor/internal/httpclient"
)

// addResponse is the response from the IPFS add endpoint.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Client talks to one IPFS HTTP API endpoint.
type Client struct {
	apiURL string
	http   *httpclient.Client
	log    *zap.SugaredLogger
}

// NewClient creates an IPFS client for the given API base URL
// (e.g. http://localhost:5001). Private-IP blocking is disabled: the store
// endpoint is routinely an in-cluster daemon.
func NewClient(apiURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	block := false
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		http:   httpclient.New(timeout, httpclient.Options{BlockPrivateIP: &block}),
		log:    log,
	}
}

// Upload stores content and returns its content address (CID).
func (c *Client) Upload(ctx context.Context, content []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "blob")
	if err != nil {
		return "", errors.Wrap(err, "failed to create multipart file field")
	}
	if _, err := part.Write(content); err != nil {
		return "", errors.Wrap(err, "failed to write content to multipart form")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add?cid-version=1", body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create add request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrap(errors.ErrStoreUnavailable,
			errors.Newf("add returned status %d: %s", resp.StatusCode, string(respBody)).Error())
	}

	var addResp addResponse
	if err := json.Unmarshal(respBody, &addResp); err != nil {
		return "", errors.Wrapf(err, "failed to parse add response: %s", string(respBody))
	}
	if addResp.Hash == "" {
		return "", errors.Newf("add response missing hash: %s", string(respBody))
	}

	if c.log != nil {
		c.log.Debugw("Uploaded blob to content store",
			"cid", addResp.Hash,
			"bytes", len(content),
		)
	}

	return addResp.Hash, nil
}

// Retrieve returns exactly the bytes previously stored at address.
// The cat endpoint streams chunks; they are concatenated here.
func (c *Client) Retrieve(ctx context.Context, address string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/cat?arg="+address, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cat request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		if strings.Contains(string(respBody), "not found") {
			return nil, errors.Wrapf(errors.ErrNotFound, "no content at %s", address)
		}
		return nil, errors.Wrap(errors.ErrStoreUnavailable,
			errors.Newf("cat returned status %d: %s", resp.StatusCode, string(respBody)).Error())
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}

	return content, nil
}
