package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/netx"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL. A positive timeout bounds
// every request.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type UploadResult struct {
	Filename string `json:"filename"`
	FileHash string `json:"file_hash"`
}

type Download struct {
	Filename string
	FileHash string
	Data     []byte
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, classify(netx.ReadError(resp))
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Nonce requests a fresh challenge for address.
func (c *Client) Nonce(ctx context.Context, address string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/nonce/"+url.PathEscape(address), nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Nonce string `json:"nonce"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Nonce, nil
}

// Verify answers the challenge and returns a session token.
func (c *Client) Verify(ctx context.Context, address, signature string) (string, error) {
	body, err := json.Marshal(map[string]string{"address": address, "signature": signature})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if !out.Success || out.Token == "" {
		return "", common.ErrAuthFailure
	}
	return out.Token, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return c.doJSON(req, nil)
}

// Upload streams r as the multipart "file" part named filename.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filename))
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/", pr)
	if err != nil {
		_ = pr.Close()
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.doJSON(req, &out); err != nil {
		_ = pr.Close()
		return UploadResult{}, err
	}
	return out, nil
}

// Files returns the ledger's file list as seen by the server.
func (c *Client) Files(ctx context.Context) ([]ledger.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Files []ledger.Record `json:"files"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

func (c *Client) Total(ctx context.Context) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/total", nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Total uint64 `json:"total"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// Download fetches the bytes of record index, presenting address in the
// wallet header and token as a bearer credential when set.
func (c *Client) Download(ctx context.Context, index uint64, address, token string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download/"+strconv.FormatUint(index, 10), nil)
	if err != nil {
		return nil, err
	}
	if address != "" {
		req.Header.Set(common.WalletHeaderName, address)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	d := &Download{FileHash: resp.Header.Get(common.FileHashHeaderName), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.Filename = params["filename"]
	}
	return d, nil
}
