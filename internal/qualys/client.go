// Package qualys talks to the Qualys CloudView IaC scan API: it uploads
// template archives, polls scan status, and fetches results in JSON and
// SARIF form.
package qualys

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

const (
	scanPath   = "/cloudview-api/rest/v1/iac/scan"
	resultPath = "/cloudview-api/rest/v1/iac/scanResult"
)

// ErrNoScanUUID means the scan was accepted but the response carried no
// scan identifier, so there is nothing to poll.
var ErrNoScanUUID = errors.New("scan response did not contain a scanUuid")

// Client is an authenticated API client. Credentials and trust
// configuration live on the client value; there is no shared session state.
type Client struct {
	baseURL  string
	username string
	password string
	hc       *http.Client
}

// NewClient builds a client for the given endpoint. caBundle, when
// non-empty, must point to a readable PEM file whose certificates replace
// the platform trust store for this client's connections.
func NewClient(baseURL, username, password, caBundle string) (*Client, error) {
	hc := &http.Client{Timeout: 5 * time.Minute}
	if caBundle != "" {
		pem, err := os.ReadFile(caBundle)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no usable PEM certificates", caBundle)
		}
		hc.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
		log.Printf("using custom CA bundle %s", caBundle)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		hc:       hc,
	}, nil
}

// StartScan uploads the archive under the given scan name and returns the
// scanUuid assigned by the service.
func (c *Client) StartScan(ctx context.Context, archivePath, scanName string) (string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(archivePath)))
	hdr.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	src, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()
	if _, err := io.Copy(part, src); err != nil {
		return "", fmt.Errorf("read archive: %w", err)
	}
	if err := mw.WriteField("name", scanName); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scanPath, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("initiate scan %q: %w", scanName, err)
	}

	var resp struct {
		ScanUUID string `json:"scanUuid"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode scan response: %w", err)
	}
	if resp.ScanUUID == "" {
		return "", ErrNoScanUUID
	}
	log.Printf("scan %s: initiated as %q", resp.ScanUUID, scanName)
	return resp.ScanUUID, nil
}

// FetchStatus retrieves the current scan result payload. The returned
// ScanResult keeps the raw body so callers can persist it verbatim.
func (c *Client) FetchStatus(ctx context.Context, scanUUID string) (*model.ScanResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resultURL(scanUUID), nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result for scan %s: %w", scanUUID, err)
	}
	var sr model.ScanResult
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("decode result for scan %s: %w", scanUUID, err)
	}
	sr.Raw = raw
	return &sr, nil
}

// FetchSarif retrieves the SARIF rendering of the scan result as raw text.
func (c *Client) FetchSarif(ctx context.Context, scanUUID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resultURL(scanUUID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("responseFormat", "sarif")
	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sarif for scan %s: %w", scanUUID, err)
	}
	return raw, nil
}

func (c *Client) resultURL(scanUUID string) string {
	return c.baseURL + resultPath + "?scanUuid=" + url.QueryEscape(scanUUID)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.SetBasicAuth(c.username, c.password)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: unexpected status %s", req.Method, req.URL.Path, res.Status)
	}
	return raw, nil
}
