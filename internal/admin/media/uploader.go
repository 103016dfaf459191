package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// Uploader turns file bytes into a hosted URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, name, contentType string, body io.Reader) (string, error)

// Upload implements Uploader.
func (f UploaderFunc) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	return f(ctx, name, contentType, body)
}

// GCSUploader writes images into a Cloud Storage bucket.
type GCSUploader struct {
	client    *gcs.Client
	bucket    string
	prefix    string
	publicURL string
}

// NewGCSUploader constructs an uploader writing to bucket under prefix. publicURL is the base
// used to build returned URLs (defaults to https://storage.googleapis.com/<bucket>).
func NewGCSUploader(client *gcs.Client, bucket, prefix, publicURL string) (*GCSUploader, error) {
	if client == nil {
		return nil, errors.New("media: storage client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("media: bucket is required")
	}
	publicURL = strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSUploader{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(strings.TrimSpace(prefix), "/"),
		publicURL: publicURL,
	}, nil
}

// Upload streams body into a new object and returns its public URL.
func (u *GCSUploader) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	object := ObjectName(u.prefix, name)
	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("media: write gs://%s/%s: %w", u.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("media: finalize gs://%s/%s: %w", u.bucket, object, err)
	}
	return u.publicURL + "/" + object, nil
}

// HTTPClient matches the subset of http.Client used by HTTPUploader.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPUploader posts images as multipart forms to an asset host that answers with a JSON body
// carrying secure_url or url.
type HTTPUploader struct {
	endpoint string
	preset   string
	client   HTTPClient
}

// NewHTTPUploader constructs an uploader posting to endpoint. preset is sent as upload_preset
// when set.
func NewHTTPUploader(endpoint, preset string, client HTTPClient) (*HTTPUploader, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("media: upload endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{endpoint: endpoint, preset: strings.TrimSpace(preset), client: client}, nil
}

// Upload sends body as the "file" part.
func (u *HTTPUploader) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(name)))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("media: build upload: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("media: build upload: %w", err)
	}
	if u.preset != "" {
		if err := mw.WriteField("upload_preset", u.preset); err != nil {
			return "", fmt.Errorf("media: build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("media: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("media: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return "", fmt.Errorf("media: upload %s: asset host returned %d: %s", name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("media: decode upload response: %w", err)
	}
	if url := strings.TrimSpace(payload.SecureURL); url != "" {
		return url, nil
	}
	if url := strings.TrimSpace(payload.URL); url != "" {
		return url, nil
	}
	return "", errors.New("media: upload response carried no url")
}

// UploadAll uploads every pending file concurrently, returning URLs in the files' order.
// The first failure cancels the remaining uploads.
func UploadAll(ctx context.Context, uploader Uploader, staging StagingStore, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if uploader == nil {
		return nil, errors.New("media: uploader is required")
	}
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxImages)
	for i, f := range files {
		g.Go(func() error {
			data, err := staging.Get(gctx, f.StagingID)
			if err != nil {
				return fmt.Errorf("media: load staged %s: %w", f.Name, err)
			}
			url, err := uploader.Upload(gctx, f.Name, f.ContentType, bytes.NewReader(data))
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// ObjectName builds a collision-free object key that keeps the original extension.
func ObjectName(prefix, name string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(name, "\\", "/"))))
	if len(ext) > 8 {
		ext = ""
	}
	key := strings.ToLower(ulid.Make().String()) + ext
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
