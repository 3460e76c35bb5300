package mediaupload

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
	"strings"
	"time"
)

const cloudinaryAPIRoot = "https://api.cloudinary.com/v1_1"

// CloudinaryConfig configures unsigned uploads to a fixed cloud account.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	Folder       string
	// APIRoot overrides the API base URL (tests).
	APIRoot string
}

// CloudinaryUploader sends images to Cloudinary using an unsigned upload
// preset, the same account the browser widget uses.
type CloudinaryUploader struct {
	cfg    CloudinaryConfig
	client *http.Client
}

// NewCloudinaryUploader validates cfg and returns an uploader.
func NewCloudinaryUploader(cfg CloudinaryConfig) (*CloudinaryUploader, error) {
	if strings.TrimSpace(cfg.CloudName) == "" || strings.TrimSpace(cfg.UploadPreset) == "" {
		return nil, errors.New("cloudinary cloud name and upload preset are required")
	}
	if cfg.APIRoot == "" {
		cfg.APIRoot = cloudinaryAPIRoot
	}
	return &CloudinaryUploader{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload implements ImageUploader.
func (c *CloudinaryUploader) Upload(ctx context.Context, up *Upload) (Result, error) {
	if up.Empty() {
		return Cancelled, nil
	}
	if up.Size > DefaultMaxSize {
		return Cancelled, ErrTooLarge
	}

	body, contentType, err := sniffImage(up)
	if err != nil {
		return Cancelled, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("upload_preset", c.cfg.UploadPreset)
	if c.cfg.Folder != "" {
		_ = writer.WriteField("folder", c.cfg.Folder)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="image%s"`, imageTypes[contentType]))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return Cancelled, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return Cancelled, err
	}
	if err := writer.Close(); err != nil {
		return Cancelled, err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.cfg.APIRoot, "/"), c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return Cancelled, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Cancelled, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var parsed cloudinaryResponse
	_ = json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return Cancelled, fmt.Errorf("cloudinary upload failed (%s): %s", resp.Status, msg)
	}
	if parsed.SecureURL == "" {
		return Cancelled, errors.New("cloudinary upload returned no url")
	}
	return Result{Uploaded: true, URL: parsed.SecureURL}, nil
}
