package anthropic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/petal-labs/anthropic-go/core"
)

// filesPath is the API endpoint for files.
const filesPath = "/v1/files"

// File represents an uploaded file.
type File struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	CreatedAt    string `json:"created_at"`
	Downloadable bool   `json:"downloadable"`
}

// FileUploadParams contains parameters for uploading a file.
type FileUploadParams struct {
	File     io.Reader
	Filename string
	MimeType string
}

// DeletedFile contains the result of a file deletion.
type DeletedFile struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// FileService manages uploaded files. Every call carries the Files API
// beta. Use Client.Files.
type FileService struct {
	client *Client
}

func (s *FileService) opts(opts []core.RequestOption) []core.RequestOption {
	beta := s.client.config.FilesAPIBeta
	if beta == "" {
		beta = DefaultFilesAPIBeta
	}
	return append([]core.RequestOption{core.WithBetas(beta)}, opts...)
}

func filePath(id string) string {
	return filesPath + "/" + url.PathEscape(id)
}

// Upload uploads a file. The content is buffered so the request can be
// retried.
func (s *FileService) Upload(ctx context.Context, params FileUploadParams, opts ...core.RequestOption) (*File, error) {
	if params.File == nil {
		return nil, errors.New("anthropic: upload has no file content")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, params.Filename))
	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, &core.SerializationError{Context: "encode file upload", Err: err}
	}
	if _, err := io.Copy(part, params.File); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, &core.SerializationError{Context: "encode file upload", Err: err}
	}

	contentType := core.WithRequestHeader("Content-Type", w.FormDataContentType())
	req, err := s.client.newRequest(http.MethodPost, filesPath, buf.Bytes(), append(s.opts(opts), contentType))
	if err != nil {
		return nil, err
	}
	var file File
	if err := s.client.exec.Do(ctx, req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Get retrieves metadata for a specific file.
func (s *FileService) Get(ctx context.Context, id string, opts ...core.RequestOption) (*File, error) {
	var file File
	if err := s.client.do(ctx, http.MethodGet, filePath(id), nil, &file, s.opts(opts)); err != nil {
		return nil, err
	}
	return &file, nil
}

// List returns a page of files.
func (s *FileService) List(ctx context.Context, params ListParams, opts ...core.RequestOption) (*Page[File], error) {
	var out Page[File]
	if err := s.client.do(ctx, http.MethodGet, filesPath+params.query(), nil, &out, s.opts(opts)); err != nil {
		return nil, err
	}
	return &out, nil
}

// All iterates over every file, handling pagination automatically.
func (s *FileService) All(ctx context.Context, params ListParams, opts ...core.RequestOption) iter.Seq2[File, error] {
	return paginate(params, func(p ListParams) (*Page[File], error) {
		return s.List(ctx, p, opts...)
	})
}

// Delete removes a file.
func (s *FileService) Delete(ctx context.Context, id string, opts ...core.RequestOption) (*DeletedFile, error) {
	var out DeletedFile
	if err := s.client.do(ctx, http.MethodDelete, filePath(id), nil, &out, s.opts(opts)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download opens the content of a downloadable file. The caller must close
// the returned reader.
func (s *FileService) Download(ctx context.Context, id string, opts ...core.RequestOption) (io.ReadCloser, error) {
	req, err := s.client.newRequest(http.MethodGet, filePath(id)+"/content", nil, s.opts(opts))
	if err != nil {
		return nil, err
	}
	req.Stream = true
	req.Header.Set("Accept", "application/binary")
	resp, err := s.client.exec.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
