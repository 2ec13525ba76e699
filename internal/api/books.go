package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/and161185/fastcite/internal/model"
)

// Books lists the caller's documents.
func (c *Client) Books(ctx context.Context) ([]model.Book, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var books []model.Book
	if err := c.doJSON(ctx, http.MethodGet, "/books/me", nil, &books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// Upload posts a PDF and returns the ingestion task it started, in PENDING state.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (model.UploadTask, error) {
	if err := c.requireToken(); err != nil {
		return model.UploadTask{}, err
	}
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return model.UploadTask{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return model.UploadTask{}, err
	}
	if err := w.Close(); err != nil {
		return model.UploadTask{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/pdf/upload", body, w.FormDataContentType())
	if err != nil {
		return model.UploadTask{}, err
	}
	var task model.UploadTask
	if err := c.do(req, &task); err != nil {
		return model.UploadTask{}, err
	}
	if task.Filename == "" {
		task.Filename = filename
	}
	task.Status = model.TaskPending
	return task, nil
}

// TaskStatus polls one ingestion task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (model.TaskStatus, error) {
	if err := c.requireToken(); err != nil {
		return "", err
	}
	var resp struct {
		Status model.TaskStatus `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/pdf/task/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// DeleteBook removes a document.
func (c *Client) DeleteBook(ctx context.Context, bookID string) error {
	if err := c.requireToken(); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, "/pdf/"+url.PathEscape(bookID), nil, nil)
}
