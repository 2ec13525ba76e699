package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
)

const (
	mimePDF = "application/pdf"
	// sniffLen covers every signature mimetype checks for PDF.
	sniffLen = 3072
)

// ErrNotPDF rejects an upload before any request is made.
var ErrNotPDF = fmt.Errorf("%w: please select a valid PDF file", errs.ErrValidation)

// UploadService defines document upload.
type UploadService interface {
	// Upload sends the PDF at path and returns its PENDING ingestion task.
	Upload(ctx context.Context, path string) (model.UploadTask, error)
	// UploadReader sends a PDF read from r under the given file name.
	UploadReader(ctx context.Context, name string, r io.Reader) (model.UploadTask, error)
}

type UploadServiceImpl struct {
	api UploadAPI
	log *zap.Logger
}

// NewUploadService constructs UploadService.
func NewUploadService(a UploadAPI, log *zap.Logger) *UploadServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadServiceImpl{api: a, log: log}
}

func (s *UploadServiceImpl) Upload(ctx context.Context, path string) (model.UploadTask, error) {
	if path == "" {
		return model.UploadTask{}, fmt.Errorf("%w: please select a file first", errs.ErrValidation)
	}
	f, err := os.Open(path)
	if err != nil {
		return model.UploadTask{}, err
	}
	defer f.Close()
	return s.UploadReader(ctx, filepath.Base(path), f)
}

// UploadReader sniffs the content type from the first bytes. Content that
// cannot be identified is accepted only under a .pdf name.
func (s *UploadServiceImpl) UploadReader(ctx context.Context, name string, r io.Reader) (model.UploadTask, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return model.UploadTask{}, err
	}
	head = head[:n]
	if !isPDF(name, head) {
		return model.UploadTask{}, ErrNotPDF
	}

	task, err := s.api.Upload(ctx, name, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return model.UploadTask{}, err
	}
	s.log.Debug("uploaded", zap.String("task_id", task.TaskID), zap.String("filename", task.Filename))
	return task, nil
}

func isPDF(name string, head []byte) bool {
	if len(head) == 0 {
		return false
	}
	m := mimetype.Detect(head)
	if m.Is(mimePDF) {
		return true
	}
	return m.Is("application/octet-stream") && strings.EqualFold(filepath.Ext(name), ".pdf")
}
