package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
)

// BookService defines the document list and its guarded delete.
type BookService interface {
	// List fetches the documents and keeps them as the held list.
	List(ctx context.Context) ([]model.Book, error)
	// Delete removes a completed document from the server and the held list.
	Delete(ctx context.Context, book model.Book) error
	// Held returns the last fetched list, minus deletions.
	Held() []model.Book
}

type BookServiceImpl struct {
	api BookAPI
	log *zap.Logger

	mu    sync.Mutex
	books []model.Book
}

// NewBookService constructs BookService.
func NewBookService(a BookAPI, log *zap.Logger) *BookServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookServiceImpl{api: a, log: log}
}

func (s *BookServiceImpl) List(ctx context.Context) ([]model.Book, error) {
	books, err := s.api.Books(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.books = books
	s.mu.Unlock()
	return s.Held(), nil
}

func (s *BookServiceImpl) Held() []model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Book, len(s.books))
	copy(out, s.books)
	return out
}

// Delete refuses documents that are still processing without contacting the
// server. On failure the held list is left as it was.
func (s *BookServiceImpl) Delete(ctx context.Context, book model.Book) error {
	if !book.Deletable() {
		return fmt.Errorf("%w: %q is still %s", errs.ErrNotDeletable, book.Title, book.Status)
	}
	if err := s.api.DeleteBook(ctx, book.ID); err != nil {
		s.log.Warn("delete book", zap.String("book_id", book.ID), zap.Error(err))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.books[:0:0]
	for _, b := range s.books {
		if b.ID != book.ID {
			kept = append(kept, b)
		}
	}
	s.books = kept
	return nil
}
