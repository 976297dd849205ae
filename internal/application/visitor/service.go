// Package visitor exposes the site visitor counter.
package visitor

import (
	"context"
	"fmt"

	"github.com/maisgenetica/backend/internal/domain/visitor"
)

// CountResponse is the visitor total returned to clients
type CountResponse struct {
	Total int64 `json:"total"`
}

// HitObserver is told about every recorded visit
type HitObserver interface {
	VisitorCounted(ctx context.Context)
}

// Service records and reports site visits
type Service struct {
	counter  visitor.Counter
	observer HitObserver
}

// NewService creates a new Service
func NewService(counter visitor.Counter) *Service {
	return &Service{counter: counter}
}

// SetObserver sets the observer told about each recorded visit
func (s *Service) SetObserver(observer HitObserver) {
	s.observer = observer
}

// Hit records one visit and returns the new total
func (s *Service) Hit(ctx context.Context) (*CountResponse, error) {
	total, err := s.counter.Increment(ctx)
	if err != nil {
		return nil, fmt.Errorf("increment visitor counter: %w", err)
	}
	if s.observer != nil {
		s.observer.VisitorCounted(ctx)
	}
	return &CountResponse{Total: total}, nil
}

// Count returns the current total
func (s *Service) Count(ctx context.Context) (*CountResponse, error) {
	total, err := s.counter.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("read visitor counter: %w", err)
	}
	return &CountResponse{Total: total}, nil
}
