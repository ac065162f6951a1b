package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// Publisher announces ledger changes to the mirror worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

// RecordInput is a transaction as entered by a user, before validation.
type RecordInput struct {
	Amount      string `json:"amount" validate:"required"`
	Category    string `json:"category" validate:"required,category"`
	Description string `json:"description" validate:"max=100"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Kind        string `json:"kind"`
}

// TransactionService validates input and orchestrates writes across the store
// and the sync publisher.
type TransactionService struct {
	store     ledger.Store
	publisher Publisher
	validate  *validator.Validate
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*TransactionService)

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransactionService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// NewTransactionService wires the service. publisher may be nil when AMQP is
// not configured.
func NewTransactionService(store ledger.Store, publisher Publisher, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:     store,
		publisher: publisher,
		validate:  newValidator(),
		now:       time.Now,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse validates the input and builds the transaction it describes.
func (s *TransactionService) Parse(in RecordInput) (core.Transaction, error) {
	const op = "record transaction"

	in.Amount = strings.TrimSpace(in.Amount)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)

	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return core.Transaction{}, fmt.Errorf("validate input: %w", err)
		}
		fields = fieldMessages(err)
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil && fields["amount"] == "" {
		fields["amount"] = "must be a number greater than zero"
	}

	kind, err := core.ParseKind(in.Kind)
	if err != nil {
		fields["kind"] = "must be income or expense"
	}

	today := core.DateOf(s.now())
	date := today
	if in.Date != "" && fields["date"] == "" {
		date, err = core.ParseDate(in.Date)
		if err != nil {
			fields["date"] = "must be a date in YYYY-MM-DD format"
		} else if date.After(today.Time) {
			fields["date"] = "cannot be in the future"
		}
	}

	if len(fields) > 0 {
		return core.Transaction{}, apperrors.Validation(op, fields)
	}

	return core.Transaction{
		Date:        date,
		Category:    in.Category,
		Description: in.Description,
		Amount:      amount,
		Kind:        kind,
	}, nil
}

// Record validates, persists and announces a new transaction.
func (s *TransactionService) Record(ctx context.Context, in RecordInput) (core.Transaction, error) {
	t, err := s.Parse(in)
	if err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.Create(ctx, t)
	if err != nil {
		return core.Transaction{}, apperrors.Store("record transaction", err)
	}
	t.ID = id

	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(t.ID, t.Amount.Cents, t.Category, t.Kind.String()).
			ToSlice()...)

	// New rows start at version 1. The row is saved, so a publish failure
	// leaves it pending for the worker's reconcile pass.
	if err := s.publishSync(ctx, id, 1); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldTransactionID, id,
			log.FieldError, err)
	}
	return t, nil
}

// Delete removes a transaction and announces the removal.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	const op = "delete transaction"
	if id <= 0 {
		return apperrors.InvalidArgument(op, "id must be positive, got %d", id)
	}

	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return apperrors.Store(op, err)
	}
	if !removed {
		return apperrors.NotFound(op, "transaction %d", id)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)

	if err := s.publishDelete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish delete message",
			log.FieldTransactionID, id,
			log.FieldError, err)
	}
	return nil
}

// Get returns one transaction or an apperrors.ErrNotFound error.
func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return core.Transaction{}, err
	}
	if err != nil {
		return core.Transaction{}, apperrors.Store("get transaction", err)
	}
	return t, nil
}

func (s *TransactionService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, apperrors.Store("list categories", err)
	}
	return cats, nil
}

func (s *TransactionService) publishSync(ctx context.Context, id, version int64) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping sync message")
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, id, version)
}

func (s *TransactionService) publishDelete(ctx context.Context, id int64) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping delete message")
		return nil
	}
	return s.publisher.PublishTransactionDelete(ctx, id)
}
