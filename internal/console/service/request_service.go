package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xela07ax/reqtrack/internal/domain"
	"github.com/xela07ax/reqtrack/internal/export"
	"github.com/xela07ax/reqtrack/internal/notify"
	"go.uber.org/zap"
)

// AllRequests — значение идентификатора, запрашивающее всю коллекцию.
const AllRequests = "all"

// RequestRepository описывает требования сервиса к документному хранилищу.
// FindByID возвращает (nil, nil), если документа нет.
type RequestRepository interface {
	Insert(ctx context.Context, req *domain.Request) (string, error)
	FindByID(ctx context.Context, id string) (*domain.Request, error)
	FindAll(ctx context.Context) ([]domain.Request, error)
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (int64, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
	Documents(ctx context.Context) ([]domain.Document, error)
}

// Notifier — best-effort доставка писем. Ошибок не возвращает.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

// EventPublisher — best-effort трансляция изменений заявок.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.RequestEvent)
}

// SubmitInput — поля формы создания заявки.
type SubmitInput struct {
	Description   string `form:"description" validate:"required"`
	Status        string `form:"status"` // Принимается, но игнорируется: новая заявка всегда Open
	AssignerEmail string `form:"assigner_email" validate:"required,email"`
	AssigneeEmail string `form:"assignee_email" validate:"required,email"`
}

type RequestService struct {
	repo     RequestRepository
	notifier Notifier
	events   EventPublisher
	validate *validator.Validate
	logger   *zap.Logger
}

func NewRequestService(repo RequestRepository, notifier Notifier, events EventPublisher, logger *zap.Logger) *RequestService {
	v := validator.New()
	// В сообщениях об ошибках используем имена полей формы
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &RequestService{
		repo:     repo,
		notifier: notifier,
		events:   events,
		validate: v,
		logger:   logger.Named("request-service"),
	}
}

// Submit сохраняет новую заявку и уведомляет исполнителя.
// Сбой письма не откатывает вставку: хранилище — источник истины.
func (s *RequestService) Submit(ctx context.Context, in SubmitInput) (*domain.Request, error) {
	const op = "submit"

	if err := s.validateInput(in); err != nil {
		return nil, domain.Validation(op, err)
	}

	req := domain.NewRequest(in.Description, in.AssignerEmail, in.AssigneeEmail)

	id, err := s.repo.Insert(ctx, req)
	if err != nil {
		s.logger.Error("failed to persist request", zap.Error(err))
		return nil, domain.Internal(op, err)
	}
	req.ID = id

	s.logger.Info("request submitted",
		zap.String("request_id", id),
		zap.String("assigned_to", req.AssignedTo))

	// Клиент может оборвать соединение, а письмо все равно должно уйти
	bg := context.WithoutCancel(ctx)
	s.notifier.Notify(bg, notify.AssignedMessage(*req))
	s.events.Publish(bg, domain.RequestEvent{
		Type:       domain.EventCreated,
		RequestID:  id,
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
	})

	return req, nil
}

// Get возвращает всю коллекцию для "all" либо ровно одну заявку.
func (s *RequestService) Get(ctx context.Context, id string) ([]domain.Request, error) {
	const op = "get"

	if id == AllRequests {
		list, err := s.repo.FindAll(ctx)
		if err != nil {
			s.logger.Error("failed to list requests", zap.Error(err))
			return nil, domain.Internal(op, err)
		}
		// Фронтенд должен получить [], а не null
		if list == nil {
			list = []domain.Request{}
		}
		return list, nil
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch request", zap.String("request_id", id), zap.Error(err))
		return nil, domain.Internal(op, err)
	}
	if req == nil {
		return nil, domain.NotFound(op)
	}
	return []domain.Request{*req}, nil
}

// Delete удаляет заявку навсегда. Повторное удаление дает not-found.
func (s *RequestService) Delete(ctx context.Context, id string) error {
	const op = "delete"

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch request", zap.String("request_id", id), zap.Error(err))
		return domain.Internal(op, err)
	}
	if req == nil {
		return domain.NotFound(op)
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete request", zap.String("request_id", id), zap.Error(err))
		return domain.Internal(op, err)
	}
	// Заявку удалили между проверкой и удалением
	if deleted == 0 {
		return domain.NotFound(op)
	}

	s.logger.Info("request deleted", zap.String("request_id", id))
	s.events.Publish(context.WithoutCancel(ctx), domain.RequestEvent{
		Type:      domain.EventDeleted,
		RequestID: id,
	})
	return nil
}

// UpdateStatus меняет статус и уведомляет исполнителя. Возвращает заявку с новым статусом.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, status string) (*domain.Request, error) {
	const op = "update_status"

	next := domain.RequestStatus(status)
	if !next.CanTransitionTo() {
		return nil, domain.Validation(op, fmt.Errorf("%w: %q, expected %q or %q",
			domain.ErrInvalidStatus, status, domain.StatusInProgress, domain.StatusCompleted))
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch request", zap.String("request_id", id), zap.Error(err))
		return nil, domain.Internal(op, err)
	}
	if req == nil {
		return nil, domain.NotFound(op)
	}

	matched, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		s.logger.Error("failed to update status",
			zap.String("request_id", id),
			zap.String("status", status),
			zap.Error(err))
		return nil, domain.Internal(op, err)
	}
	if matched == 0 {
		return nil, domain.NotFound(op)
	}
	req.Status = next

	s.logger.Info("request status updated",
		zap.String("request_id", id),
		zap.String("new_status", status))

	bg := context.WithoutCancel(ctx)
	s.notifier.Notify(bg, notify.StatusUpdatedMessage(*req, next))
	s.events.Publish(bg, domain.RequestEvent{
		Type:       domain.EventStatusChanged,
		RequestID:  id,
		Status:     next,
		AssignedTo: req.AssignedTo,
	})

	return req, nil
}

// Export собирает всю коллекцию в таблицу и рендерит ее в запрошенный формат.
func (s *RequestService) Export(ctx context.Context, format string) (*export.File, error) {
	const op = "export"

	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, domain.Validation(op, err)
	}

	docs, err := s.repo.Documents(ctx)
	if err != nil {
		s.logger.Error("failed to read documents for export", zap.Error(err))
		return nil, domain.Internal(op, err)
	}

	file, err := export.Render(export.BuildTable(docs), f)
	if err != nil {
		s.logger.Error("failed to render export", zap.String("format", string(f)), zap.Error(err))
		return nil, domain.Internal(op, err)
	}

	s.logger.Info("export generated",
		zap.String("format", string(f)),
		zap.Int("rows", len(docs)))
	return file, nil
}

func (s *RequestService) validateInput(in SubmitInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email address")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
