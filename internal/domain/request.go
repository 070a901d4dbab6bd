package domain

import "strings"

// RequestStatus — статус заявки. Меняется только через UpdateStatus.
type RequestStatus string

const (
	StatusOpen       RequestStatus = "Open" // Начальное состояние при создании
	StatusInProgress RequestStatus = "In progress"
	StatusCompleted  RequestStatus = "Completed"
)

// CanTransitionTo проверяет, что статус входит в множество разрешенных целей обновления.
// Порядок переходов не ограничен: Completed достижим сразу из Open и обратно в In progress.
func (s RequestStatus) CanTransitionTo() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// Request — заявка на выполнение задачи. После создания меняется только Status.
type Request struct {
	ID          string        `json:"_id"` // Присваивается хранилищем, всегда строка
	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`
	AssignedBy  string        `json:"assigned_by"` // Email постановщика
	AssignedTo  string        `json:"assigned_to"` // Email исполнителя, получатель всех уведомлений
}

// NewRequest собирает заявку из данных формы. ID проставит хранилище при вставке.
func NewRequest(description, assignedBy, assignedTo string) *Request {
	return &Request{
		Description: description,
		Status:      StatusOpen,
		AssignedBy:  strings.TrimSpace(assignedBy),
		AssignedTo:  strings.TrimSpace(assignedTo),
	}
}

// Поля документа в хранилище. Имена совпадают с историческими документами коллекции.
const (
	FieldID          = "_id"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldAssignedBy  = "assigned_by"
	FieldAssignedTo  = "assigned_to"
)

// CanonicalFields — порядок колонок выгрузки для полей модели.
var CanonicalFields = []string{FieldID, FieldDescription, FieldStatus, FieldAssignedBy, FieldAssignedTo}

// Document — плоское строковое представление сохраненного документа со всеми его полями,
// включая те, что записали старые клиенты. Используется только выгрузкой.
type Document map[string]string
