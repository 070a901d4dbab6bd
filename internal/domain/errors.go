package domain

import (
	"errors"
	"fmt"
)

// Kind — закрытый набор классов ошибок сервиса. HTTP-статус выбирается только по Kind.
type Kind int

const (
	KindInternal   Kind = iota // Отказ зависимости (БД, сеть, битый id)
	KindValidation             // Некорректный ввод, хранилище не трогали
	KindNotFound               // Заявка отсутствует
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("request not found")
)

// Error несет класс ошибки и имя операции поверх исходной причины.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func NotFound(op string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: ErrNotFound}
}

func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf извлекает класс из цепочки ошибок. Всё неклассифицированное считается внутренним отказом.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
