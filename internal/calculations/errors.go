package calculations

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput входные данные нарушают предусловия формулы
	ErrInvalidInput = errors.New("invalid input")

	// ErrNonConvergence симуляция не сошлась за допустимое число шагов
	ErrNonConvergence = errors.New("calculation did not converge")

	// ErrPaymentTooLow платеж слишком мал, чтобы погасить долг за допустимый срок
	ErrPaymentTooLow = fmt.Errorf("%w: monthly payment is too low to pay off the debt", ErrNonConvergence)
)
