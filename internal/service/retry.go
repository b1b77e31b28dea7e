package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/linemk/jewelry-shop/internal/storage"
)

// DefaultUpdateAttempts сколько раз перечитывать документ при конфликте версий
const DefaultUpdateAttempts = 5

// ErrConflict документ меняли параллельно и все попытки исчерпаны
var ErrConflict = errors.New("concurrent update, retry later")

// errNoChange мутатор решил, что писать нечего
var errNoChange = errors.New("no change")

// retryOnConflict повторяет чтение-изменение-запись, пока запись не пройдёт проверку версии
func retryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}
