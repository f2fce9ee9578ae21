package mongodb

import (
	"errors"
	"fmt"

	"github.com/phrazzld/task-manager-api/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotConnected is returned by Manager.Collection before the first
// successful Connect and after Close.
var ErrNotConnected = errors.New("database not connected")

// MapError maps a driver error to an appropriate store error.
// It wraps the original error to preserve context and provide better debugging information.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case errors.Is(err, ErrNotConnected), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	return err
}
