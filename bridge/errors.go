package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAScene is returned when a spawn template is not an instantiable scene.
	ErrNotAScene = errors.New("resource is not an instantiable scene")
	// ErrRootMissing is returned when the attachment root is not in the scene tree.
	ErrRootMissing = errors.New("attachment root not found in scene tree")
	// ErrNoLoader is returned when no asset loader is registered for a path's extension.
	ErrNoLoader = errors.New("no asset loader for extension")
	// ErrAssetNotLoaded is returned while an asset handle is still loading.
	ErrAssetNotLoaded = errors.New("asset not loaded yet")
	// ErrAssetFailed is returned for asset handles whose load failed.
	ErrAssetFailed = errors.New("asset failed to load")
	// ErrInvalidAsset is returned for handles that are unknown or were removed.
	ErrInvalidAsset = errors.New("invalid asset handle")
	// ErrTransformUnsupported is returned when a node lacks the spatial capability a
	// transform needs.
	ErrTransformUnsupported = errors.New("node does not support transform")
)

// UpdatePanicError is returned to the host when a simulation update, or the app builder,
// panicked. The driver has already discarded its App when this is returned. Frame is zero
// for builder panics.
type UpdatePanicError struct {
	Frame FrameKind
	Value any
	Stack []byte
}

func (e *UpdatePanicError) Error() string {
	if e.Frame == 0 {
		return fmt.Sprintf("app build panicked: %v", e.Value)
	}
	return fmt.Sprintf("update panicked during %s frame: %v", e.Frame, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *UpdatePanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
