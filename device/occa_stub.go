//go:build !occa

package device

import "fmt"

func newOCCA(cfg Config) (Device, error) {
	return nil, fmt.Errorf("%w: %q requires building with -tags occa", ErrUnknownMode, cfg.Mode)
}
