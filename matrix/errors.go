package matrix

import (
	"errors"
	"fmt"

	"github.com/notargets/spmat/device"
)

var (
	ErrAllocation            = device.ErrAllocation
	ErrUnsupportedOperation  = errors.New("matrix: unsupported operation")
	ErrConversionUnsupported = errors.New("matrix: conversion unsupported")
	ErrShapeMismatch         = errors.New("matrix: shape mismatch")
	ErrTransfer              = errors.New("matrix: transfer failed")
	ErrFormatMismatch        = errors.New("matrix: format mismatch")
	ErrDeviceMismatch        = errors.New("matrix: device mismatch")
	ErrInvalidPermutation    = errors.New("matrix: invalid permutation")
	ErrInvalidStructure      = errors.New("matrix: invalid structure")
	ErrAliasedVectors        = errors.New("matrix: input and output vectors alias")
)

// transferError keeps allocation failures distinguishable from failed copies.
func transferError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, device.ErrAllocation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransfer, err)
}

// checkEntries rejects stored entries in a matrix with no rows or columns.
func checkEntries(format Format, nnz, nrow, ncol int) error {
	if nnz > 0 && (nrow == 0 || ncol == 0) {
		return fmt.Errorf("%w: %s with %d entries in a %dx%d matrix", ErrShapeMismatch, format, nnz, nrow, ncol)
	}
	return nil
}

func checkDims(dims ...int) {
	for _, d := range dims {
		if d < 0 {
			panic(fmt.Sprintf("matrix: negative dimension in %v", dims))
		}
	}
}
