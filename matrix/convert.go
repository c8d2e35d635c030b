package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
)

// convertInto runs fill when src -> dst is a direct edge and src is
// reachable from dst's device. Any failure leaves dst cleared.
func convertInto[T container.Float](dst, src Matrix[T], fill func() error) error {
	if dst == src {
		return nil
	}
	var err error
	switch {
	case !CanConvert(dst.Format(), src.Format()):
		err = fmt.Errorf("%w: %s from %s", ErrConversionUnsupported, dst.Format(), src.Format())
	case src.Device() != dst.Device() && !src.Device().IsHost():
		err = fmt.Errorf("%w: converting from %s onto %s", ErrDeviceMismatch, src.Device().Mode(), dst.Device().Mode())
	default:
		err = fill()
	}
	if err != nil {
		dst.Clear()
	}
	return err
}

// cooOf downloads src and re-encodes it as triplets.
func cooOf[T container.Float](src Matrix[T]) (cooData[T], error) {
	switch s := src.(type) {
	case *COO[T]:
		return s.download()
	case *CSR[T]:
		d, err := s.download()
		if err != nil {
			return cooData[T]{}, err
		}
		return d.toCOO(), nil
	case *DIA[T]:
		d, err := s.download()
		if err != nil {
			return cooData[T]{}, err
		}
		return d.toCOO(), nil
	case *ELL[T]:
		d, err := s.download()
		if err != nil {
			return cooData[T]{}, err
		}
		return d.toCOO(), nil
	case *HYB[T]:
		d, err := s.download()
		if err != nil {
			return cooData[T]{}, err
		}
		return d.toCOO(), nil
	}
	return cooData[T]{}, fmt.Errorf("%w: unknown matrix type %T", ErrConversionUnsupported, src)
}

// csrOf downloads src and re-encodes it in compressed rows. Sources without
// row structure pass through triplets.
func csrOf[T container.Float](src Matrix[T]) (csrData[T], error) {
	switch s := src.(type) {
	case *CSR[T]:
		return s.download()
	case *ELL[T]:
		d, err := s.download()
		if err != nil {
			return csrData[T]{}, err
		}
		return d.toCOO().toCSR(), nil
	}
	d, err := cooOf(src)
	if err != nil {
		return csrData[T]{}, err
	}
	return d.toCSR(), nil
}
