package matrix

import "github.com/notargets/spmat/container"

// EncodingOf downloads the host image of m.
func EncodingOf[T container.Float](m Matrix[T]) (any, error) {
	switch s := m.(type) {
	case *COO[T]:
		return s.download()
	case *CSR[T]:
		return s.download()
	case *DIA[T]:
		return s.download()
	case *ELL[T]:
		return s.download()
	case *HYB[T]:
		return s.download()
	}
	return nil, ErrUnsupportedOperation
}
