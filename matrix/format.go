package matrix

import (
	"fmt"
	"strings"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
)

type Format uint8

const (
	FormatCOO Format = iota
	FormatCSR
	FormatDIA
	FormatELL
	FormatHYB
)

var Formats = []Format{FormatCOO, FormatCSR, FormatDIA, FormatELL, FormatHYB}

func (f Format) String() string {
	switch f {
	case FormatCOO:
		return "COO"
	case FormatCSR:
		return "CSR"
	case FormatDIA:
		return "DIA"
	case FormatELL:
		return "ELL"
	case FormatHYB:
		return "HYB"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("matrix: unknown format %q", s)
}

// conversions lists the direct sources each destination format accepts,
// besides itself.
var conversions = map[Format][]Format{
	FormatCOO: {FormatCSR, FormatDIA, FormatELL, FormatHYB},
	FormatCSR: {FormatCOO, FormatDIA, FormatELL, FormatHYB},
	FormatDIA: {FormatCOO, FormatCSR},
	FormatELL: {FormatCOO, FormatCSR},
	FormatHYB: {FormatCSR},
}

// CanConvert reports whether ConvertFrom has a direct edge from src to dst.
func CanConvert(dst, src Format) bool {
	if dst == src {
		_, known := conversions[dst]
		return known
	}
	for _, f := range conversions[dst] {
		if f == src {
			return true
		}
	}
	return false
}

// New returns an empty matrix of the given format bound to dev.
func New[T container.Float](f Format, dev device.Device) (Matrix[T], error) {
	switch f {
	case FormatCOO:
		return NewCOO[T](dev), nil
	case FormatCSR:
		return NewCSR[T](dev), nil
	case FormatDIA:
		return NewDIA[T](dev), nil
	case FormatELL:
		return NewELL[T](dev), nil
	case FormatHYB:
		return NewHYB[T](dev), nil
	}
	return nil, fmt.Errorf("%w: format %s", ErrUnsupportedOperation, f)
}
