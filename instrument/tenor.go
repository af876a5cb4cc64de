package instrument

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTenor converts tenor strings like "1W", "3M", "91D", "10Y" to year
// fractions. Days and weeks use ACT/365 scaling, months are twelfths, and
// bare numbers parse as years.
func ParseTenor(tenor string) (float64, error) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	if t == "" {
		return 0, fmt.Errorf("ParseTenor: empty tenor")
	}

	num := t[:len(t)-1]
	var scale float64
	switch t[len(t)-1] {
	case 'D':
		scale = 1.0 / 365.0
	case 'W':
		scale = 7.0 / 365.0
	case 'M':
		scale = 1.0 / 12.0
	case 'Y':
		scale = 1.0
	default:
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("ParseTenor: invalid tenor %q", tenor)
		}
		return v, nil
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("ParseTenor: invalid tenor %q", tenor)
	}
	return v * scale, nil
}
