package util

import (
	"os"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "arca.util")

func DebugEnabled() bool {
	return etb("ARCA_DEBUG")
}

func etb(envName string) bool {
	v, ok := os.LookupEnv(envName)
	if !ok {
		return false
	}

	bv, err := strconv.ParseBool(v)

	return err == nil && bv
}

func GetEnvOrFailed(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		logger.Fatal(key, " environment variable is not set")
	}
	return v
}

// CleanCUIT strips grouping dashes and surrounding whitespace from a CUIT.
func CleanCUIT(cuit string) string {
	out := make([]byte, 0, len(cuit))
	for i := 0; i < len(cuit); i++ {
		switch cuit[i] {
		case '-', ' ', '\t':
		default:
			out = append(out, cuit[i])
		}
	}
	return string(out)
}

// FormatCUIT re-adds the XX-XXXXXXXX-X grouping separators. Anything that is
// not an 11-digit string is returned unchanged.
func FormatCUIT(cuit string) string {
	c := CleanCUIT(cuit)
	if len(c) != 11 {
		return cuit
	}
	for i := 0; i < len(c); i++ {
		if c[i] < '0' || c[i] > '9' {
			return cuit
		}
	}
	return c[0:2] + "-" + c[2:10] + "-" + c[10:11]
}

// CompactDate converts a display date DD/MM/YYYY into the compact YYYYMMDD
// form the invoicing service expects.
func CompactDate(display string) (string, error) {
	t, err := time.Parse("02/01/2006", display)
	if err != nil {
		return "", errors.Wrapf(err, "invalid date %q", display)
	}
	return t.Format("20060102"), nil
}

// DisplayDate converts a compact YYYYMMDD date into DD/MM/YYYY. Values that
// are not 8 characters long are returned unchanged.
func DisplayDate(compact string) string {
	if len(compact) != 8 {
		return compact
	}
	return compact[6:8] + "/" + compact[4:6] + "/" + compact[0:4]
}

// ParseCompactDate parses a YYYYMMDD date.
func ParseCompactDate(compact string) (time.Time, error) {
	return time.Parse("20060102", compact)
}
