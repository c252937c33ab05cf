package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"time"
)

const (
	orderNumberSuffixLen = 5
	orderNumberAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberDate      = "20060102"

	// largest multiple of len(orderNumberAlphabet) that fits in a byte
	orderNumberByteLimit = 252
)

// OrderNumberGenerator returns PREFIX-YYYYMMDD-XXXXX for the UTC date of now.
type OrderNumberGenerator func(now time.Time) (string, error)

func NewOrderNumberGenerator(prefix string, random io.Reader) OrderNumberGenerator {
	if random == nil {
		random = rand.Reader
	}

	return func(now time.Time) (string, error) {
		suffix := make([]byte, 0, orderNumberSuffixLen)
		buf := make([]byte, orderNumberSuffixLen*2)
		for len(suffix) < orderNumberSuffixLen {
			if _, err := io.ReadFull(random, buf); err != nil {
				return "", fmt.Errorf("read order number entropy: %w", err)
			}
			for _, b := range buf {
				if b >= orderNumberByteLimit {
					continue
				}
				suffix = append(suffix, orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
				if len(suffix) == orderNumberSuffixLen {
					break
				}
			}
		}

		return prefix + "-" + now.UTC().Format(orderNumberDate) + "-" + string(suffix), nil
	}
}

func orderNumberPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-\d{8}-[A-Z0-9]{5}$`)
}
