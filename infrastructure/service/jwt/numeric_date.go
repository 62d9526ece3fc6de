package jwt

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// millisDate is a NumericDate encoded as fractional seconds with millisecond
// precision, so sub-second TTLs survive a round trip.
type millisDate struct {
	time.Time
}

func newMillisDate(t time.Time) *millisDate {
	return &millisDate{t.Truncate(time.Millisecond)}
}

func (d millisDate) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(d.UnixMilli())/1000, 'f', 3, 64)), nil
}

func (d *millisDate) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(b)), 64)
	if err != nil {
		return fmt.Errorf("numeric date: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("numeric date: %s is not finite", b)
	}
	d.Time = time.UnixMilli(int64(math.Round(f * 1000)))
	return nil
}

// numeric builds the NumericDate directly so jwt.TimePrecision never truncates it.
func (d *millisDate) numeric() *jwt.NumericDate {
	if d == nil {
		return nil
	}
	return &jwt.NumericDate{Time: d.Time}
}
