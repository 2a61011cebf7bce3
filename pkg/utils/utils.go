package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewImageObjectKey(suffix string) string
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewImageObjectKey builds a collision-safe storage key like
// scan_20240131_154501_9f8a1b2c.jpg. The suffix carries the extension and an
// optional qualifier (e.g. "_annotated.jpg").
func (u *utils) NewImageObjectKey(suffix string) string {
	timestamp := time.Now().Format("20060102_150405")
	unique := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("scan_%s_%s%s", timestamp, unique, suffix)
}
