package sink

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"

	"s3tap/internal/records"
)

// RecordHash returns a stable 128-bit xxh3 digest of (table, record) as a
// hex string. Database backends use it as the conflict key so an interrupted
// file that is re-synced does not land duplicate rows; encoding/json sorts
// map keys, which makes the serialized form canonical.
func RecordHash(table string, rec records.Record) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("hash record: %w", err)
	}
	h := xxh3.Hash128(append([]byte(table+"\x00"), b...)).Bytes()
	return hex.EncodeToString(h[:]), nil
}
