// Package codec encodes session records for byte-oriented backends (Redis,
// SQLite). Records are stored as JSON; numbers in Data decode as float64.
package codec

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/hupe1980/scenemesh/core"
)

var api = sonic.ConfigStd

// Marshal encodes a session record.
func Marshal(sess *core.Session) ([]byte, error) {
	if sess == nil {
		sess = core.NewSession()
	}
	out := *sess
	out.EnsureData()
	b, err := api.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a session record. A missing data field decodes to an
// empty map.
func Unmarshal(b []byte) (*core.Session, error) {
	var sess core.Session
	if err := api.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	sess.EnsureData()
	return &sess, nil
}

// MarshalData encodes only the data map (used by backends that keep the scene
// name in its own column).
func MarshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := api.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}
	return b, nil
}

// UnmarshalData decodes a data map produced by MarshalData.
func UnmarshalData(b []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(b) == 0 {
		return data, nil
	}
	if err := api.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("unmarshal session data: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
