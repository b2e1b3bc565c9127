package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/novasocial/nova-consistency/internal/model"
)

func marshalEnvelope(env model.Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return b, nil
}

// DecodeEnvelope parses a delivered message body. An envelope without an
// event_id cannot be deduplicated and is rejected.
func DecodeEnvelope(value []byte) (model.Envelope, error) {
	var env model.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.EventID == "" {
		return model.Envelope{}, fmt.Errorf("envelope missing event_id")
	}

	return env, nil
}
