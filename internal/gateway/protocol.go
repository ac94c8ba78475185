package gateway

import (
	"encoding/json"
	"fmt"
)

// Event kinds on the outbound wire. Events are JSON tuples of
// [kind, payload, utteranceBeganAt].
const (
	EventTranscript = 0
	EventVerdict    = 1
)

// readyMessage acknowledges a topic list and tells the client to start
// streaming audio.
const readyMessage = "READY"

// encodeEvent renders an outbound event tuple. beganAt is the utterance's
// open time in Unix milliseconds.
func encodeEvent(kind int, payload string, beganAt int64) ([]byte, error) {
	data, err := json.Marshal([]any{kind, payload, beganAt})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode event: %w", err)
	}
	return data, nil
}

// decodeTopics parses the client's opening message: a JSON array of topic
// strings.
func decodeTopics(data []byte) ([]string, error) {
	var topics []string
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("protocol: decode topics: %w", err)
	}
	return topics, nil
}
