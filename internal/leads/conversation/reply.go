package conversation

import (
	"encoding/json"
	"math"
)

// Bounds for score_delta; the prompt demands an integer between -3 and 3,
// and anything outside that is treated as a malformed record.
const (
	minScoreDelta = -3
	maxScoreDelta = 3
)

// AgentReply is the validated six-field structured record the model must
// return for every grounded turn.
type AgentReply struct {
	Response          string
	Intent            string
	ScoreDelta        int
	CourseDetected    string
	ObjectionDetected string
	HandoffRequired   bool
}

// agentReplyWire uses pointer fields so a missing key is distinguishable from
// a zero value, and a type mismatch fails the unmarshal outright.
type agentReplyWire struct {
	Response          *string  `json:"response"`
	Intent            *string  `json:"intent"`
	ScoreDelta        *float64 `json:"score_delta"`
	CourseDetected    *string  `json:"course_detected"`
	ObjectionDetected *string  `json:"objection_detected"`
	HandoffRequired   *bool    `json:"handoff_required"`
}

// ParseAgentReply locates the first well-formed JSON object in the raw model
// output (which may be wrapped in prose or code fences) and validates that
// all six fields are present with the correct primitive types. It returns
// either a fully populated record or ok=false - never a partial record, and
// never a panic.
func ParseAgentReply(raw string) (AgentReply, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' {
			continue
		}
		end, found := matchObjectEnd(raw, start)
		if !found {
			// No balanced close exists for this or any later opener.
			break
		}
		if reply, ok := decodeReply(raw[start : end+1]); ok {
			return reply, true
		}
		// A balanced but non-conforming object; keep scanning after it.
		start = end
	}
	return AgentReply{}, false
}

func decodeReply(candidate string) (AgentReply, bool) {
	var wire agentReplyWire
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return AgentReply{}, false
	}
	if wire.Response == nil || wire.Intent == nil || wire.ScoreDelta == nil ||
		wire.CourseDetected == nil || wire.ObjectionDetected == nil || wire.HandoffRequired == nil {
		return AgentReply{}, false
	}
	// The delta must be an integral number; 1.5 is as malformed as "one".
	if *wire.ScoreDelta != math.Trunc(*wire.ScoreDelta) {
		return AgentReply{}, false
	}
	if *wire.ScoreDelta < minScoreDelta || *wire.ScoreDelta > maxScoreDelta {
		return AgentReply{}, false
	}

	return AgentReply{
		Response:          *wire.Response,
		Intent:            *wire.Intent,
		ScoreDelta:        int(*wire.ScoreDelta),
		CourseDetected:    *wire.CourseDetected,
		ObjectionDetected: *wire.ObjectionDetected,
		HandoffRequired:   *wire.HandoffRequired,
	}, true
}

// matchObjectEnd finds the index of the brace closing the object opened at
// start, honoring strings and escape sequences.
func matchObjectEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
