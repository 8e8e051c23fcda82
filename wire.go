package statsync

import "fmt"

// Ack is the service response to a delta push.
type Ack struct {
	ServerVersion uint32 `json:"serverVersion"`
}

// wireMutation is one entry of a delta push, covering both mutation
// variants of the pending log.
type wireMutation struct {
	Kind     string        `json:"kind"`
	Name     string        `json:"name,omitempty"`
	DataType string        `json:"dataType,omitempty"`
	Compare  string        `json:"comparePolicy,omitempty"`
	Value    any           `json:"newValue,omitempty"`
	Contexts []StatContext `json:"newContextList,omitempty"`
}

// deltaPayload is the delta push request body.
type deltaPayload struct {
	ClientVersion uint32         `json:"clientVersion"`
	Mutations     []wireMutation `json:"mutations"`
}

// SnapshotStat is one stat entry of an authoritative snapshot.
type SnapshotStat struct {
	DataType string `json:"dataType"`
	Value    any    `json:"value"`
}

// Snapshot is the server's full authoritative copy of a user's document.
type Snapshot struct {
	ClientVersion uint32                  `json:"clientVersion"`
	ServerVersion uint32                  `json:"serverVersion"`
	Version       uint32                  `json:"version,omitempty"`
	ClientID      string                  `json:"clientId"`
	Stats         map[string]SnapshotStat `json:"stats"`
	Contexts      []StatContext           `json:"contexts,omitempty"`
}

// documentState is the offline-store blob: the snapshot shape plus the
// pending log and batch-versioning cursor.
type documentState struct {
	ClientID      string                  `json:"clientId"`
	Version       uint32                  `json:"version"`
	ClientVersion uint32                  `json:"clientVersion"`
	ServerVersion uint32                  `json:"serverVersion"`
	Versioned     int                     `json:"versionedPending"`
	Stats         map[string]SnapshotStat `json:"stats"`
	Contexts      []StatContext           `json:"contexts,omitempty"`
	Pending       []wireMutation          `json:"pending,omitempty"`
}

const (
	mutationKindStat    = "stat"
	mutationKindContext = "context"
)

func encodeMutations(pending []PendingChange) []wireMutation {
	out := make([]wireMutation, 0, len(pending))
	for _, change := range pending {
		switch change.Kind {
		case ChangeContexts:
			out = append(out, wireMutation{
				Kind:     mutationKindContext,
				Contexts: cloneContexts(change.Contexts),
			})
		default:
			out = append(out, wireMutation{
				Kind:     mutationKindStat,
				Name:     change.Stat.Name,
				DataType: change.Stat.DataType.String(),
				Compare:  change.Compare.String(),
				Value:    change.Stat.Value(),
			})
		}
	}
	return out
}

func decodeMutations(mutations []wireMutation) ([]PendingChange, error) {
	if len(mutations) == 0 {
		return nil, nil
	}
	out := make([]PendingChange, 0, len(mutations))
	for _, m := range mutations {
		switch m.Kind {
		case mutationKindContext:
			out = append(out, contextChange(m.Contexts))
		case mutationKindStat:
			stat := snapshotStatValue(m.Name, SnapshotStat{DataType: m.DataType, Value: m.Value})
			out = append(out, statChange(stat, ParseCompareType(m.Compare)))
		default:
			return nil, fmt.Errorf("unknown mutation kind: %q", m.Kind)
		}
	}
	return out, nil
}

// snapshotStatValue converts a wire stat entry into a StatValue. Numeric
// payloads arrive as JSON numbers; anything non-coercible under a numeric
// type tag falls back to zero.
func snapshotStatValue(name string, ss SnapshotStat) StatValue {
	dataType := ParseStatDataType(ss.DataType)
	stat := StatValue{Name: name, DataType: dataType}
	switch dataType {
	case StatDataString:
		if text, ok := ss.Value.(string); ok {
			stat.Text = text
		}
	case StatDataUndefined:
		if text, ok := ss.Value.(string); ok {
			stat.DataType = StatDataString
			stat.Text = text
			break
		}
		if f, ok := toFloat(ss.Value); ok {
			stat.DataType = StatDataDouble
			stat.Number = f
		}
	default:
		if f, ok := toFloat(ss.Value); ok {
			stat.Number = f
		}
	}
	return stat
}
