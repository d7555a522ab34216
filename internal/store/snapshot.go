package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zarlcorp/zpeople/internal/person"
)

// snapshotVersion is written into every snapshot envelope.
const snapshotVersion = 0

// snapshot is the persisted envelope: {"state":{"persons":[...]},"version":0}.
type snapshot struct {
	State   snapshotState `json:"state"`
	Version int           `json:"version"`
}

type snapshotState struct {
	Persons []person.Person `json:"persons"`
}

func encodeSnapshot(ps []person.Person) ([]byte, error) {
	if ps == nil {
		ps = []person.Person{}
	}
	data, err := json.Marshal(snapshot{
		State:   snapshotState{Persons: ps},
		Version: snapshotVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) ([]person.Person, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.State.Persons, nil
}

// uniqueRecords drops records without an identifier and later duplicates
// of an identifier already seen.
func uniqueRecords(log *slog.Logger, ps []person.Person) []person.Person {
	out := make([]person.Person, 0, len(ps))
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if p.ID == "" || seen[p.ID] {
			log.Warn("hydrate: skipping record", "id", p.ID)
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
