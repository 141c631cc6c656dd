package rooted

import (
	"encoding/json"
	"sort"
	"time"
)

// SlotInfo reports the observable state of one live slot.
type SlotInfo struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Position  string    `json:"position,omitempty"`
	Context   bool      `json:"context,omitempty"`
	Overrides int       `json:"overrides,omitempty"`
	Touched   bool      `json:"touched"`
	Survived  int       `json:"survived"`
	CreatedAt time.Time `json:"created_at"`
	Value     any       `json:"value,omitempty"`
}

// StoreDump is a point-in-time snapshot of every live slot, intended for
// logging or transport helpers.
type StoreDump struct {
	TakenAt time.Time  `json:"taken_at"`
	Slots   []SlotInfo `json:"slots"`
}

// Dump captures every live slot without touching any of them, so inspecting
// a store never extends slot lifetimes. Reported values are detached copies.
func (s *Store) Dump() StoreDump {
	s.mu.Lock()
	infos := make([]SlotInfo, 0, len(s.slots)+len(s.contexts))
	for _, entry := range s.slots {
		infos = append(infos, dumpSlot(entry))
	}
	for _, entry := range s.contexts {
		infos = append(infos, dumpSlot(entry))
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Kind == infos[j].Kind {
			if infos[i].Position == infos[j].Position {
				return infos[i].ID < infos[j].ID
			}
			return infos[i].Position < infos[j].Position
		}
		return infos[i].Kind < infos[j].Kind
	})

	return StoreDump{
		TakenAt: s.now(),
		Slots:   infos,
	}
}

func dumpSlot(entry *slot) SlotInfo {
	info := SlotInfo{
		ID:        entry.id,
		Kind:      entry.key.typ.String(),
		Context:   entry.isContext,
		Overrides: len(entry.overrides),
		Touched:   entry.touched.Load(),
		Survived:  entry.survived,
		CreatedAt: entry.createdAt,
		Value:     Clone(entry.cell.load()),
	}
	if !entry.isContext {
		info.Position = entry.key.at.String()
	}
	return info
}

// ToJSON serialises the dump into JSON for logging or transport helpers.
func (d StoreDump) ToJSON() ([]byte, error) {
	type alias StoreDump
	return json.Marshal(alias(d))
}

// DumpFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func DumpFromJSON(data []byte) (StoreDump, error) {
	type alias StoreDump
	var out alias
	if err := json.Unmarshal(data, &out); err != nil {
		return StoreDump{}, err
	}
	return StoreDump(out), nil
}
