package discovery

import (
	"encoding/json"
	"slices"
	"strings"
)

// Instance is one reachable copy of a service.
type Instance struct {
	ServiceID string `json:"service_id"`
	URL       string `json:"url"`
	Weight    int    `json:"weight,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	Node      string `json:"-"`
}

// Key identifies the instance for circuit tracking.
func (i Instance) Key() string {
	return i.ServiceID + "@" + i.URL
}

func (i Instance) encode() ([]byte, error) {
	return json.Marshal(i)
}

func decodeInstance(meta []byte) (Instance, bool) {
	var inst Instance
	if len(meta) == 0 || json.Unmarshal(meta, &inst) != nil || inst.ServiceID == "" || inst.URL == "" {
		return Instance{}, false
	}
	return inst, true
}

// normalizeID folds service ids so lookups by URL host match.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// index groups instances by service id in a stable order.
func index(instances []Instance) map[string][]Instance {
	out := make(map[string][]Instance)
	for _, inst := range instances {
		id := normalizeID(inst.ServiceID)
		out[id] = append(out[id], inst)
	}
	for id := range out {
		slices.SortStableFunc(out[id], func(a, b Instance) int {
			return strings.Compare(a.URL, b.URL)
		})
	}
	return out
}
