package atom

import (
	"encoding/json"
	"fmt"
)

// MetaEntry is one key→value pair of an atom's metadata. The list is ordered
// and the order is significant for hashing.
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MetaFromMap flattens a map into an ordered entry list following the given
// key order. Keys missing from the map are skipped.
func MetaFromMap(m map[string]string, order []string) []MetaEntry {
	entries := make([]MetaEntry, 0, len(order))
	for _, k := range order {
		if v, ok := m[k]; ok {
			entries = append(entries, MetaEntry{Key: k, Value: v})
		}
	}
	return entries
}

// AggregatedMeta collapses the ordered entry list into a map. Later entries
// win on duplicate keys.
func (a *Atom) AggregatedMeta() map[string]string {
	agg := make(map[string]string, len(a.Meta))
	for _, entry := range a.Meta {
		agg[entry.Key] = entry.Value
	}
	return agg
}

// MetaValue returns the aggregated value for key, last entry winning.
func (a *Atom) MetaValue(key string) (string, bool) {
	var val string
	var found bool
	for _, entry := range a.Meta {
		if entry.Key == key {
			val = entry.Value
			found = true
		}
	}
	return val, found
}

// Policy is a readPolicy/writePolicy blob carried JSON-encoded inside a meta
// value: metadata key → permitted actors. A permission is either a 64-hex
// bundle hash or one of the literals "all" / "self".
type Policy map[string]Permissions

// Permissions is the actor list of one policy entry. A bare JSON string
// decodes as a single-element list.
type Permissions []string

// UnmarshalJSON accepts either a string or an array of strings.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = Permissions{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("permission must be a string or string array: %w", err)
	}
	*p = many
	return nil
}

// ParsePolicy decodes a JSON policy object.
func ParsePolicy(raw string) (Policy, error) {
	var p Policy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return p, nil
}

// Rule is one entry of an R-isotope rule set: a condition matched against
// metadata and a callback executed by the policy engine (an external
// collaborator; only the schema is validated here).
type Rule struct {
	Condition json.RawMessage `json:"condition"`
	Callback  json.RawMessage `json:"callback"`
}

// Valid reports whether the rule carries both a condition and a callback.
func (r Rule) Valid() bool {
	return len(r.Condition) > 0 && string(r.Condition) != "null" &&
		len(r.Callback) > 0 && string(r.Callback) != "null"
}

// ParseRules decodes the JSON array carried under the "rule" meta key.
// The array must be non-empty and every element must be a valid Rule.
func ParseRules(raw string) ([]Rule, error) {
	var rules []Rule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule set is empty")
	}
	for i, r := range rules {
		if !r.Valid() {
			return nil, fmt.Errorf("rule %d: missing condition or callback", i)
		}
	}
	return rules, nil
}

// SigningWalletRef is the JSON blob carried under the "signingWallet" meta
// key when a molecule is signed by a wallet other than the first atom's.
type SigningWalletRef struct {
	Address  string `json:"address"`
	Bundle   string `json:"bundle,omitempty"`
	Position string `json:"position,omitempty"`
}

// ParseSigningWallet decodes a signingWallet reference.
func ParseSigningWallet(raw string) (*SigningWalletRef, error) {
	var ref SigningWalletRef
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return nil, fmt.Errorf("parse signingWallet: %w", err)
	}
	return &ref, nil
}
