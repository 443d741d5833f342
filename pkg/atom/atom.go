package atom

// Atom is the smallest operation record within a molecule. Field names follow
// the cross-implementation interchange convention; optional fields are
// pointers so that absent and empty can be told apart, and absent fields are
// omitted from JSON rather than emitted as null.
type Atom struct {
	Position      string      `json:"position"`
	WalletAddress string      `json:"walletAddress"`
	Isotope       Isotope     `json:"isotope"`
	Token         string      `json:"token"`
	Value         *string     `json:"value,omitempty"`
	BatchID       *string     `json:"batchId,omitempty"`
	MetaType      *string     `json:"metaType,omitempty"`
	MetaID        *string     `json:"metaId,omitempty"`
	Meta          []MetaEntry `json:"meta"`
	OTSFragment   *string     `json:"otsFragment,omitempty"`
	Index         *int        `json:"index,omitempty"`
	CreatedAt     string      `json:"createdAt"`
	Version       *string     `json:"version,omitempty"`
}

// New creates an atom bound to a signing position and wallet address.
func New(position, walletAddress string, isotope Isotope, token string, createdAt string) *Atom {
	return &Atom{
		Position:      position,
		WalletAddress: walletAddress,
		Isotope:       isotope,
		Token:         token,
		CreatedAt:     createdAt,
	}
}

// WithValue sets the decimal-string amount. Amounts stay text end to end so
// no implementation ever rounds them through binary floats.
func (a *Atom) WithValue(value string) *Atom {
	a.Value = &value
	return a
}

// WithBatchID groups this atom with other stackable-unit transfers.
func (a *Atom) WithBatchID(batchID string) *Atom {
	a.BatchID = &batchID
	return a
}

// WithMetaType classifies the attached metadata.
func (a *Atom) WithMetaType(metaType, metaID string) *Atom {
	a.MetaType = &metaType
	a.MetaID = &metaID
	return a
}

// WithMeta replaces the ordered metadata list.
func (a *Atom) WithMeta(meta []MetaEntry) *Atom {
	a.Meta = meta
	return a
}

// HashableValues walks the fixed property order and emits the strings fed to
// the molecular hash. Position and wallet address are always emitted, even
// when empty; every other scalar is skipped entirely when absent; meta
// entries with non-empty values emit key and value as two separate strings.
// The OTS fragment and the index are never part of the hash.
func (a *Atom) HashableValues() []string {
	values := []string{a.Position, a.WalletAddress}
	if a.Isotope != "" {
		values = append(values, string(a.Isotope))
	}
	if a.Token != "" {
		values = append(values, a.Token)
	}
	if a.Value != nil {
		values = append(values, *a.Value)
	}
	if a.BatchID != nil {
		values = append(values, *a.BatchID)
	}
	if a.MetaType != nil {
		values = append(values, *a.MetaType)
	}
	if a.MetaID != nil {
		values = append(values, *a.MetaID)
	}
	for _, entry := range a.Meta {
		if entry.Value == "" {
			continue
		}
		values = append(values, entry.Key, entry.Value)
	}
	if a.CreatedAt != "" {
		values = append(values, a.CreatedAt)
	}
	return values
}

// HasIndex reports whether the atom has been assigned its molecule ordinal.
func (a *Atom) HasIndex() bool {
	return a.Index != nil
}

// IndexValue returns the assigned index, or -1 when unassigned.
func (a *Atom) IndexValue() int {
	if a.Index == nil {
		return -1
	}
	return *a.Index
}

// ValueString returns the decimal amount, or "" when absent.
func (a *Atom) ValueString() string {
	if a.Value == nil {
		return ""
	}
	return *a.Value
}

// FragmentString returns the OTS fragment, or "" when unsigned.
func (a *Atom) FragmentString() string {
	if a.OTSFragment == nil {
		return ""
	}
	return *a.OTSFragment
}
