package statsync

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Document is the versioned local replica of one user's statistics: a map
// of stat values, the active context list, and an append-only log of
// pending changes. Mutations are buffered locally and marked dirty; the
// log is consumed only by CommitFlush after a confirmed server response.
//
// A document is owned by exactly one user context. Mutation and read
// methods are safe to call concurrently with an in-flight flush of the
// same document.
type Document struct {
	mu            sync.Mutex
	clientID      string
	version       uint32
	clientVersion uint32
	serverVersion uint32
	dirty         bool
	stats         map[string]*StatValue
	contexts      []StatContext
	pending       []PendingChange

	// versioned counts the prefix of pending already covered by a
	// clientVersion bump, so a retried flush of the same batch does not
	// increment again.
	versioned int
}

// NewDocument creates an empty document for a client id.
func NewDocument(clientID string) *Document {
	return &Document{
		clientID: clientID,
		version:  1,
		stats:    map[string]*StatValue{},
	}
}

// SetStat writes a numeric stat gated by the compare policy. A missing
// stat is created unconditionally. The returned bool reports whether the
// value was applied; a policy rejection is not an error.
func (d *Document) SetStat(name string, value float64, compare CompareType) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("stat name is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.stats[name]
	if !ok {
		stat := &StatValue{Name: name, DataType: StatDataDouble, Number: value}
		d.stats[name] = stat
		d.appendChangeLocked(statChange(*stat, compare))
		return true, nil
	}
	if !existing.IsNumeric() {
		return false, fmt.Errorf("stat %q holds %s: %w", name, existing.DataType, ErrTypeMismatch)
	}
	if !compare.Allows(value, existing.Number) {
		return false, nil
	}

	existing.Number = value
	d.appendChangeLocked(statChange(*existing, compare))
	return true, nil
}

// SetStatText writes a string stat. String stats are always
// last-writer-wins; ordering policies do not apply.
func (d *Document) SetStatText(name, value string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("stat name is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.stats[name]
	if !ok {
		stat := &StatValue{Name: name, DataType: StatDataString, Text: value}
		d.stats[name] = stat
		d.appendChangeLocked(statChange(*stat, CompareAlways))
		return true, nil
	}
	if existing.DataType != StatDataString {
		return false, fmt.Errorf("stat %q holds %s: %w", name, existing.DataType, ErrTypeMismatch)
	}

	existing.Text = value
	d.appendChangeLocked(statChange(*existing, CompareAlways))
	return true, nil
}

// GetStat returns a copy of the current locally-applied value, which may
// be ahead of the last server-acknowledged version.
func (d *Document) GetStat(name string) (StatValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stat, ok := d.stats[name]
	if !ok {
		return StatValue{}, fmt.Errorf("stat %q: %w", name, ErrStatNotFound)
	}
	return *stat, nil
}

// StatNames returns the sorted names of all stats in the document.
func (d *Document) StatNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.stats))
	for name := range d.stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contexts returns a copy of the active context list.
func (d *Document) Contexts() []StatContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneContexts(d.contexts)
}

// SetContexts replaces the active context list. The replacement is itself
// a tracked mutation.
func (d *Document) SetContexts(contexts []StatContext) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.contexts = cloneContexts(contexts)
	d.appendChangeLocked(contextChange(contexts))
}

// ClearContexts removes all active contexts.
func (d *Document) ClearContexts() {
	d.SetContexts(nil)
}

// IsDirty reports whether unconsumed pending changes exist.
func (d *Document) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// ClientVersion returns the local mutation batch counter.
func (d *Document) ClientVersion() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clientVersion
}

// ServerVersion returns the last server-confirmed version.
func (d *Document) ServerVersion() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serverVersion
}

// ClientID returns the client identifier of the document.
func (d *Document) ClientID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clientID
}

// Version returns the document schema version reported by the server.
func (d *Document) Version() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// SerializeDelta produces the wire representation of all unconsumed
// pending changes plus the current client version. The log is not
// cleared; only CommitFlush clears it.
func (d *Document) SerializeDelta() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload := deltaPayload{
		ClientVersion: d.clientVersion,
		Mutations:     encodeMutations(d.pending),
	}
	return json.Marshal(payload)
}

// deltaForFlush versions the current batch (once) and serializes it,
// returning the number of pending changes the delta covers so the commit
// path can clear exactly those.
func (d *Document) deltaForFlush() ([]byte, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return nil, 0, nil
	}
	if len(d.pending) > d.versioned {
		d.clientVersion++
		d.versioned = len(d.pending)
	}

	payload := deltaPayload{
		ClientVersion: d.clientVersion,
		Mutations:     encodeMutations(d.pending),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	return data, len(d.pending), nil
}

// CommitFlush clears the consumed prefix of the pending log and records
// the acknowledged server version. The dirty flag stays set if new
// mutations arrived while the flush was in flight.
func (d *Document) CommitFlush(serverVersion uint32, consumed int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dropPendingLocked(consumed)
	if serverVersion > d.serverVersion {
		d.serverVersion = serverVersion
	}
}

// DiscardPending drops the consumed prefix of the pending log without an
// acknowledgment. Used when the service rejected the batch permanently.
func (d *Document) DiscardPending(consumed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropPendingLocked(consumed)
}

// MergeSnapshot replaces local state wholesale with the server's
// authoritative snapshot. Pending changes accumulated before this call
// are discarded; there is no prior local baseline to protect on first
// load.
func (d *Document) MergeSnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stats := make(map[string]*StatValue, len(snap.Stats))
	for name, ss := range snap.Stats {
		stat := snapshotStatValue(name, ss)
		stats[name] = &stat
	}
	d.stats = stats
	d.contexts = cloneContexts(snap.Contexts)
	if snap.ClientID != "" {
		d.clientID = snap.ClientID
	}
	if snap.Version > 0 {
		d.version = snap.Version
	}
	if snap.ClientVersion > d.clientVersion {
		d.clientVersion = snap.ClientVersion
	}
	if snap.ServerVersion > d.serverVersion {
		d.serverVersion = snap.ServerVersion
	}
	d.pending = nil
	d.versioned = 0
	d.dirty = false
}

// EncodeState serializes the full document, pending log included, as the
// opaque blob handed to the offline store.
func (d *Document) EncodeState() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := documentState{
		ClientID:      d.clientID,
		Version:       d.version,
		ClientVersion: d.clientVersion,
		ServerVersion: d.serverVersion,
		Versioned:     d.versioned,
		Stats:         make(map[string]SnapshotStat, len(d.stats)),
		Contexts:      cloneContexts(d.contexts),
		Pending:       encodeMutations(d.pending),
	}
	for name, stat := range d.stats {
		state.Stats[name] = SnapshotStat{DataType: stat.DataType.String(), Value: stat.Value()}
	}
	return json.Marshal(state)
}

// RestoreState replaces the document's state from an offline blob,
// including any pending changes persisted with it.
func (d *Document) RestoreState(data []byte) error {
	var state documentState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode document state: %w", err)
	}
	pending, err := decodeMutations(state.Pending)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stats := make(map[string]*StatValue, len(state.Stats))
	for name, ss := range state.Stats {
		stat := snapshotStatValue(name, ss)
		stats[name] = &stat
	}
	d.stats = stats
	d.contexts = cloneContexts(state.Contexts)
	if state.ClientID != "" {
		d.clientID = state.ClientID
	}
	if state.Version > 0 {
		d.version = state.Version
	}
	d.clientVersion = state.ClientVersion
	d.serverVersion = state.ServerVersion
	d.pending = pending
	d.versioned = state.Versioned
	if d.versioned > len(d.pending) {
		d.versioned = len(d.pending)
	}
	d.dirty = len(d.pending) > 0
	return nil
}

// DecodeState builds a document from an offline blob.
func DecodeState(data []byte) (*Document, error) {
	doc := NewDocument("")
	if err := doc.RestoreState(data); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) appendChangeLocked(change PendingChange) {
	d.pending = append(d.pending, change)
	d.dirty = true
}

func (d *Document) dropPendingLocked(consumed int) {
	if consumed <= 0 {
		return
	}
	if consumed > len(d.pending) {
		consumed = len(d.pending)
	}
	d.pending = append([]PendingChange(nil), d.pending[consumed:]...)
	d.versioned -= consumed
	if d.versioned < 0 {
		d.versioned = 0
	}
	d.dirty = len(d.pending) > 0
}

// pendingCount reports the current pending log length.
func (d *Document) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
