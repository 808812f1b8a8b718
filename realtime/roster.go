package realtime

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

// RosterEntry is one reconciled member of a project.
type RosterEntry struct {
	UID         string            `json:"uid"`
	Role        models.MemberRole `json:"role"`
	DisplayName string            `json:"displayName"`
	JoinedAt    string            `json:"joinedAt,omitempty"`
}

// RosterSnapshot is the ordered, deduplicated member list: owners
// first, then alphabetical by display name. Err is set when the
// upstream query itself failed; the roster is empty in that case.
type RosterSnapshot struct {
	Members []RosterEntry `json:"members"`
	Err     error         `json:"-"`
}

// RosterSource selects which upstream index feeds the reconciler.
type RosterSource int

const (
	// RosterFromMembers queries the project's members subcollection.
	RosterFromMembers RosterSource = iota
	// RosterFromFlatIndex queries the denormalized reverse index.
	RosterFromFlatIndex
	// RosterFromBoth merges the two upstreams, deduplicating by uid.
	RosterFromBoth
)

// Roster reconciles a project's membership from one or two live
// upstream sources into a single deduplicated list. Every uid in the
// upstream set gets its own live subscription to the member document;
// the set of open per-member subscriptions always equals the upstream
// id set.
type Roster struct {
	gw        store.Gateway
	projectID string

	mu       sync.Mutex
	direct   map[string]struct{}
	flat     map[string]struct{}
	entries  map[string]models.Member
	err      error
	closed   bool
	onChange func(RosterSnapshot)

	set      *SubscriptionSet
	upstream []store.CancelFunc
}

// NewRoster opens the upstream subscriptions and starts reconciling.
func NewRoster(gw store.Gateway, projectID string, source RosterSource, onChange func(RosterSnapshot)) *Roster {
	r := &Roster{
		gw:        gw,
		projectID: projectID,
		direct:    make(map[string]struct{}),
		flat:      make(map[string]struct{}),
		entries:   make(map[string]models.Member),
		onChange:  onChange,
	}
	r.set = NewSubscriptionSet(r.openMember)

	if source == RosterFromMembers || source == RosterFromBoth {
		cancel := gw.Subscribe(store.Query{
			Collection: models.MembersCol(projectID),
			OrderBy:    "joinedAt",
		}, r.onDirect, r.onUpstreamErr)
		r.upstream = append(r.upstream, cancel)
	}
	if source == RosterFromFlatIndex || source == RosterFromBoth {
		cancel := gw.Subscribe(store.Query{
			Collection: models.FlatMembersCol,
			Filters:    []store.Filter{{Field: "projectId", Value: projectID}},
		}, r.onFlat, r.onUpstreamErr)
		r.upstream = append(r.upstream, cancel)
	}
	return r
}

// Snapshot returns the latest reconciled roster.
func (r *Roster) Snapshot() RosterSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Close cancels the upstream subscriptions and every per-member one.
// Idempotent.
func (r *Roster) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	upstream := r.upstream
	r.upstream = nil
	r.mu.Unlock()

	for _, cancel := range upstream {
		cancel()
	}
	r.set.Close()
}

func (r *Roster) onDirect(docs []store.Document) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.direct = make(map[string]struct{}, len(docs))
	for _, d := range docs {
		r.direct[d.ID] = struct{}{}
		r.seedLocked(d.ID, d)
	}
	r.err = nil
	r.mu.Unlock()

	r.reconcile()
}

func (r *Roster) onFlat(docs []store.Document) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.flat = make(map[string]struct{}, len(docs))
	for _, d := range docs {
		var fm models.FlatMember
		if err := d.Decode(&fm); err != nil || fm.UID == "" {
			continue
		}
		r.flat[fm.UID] = struct{}{}
		r.seedLocked(fm.UID, d)
	}
	r.err = nil
	r.mu.Unlock()

	r.reconcile()
}

// seedLocked records upstream-provided fields for a uid without
// clobbering anything a member-document subscription already merged.
func (r *Roster) seedLocked(uid string, d store.Document) {
	if _, ok := r.entries[uid]; ok {
		return
	}
	var m models.Member
	if err := d.Decode(&m); err != nil {
		m = models.Member{}
	}
	m.UID = uid
	if m.Role == "" {
		m.Role = models.RoleMember
	}
	r.entries[uid] = m
}

// reconcile aligns per-member subscriptions with the merged upstream id
// set and emits. Must be called without holding r.mu.
func (r *Roster) reconcile() {
	r.mu.Lock()
	desired := make(map[string]struct{}, len(r.direct)+len(r.flat))
	for uid := range r.direct {
		desired[uid] = struct{}{}
	}
	for uid := range r.flat {
		desired[uid] = struct{}{}
	}
	for uid := range r.entries {
		if _, ok := desired[uid]; !ok {
			delete(r.entries, uid)
		}
	}
	r.mu.Unlock()

	r.set.Reconcile(desired)
	r.emit()
}

func (r *Roster) openMember(uid string) store.CancelFunc {
	return r.gw.SubscribeDoc(models.MembersCol(r.projectID), uid,
		func(doc *store.Document) { r.onMemberDoc(uid, doc) },
		func(err error) { r.onMemberErr(uid, err) },
	)
}

func (r *Roster) onMemberDoc(uid string, doc *store.Document) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	// A per-member snapshot may arrive after the upstream dropped the
	// uid; ignore it rather than resurrect the entry.
	if _, ok := r.entries[uid]; !ok {
		r.mu.Unlock()
		return
	}
	if doc != nil {
		var m models.Member
		if err := doc.Decode(&m); err == nil {
			m.UID = uid
			if m.Role == "" {
				m.Role = r.entries[uid].Role
			}
			r.entries[uid] = m
		}
	}
	r.mu.Unlock()

	r.emit()
}

// onMemberErr degrades gracefully: the member is dropped from the
// roster, everything else stays live.
func (r *Roster) onMemberErr(uid string, err error) {
	log.Printf("[Roster] member subscription failed, omitting %s: %v", uid, err)
	r.mu.Lock()
	delete(r.entries, uid)
	r.mu.Unlock()
	r.emit()
}

func (r *Roster) onUpstreamErr(err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.err = err
	r.direct = make(map[string]struct{})
	r.flat = make(map[string]struct{})
	r.entries = make(map[string]models.Member)
	r.mu.Unlock()

	r.set.Reconcile(map[string]struct{}{})
	r.emit()
}

func (r *Roster) emit() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	snap := r.snapshotLocked()
	cb := r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

func (r *Roster) snapshotLocked() RosterSnapshot {
	out := make([]RosterEntry, 0, len(r.entries))
	for _, m := range r.entries {
		entry := RosterEntry{
			UID:         m.UID,
			Role:        m.Role,
			DisplayName: DisplayLabel(m.DisplayName, m.UID),
		}
		if !m.JoinedAt.IsZero() {
			entry.JoinedAt = m.JoinedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role == models.RoleOwner
		}
		a, b := strings.ToLower(out[i].DisplayName), strings.ToLower(out[j].DisplayName)
		if a != b {
			return a < b
		}
		return out[i].UID < out[j].UID
	})
	return RosterSnapshot{Members: out, Err: r.err}
}

// DisplayLabel resolves a member's display name, falling back to the
// truncated identifier when none is set.
func DisplayLabel(name, uid string) string {
	if name != "" {
		return name
	}
	if len(uid) > 6 {
		uid = uid[:6]
	}
	return uid
}
