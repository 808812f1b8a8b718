package realtime

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

// SharedStrategy selects how the projects a user belongs to are
// discovered: through a collection-group query over every project's
// members subcollection, or through the flat reverse index.
type SharedStrategy int

const (
	SharedViaGroup SharedStrategy = iota
	SharedViaFlatIndex
)

// SharedProjects keeps a live list of the active projects a user is a
// member of. The upstream id set drives one live project-document
// subscription per project; archived or vanished projects drop out.
type SharedProjects struct {
	gw  store.Gateway
	uid string

	mu       sync.Mutex
	projects map[string]models.ProjectListItem
	ids      map[string]struct{}
	closed   bool
	onChange func([]models.ProjectListItem)

	set      *SubscriptionSet
	upstream store.CancelFunc
}

func NewSharedProjects(gw store.Gateway, uid string, strategy SharedStrategy, onChange func([]models.ProjectListItem)) *SharedProjects {
	s := &SharedProjects{
		gw:       gw,
		uid:      uid,
		projects: make(map[string]models.ProjectListItem),
		ids:      make(map[string]struct{}),
		onChange: onChange,
	}
	s.set = NewSubscriptionSet(s.openProject)

	q := store.Query{
		Collection: models.FlatMembersCol,
		Filters:    []store.Filter{{Field: "uid", Value: uid}},
	}
	if strategy == SharedViaGroup {
		q = store.Query{
			Group:   models.MembersGroup,
			Filters: []store.Filter{{Field: "uid", Value: uid}},
		}
	}
	s.upstream = gw.Subscribe(q, s.onUpstream, func(err error) {
		log.Printf("[SharedProjects] upstream query failed for %s: %v", uid, err)
	})
	return s
}

func (s *SharedProjects) Snapshot() []models.ProjectListItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SharedProjects) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	upstream := s.upstream
	s.upstream = nil
	s.mu.Unlock()

	if upstream != nil {
		upstream()
	}
	s.set.Close()
}

func (s *SharedProjects) onUpstream(docs []store.Document) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.ids = make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if id := projectIDOf(d); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	for id := range s.projects {
		if _, ok := s.ids[id]; !ok {
			delete(s.projects, id)
		}
	}
	desired := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		desired[id] = struct{}{}
	}
	s.mu.Unlock()

	s.set.Reconcile(desired)
	s.emit()
}

// projectIDOf extracts the owning project id from an upstream row:
// either the parent of a members subcollection document or the
// projectId field of a flat-index entry.
func projectIDOf(d store.Document) string {
	if strings.HasSuffix(d.Collection, "/"+models.MembersGroup) {
		parts := strings.Split(d.Collection, "/")
		if len(parts) >= 2 {
			return parts[len(parts)-2]
		}
		return ""
	}
	if v, ok := d.Data["projectId"].(string); ok {
		return v
	}
	return ""
}

func (s *SharedProjects) openProject(id string) store.CancelFunc {
	return s.gw.SubscribeDoc(models.ProjectsCol, id,
		func(doc *store.Document) { s.onProjectDoc(id, doc) },
		func(err error) {
			log.Printf("[SharedProjects] project doc subscription failed for %s: %v", id, err)
		},
	)
}

func (s *SharedProjects) onProjectDoc(id string, doc *store.Document) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.ids[id]; !ok {
		s.mu.Unlock()
		return
	}

	if doc == nil {
		// membership row exists but the project is gone
		delete(s.projects, id)
	} else {
		var p models.Project
		if err := doc.Decode(&p); err != nil || p.Status == models.ProjectArchived {
			delete(s.projects, id)
		} else {
			s.projects[id] = models.ProjectListItem{
				ID:        id,
				Name:      p.Name,
				Currency:  p.Currency,
				Role:      models.RoleMember,
				IconEmoji: p.IconEmoji,
			}
		}
	}
	s.mu.Unlock()

	s.emit()
}

func (s *SharedProjects) emit() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	items := s.snapshotLocked()
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(items)
	}
}

func (s *SharedProjects) snapshotLocked() []models.ProjectListItem {
	out := make([]models.ProjectListItem, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FetchOwnedProjects lists the projects a user owns, one-shot.
func FetchOwnedProjects(ctx context.Context, gw store.Gateway, uid string) ([]models.ProjectListItem, error) {
	docs, err := gw.Query(ctx, store.Query{
		Collection: models.ProjectsCol,
		Filters:    []store.Filter{{Field: "ownerUid", Value: uid}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectListItem, 0, len(docs))
	for _, d := range docs {
		var p models.Project
		if err := d.Decode(&p); err != nil {
			continue
		}
		if p.Status == models.ProjectArchived {
			continue
		}
		out = append(out, models.ProjectListItem{
			ID:        d.ID,
			Name:      p.Name,
			Currency:  p.Currency,
			Role:      models.RoleOwner,
			IconEmoji: p.IconEmoji,
		})
	}
	return out, nil
}

// FetchSharedProjects lists the active projects a user belongs to,
// one-shot, using the chosen discovery strategy.
func FetchSharedProjects(ctx context.Context, gw store.Gateway, uid string, strategy SharedStrategy) ([]models.ProjectListItem, error) {
	q := store.Query{
		Collection: models.FlatMembersCol,
		Filters:    []store.Filter{{Field: "uid", Value: uid}},
	}
	if strategy == SharedViaGroup {
		q = store.Query{
			Group:   models.MembersGroup,
			Filters: []store.Filter{{Field: "uid", Value: uid}},
		}
	}
	rows, err := gw.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	var out []models.ProjectListItem
	seen := make(map[string]struct{})
	for _, row := range rows {
		id := projectIDOf(row)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		doc, err := gw.Get(ctx, models.ProjectsCol, id)
		if err != nil {
			continue
		}
		var p models.Project
		if err := doc.Decode(&p); err != nil || p.Status == models.ProjectArchived {
			continue
		}
		out = append(out, models.ProjectListItem{
			ID:        id,
			Name:      p.Name,
			Currency:  p.Currency,
			Role:      models.RoleMember,
			IconEmoji: p.IconEmoji,
		})
	}
	return out, nil
}
