package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/realtime"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

// WSHandler upgrades authenticated clients onto live feeds. A project
// feed follows one project: the current month's expenses, the member
// roster and the contribution breakdown, re-pushed on every change. A
// home feed follows the caller's project list.
type WSHandler struct {
	M        *melody.Melody
	GW       store.Gateway
	Projects *services.ProjectService
}

func NewWSHandler(gw store.Gateway, projects *services.ProjectService) *WSHandler {
	m := melody.New()
	m.Config.MaxMessageSize = 1024 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &WSHandler{M: m, GW: gw, Projects: projects}

	m.HandleConnect(h.onConnect)
	m.HandleDisconnect(h.onDisconnect)
	m.HandleMessage(h.onMessage)
	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket error: %v", err)
	})

	return h
}

type wsFeed interface {
	Push()
	Advance(delta int)
	Close()
}

type clientCommand struct {
	Type  string `json:"type"`
	Delta int    `json:"delta"`
}

// HandleProjectWS upgrades GET /ws/projects/:id. Browsers cannot set
// headers on WebSocket dials, so the access token rides in ?token=.
func (h *WSHandler) HandleProjectWS(c *gin.Context) {
	claims, err := utils.ParseAccessToken(c.Query("token"))
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid or expired token"})
		return
	}

	projectID := c.Param("id")
	if err := h.Projects.RequireMember(c.Request.Context(), projectID, claims.UserID); err != nil {
		c.JSON(403, gin.H{"error": "Not a member of this project"})
		return
	}

	currency := "ARS"
	if p, err := h.Projects.Get(c.Request.Context(), projectID); err == nil {
		currency = p.Currency
	}

	keys := map[string]interface{}{
		"project_id": projectID,
		"user_id":    claims.UserID,
		"currency":   currency,
	}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// HandleHomeWS upgrades GET /ws/home.
func (h *WSHandler) HandleHomeWS(c *gin.Context) {
	claims, err := utils.ParseAccessToken(c.Query("token"))
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid or expired token"})
		return
	}

	keys := map[string]interface{}{
		"user_id": claims.UserID,
		"home":    true,
	}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

func (h *WSHandler) onConnect(s *melody.Session) {
	uid, _ := s.Get("user_id")

	if pid, ok := s.Get("project_id"); ok {
		projectID, _ := pid.(string)
		currency, _ := s.Get("currency")
		cur, _ := currency.(string)

		s.Set("feed", newProjectFeed(h.GW, s, projectID, cur))
		utils.LogWS("connect", projectID, uid.(string))
		return
	}

	if _, ok := s.Get("home"); ok {
		s.Set("feed", newHomeFeed(h.GW, s, uid.(string)))
		utils.LogWS("connect", "home", uid.(string))
	}
}

func (h *WSHandler) onDisconnect(s *melody.Session) {
	if v, ok := s.Get("feed"); ok {
		if f, ok := v.(wsFeed); ok {
			f.Close()
		}
	}
	pid, _ := s.Get("project_id")
	log.Printf("🔌 Client disconnected: %v", pid)
}

func (h *WSHandler) onMessage(s *melody.Session, msg []byte) {
	v, ok := s.Get("feed")
	if !ok {
		return
	}
	f, ok := v.(wsFeed)
	if !ok {
		return
	}

	var cmd clientCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return
	}
	switch cmd.Type {
	case "month":
		f.Advance(cmd.Delta)
	case "refresh":
		f.Push()
	}
}

// projectFeed owns one session's live view of a project. The month
// window and the roster each push into the feed; every change rebuilds
// the combined frame so expenses, members and the contribution summary
// always come from the same state.
type projectFeed struct {
	sess      *melody.Session
	projectID string
	currency  string

	window *realtime.MonthWindow
	roster *realtime.Roster

	mu      sync.Mutex
	month   realtime.MonthSnapshot
	members []realtime.RosterEntry
}

type projectFrame struct {
	Type           string                       `json:"type"`
	Period         string                       `json:"period"`
	Expenses       []models.Expense             `json:"expenses"`
	TotalCents     int64                        `json:"totalCents"`
	FormattedTotal string                       `json:"formattedTotal"`
	Members        []realtime.RosterEntry       `json:"members"`
	Summary        realtime.ContributionSummary `json:"summary"`
	Error          string                       `json:"error,omitempty"`
}

func newProjectFeed(gw store.Gateway, s *melody.Session, projectID, currency string) *projectFeed {
	f := &projectFeed{sess: s, projectID: projectID, currency: currency}
	f.roster = realtime.NewRoster(gw, projectID, realtime.RosterFromBoth, f.onRoster)
	f.window = realtime.NewMonthWindow(gw, projectID, time.Now(), f.onMonth)
	return f
}

func (f *projectFeed) onMonth(snap realtime.MonthSnapshot) {
	f.mu.Lock()
	f.month = snap
	f.mu.Unlock()
	f.Push()
}

func (f *projectFeed) onRoster(snap realtime.RosterSnapshot) {
	f.mu.Lock()
	f.members = snap.Members
	f.mu.Unlock()
	f.Push()
}

func (f *projectFeed) Push() {
	f.mu.Lock()
	frame := projectFrame{
		Type:           "project",
		Period:         f.month.Period,
		Expenses:       f.month.Items,
		TotalCents:     f.month.TotalCents,
		FormattedTotal: utils.FormatMoney(f.currency, f.month.TotalCents),
		Members:        f.members,
		Summary:        realtime.Contributions(f.month.Items, f.members),
	}
	if f.month.Err != nil {
		frame.Error = "month subscription failed"
	}
	f.mu.Unlock()

	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = f.sess.Write(b)
}

func (f *projectFeed) Advance(delta int) {
	f.window.Advance(delta)
}

func (f *projectFeed) Close() {
	f.window.Close()
	f.roster.Close()
}

// homeFeed streams the caller's project list: shared projects live via
// the flat index, owned projects fetched on every push.
type homeFeed struct {
	sess   *melody.Session
	gw     store.Gateway
	uid    string
	shared *realtime.SharedProjects
}

func newHomeFeed(gw store.Gateway, s *melody.Session, uid string) *homeFeed {
	f := &homeFeed{sess: s, gw: gw, uid: uid}
	f.shared = realtime.NewSharedProjects(gw, uid, realtime.SharedViaFlatIndex, func([]models.ProjectListItem) {
		f.Push()
	})
	// The initial emission fires before f.shared is assigned and is
	// swallowed by the guard in Push, so push once here.
	f.Push()
	return f
}

func (f *homeFeed) Push() {
	if f.shared == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	owned, err := realtime.FetchOwnedProjects(ctx, f.gw, f.uid)
	if err != nil {
		owned = nil
	}
	shared := f.shared.Snapshot()

	seen := make(map[string]struct{}, len(owned))
	projects := make([]models.ProjectListItem, 0, len(owned)+len(shared))
	for _, p := range owned {
		seen[p.ID] = struct{}{}
		projects = append(projects, p)
	}
	for _, p := range shared {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		projects = append(projects, p)
	}

	b, err := json.Marshal(gin.H{"type": "projects", "projects": projects})
	if err != nil {
		return
	}
	_ = f.sess.Write(b)
}

func (f *homeFeed) Advance(int) {}

func (f *homeFeed) Close() {
	f.shared.Close()
}
