// Duelcodex Predictor
//
// Each browser gets a predictor session, identified by cookie. A session
// tracks which cards have been revealed on the table and which age is on
// screen. Every open tab of the session holds a websocket and receives the
// board whenever it changes.
//
// Features:
// - Toggle, age switch and reset over the websocket
// - Photo scan: the face-up cards the model recognises become the revealed
//   cards of that age (full resync, not a merge)
// - At most one scan and one X-ray capture in flight per session
// - Scan cancellation; results of a cancelled scan are discarded
// - X-ray: face-down card positions with a shuffled guess per position,
//   re-rollable without a new model request
// - Sessions auto-reaped after a configurable idle timeout

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`         // "toggle", "set_age", "reset", "cancel_scan", "reshuffle"
	ID   string `json:"id,omitempty"` // toggle
	Age  int    `json:"age,omitempty"` // set_age
}

// BoardMessage carries the full board after any change.
type BoardMessage struct {
	Type  string    `json:"type"` // "board"
	Board BoardView `json:"board"`
}

// ToastMessage is a short notification; Level is "success" or "error".
type ToastMessage struct {
	Type    string `json:"type"` // "toast"
	Level   string `json:"level"`
	Message string `json:"message"`
}

type XrayMessage struct {
	Type string   `json:"type"` // "xray"
	Xray XrayView `json:"xray"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

var errBusy = errors.New("another request of this kind is still running")

type Session struct {
	id      string
	catalog *Catalog

	mu sync.Mutex

	clients    map[*Client]bool
	lastActive time.Time

	age      Age
	revealed RevealSet

	scanGen    uint64
	scanCancel context.CancelFunc

	xrayPhase     XrayPhase
	xrayAge       Age
	xrayPool      []Card
	xrayPositions []Position
	rng           *rand.Rand
}

func newSession(id string, catalog *Catalog) *Session {
	return &Session{
		id:         id,
		catalog:    catalog,
		clients:    make(map[*Client]bool),
		lastActive: time.Now(),
		age:        1,
		revealed:   newRevealSet(),
		xrayPhase:  XrayIdle,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// boardLocked assumes s.mu is already held.
func (s *Session) boardLocked() BoardView {
	board := buildBoard(s.age, s.catalog.Deck(s.age), s.revealed)
	board.Scanning = s.scanCancel != nil
	board.Xray = s.xrayPhase
	return board
}

func (s *Session) Board() BoardView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.boardLocked()
}

// Revealed returns a snapshot of the reveal set.
func (s *Session) Revealed() RevealSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revealed
}

func (s *Session) Age() Age {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.age
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

// sendLocked queues msg for one client, dropping the client if it is not keeping up.
func (s *Session) sendLocked(c *Client, msg any) {
	if !s.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Session) broadcastLocked(msg any) {
	for c := range s.clients {
		s.sendLocked(c, msg)
	}
}

func (s *Session) broadcastBoardLocked() {
	s.broadcastLocked(BoardMessage{Type: "board", Board: s.boardLocked()})
}

func (s *Session) toast(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastLocked(ToastMessage{Type: "toast", Level: level, Message: message})
}

func (s *Session) register(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked()
	s.clients[c] = true
	s.sendLocked(c, BoardMessage{Type: "board", Board: s.boardLocked()})
}

func (s *Session) unregister(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

// Toggle flips one card of the current age deck. Unknown ids are ignored.
func (s *Session) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked()

	for _, c := range s.catalog.Deck(s.age) {
		if c.ID == id {
			s.revealed = s.revealed.Toggled(id)
			s.broadcastBoardLocked()
			return true
		}
	}

	return false
}

func (s *Session) SetAge(age Age) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked()
	s.age = age
	s.broadcastBoardLocked()
}

// Reset forgets every revealed card of every age.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked()
	s.revealed = newRevealSet()
	s.broadcastBoardLocked()
}

// beginScan marks a scan as running and returns its context and generation.
func (s *Session) beginScan(parent context.Context) (context.Context, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanCancel != nil {
		return nil, 0, errBusy
	}

	s.touchLocked()

	ctx, cancel := context.WithCancel(parent)
	s.scanGen++
	s.scanCancel = cancel
	s.broadcastBoardLocked()

	return ctx, s.scanGen, nil
}

// endScan releases the scan slot if gen still owns it.
func (s *Session) endScan(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanGen != gen || s.scanCancel == nil {
		return
	}

	s.scanCancel()
	s.scanCancel = nil
	s.broadcastBoardLocked()
}

// CancelScan aborts the running scan, if any. Its result will be discarded.
func (s *Session) CancelScan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanCancel == nil {
		return false
	}

	s.scanCancel()
	s.scanCancel = nil
	s.scanGen++
	s.broadcastBoardLocked()

	return true
}

// applyScan reconciles the reveal set with a scan result, unless the scan
// was cancelled in the meantime.
func (s *Session) applyScan(gen uint64, res *ScanResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanGen != gen || s.scanCancel == nil {
		return false
	}

	s.touchLocked()
	s.revealed = s.revealed.Reconciled(res.Deck, res.Matched)
	s.broadcastBoardLocked()

	return true
}

// beginXray moves the X-ray flow into capturing.
func (s *Session) beginXray() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.xrayPhase == XrayCapturing {
		return errBusy
	}

	s.touchLocked()
	s.xrayPhase = XrayCapturing
	s.xrayPositions = nil
	s.xrayPool = nil
	s.broadcastBoardLocked()

	return nil
}

// failXray returns a failed capture to idle.
func (s *Session) failXray() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.xrayPhase != XrayCapturing {
		return
	}

	s.xrayPhase = XrayIdle
	s.broadcastBoardLocked()
}

// showXray stores the detected positions and deals the first guess. The
// pool is taken from the reveal set at this moment and then held fixed.
func (s *Session) showXray(positions []Position) (XrayView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.xrayPhase != XrayCapturing {
		return XrayView{}, false
	}

	s.touchLocked()
	s.xrayPhase = XrayShowing
	s.xrayAge = s.age
	s.xrayPool = HiddenCards(s.catalog.Deck(s.age), s.revealed)
	s.xrayPositions = positions

	view := s.dealLocked()
	s.broadcastBoardLocked()

	return view, true
}

func (s *Session) dealLocked() XrayView {
	assigned := AssignHidden(s.xrayPool, s.xrayPositions, s.rng)
	return newXrayView(s.xrayPhase, s.xrayAge, s.xrayPool, s.xrayPositions, assigned)
}

// Reshuffle deals a new guess for the same positions without asking the model again.
func (s *Session) Reshuffle() (XrayView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.xrayPhase != XrayShowing {
		return XrayView{}, false
	}

	s.touchLocked()
	view := s.dealLocked()
	s.broadcastLocked(XrayMessage{Type: "xray", Xray: view})

	return view, true
}

// CloseXray returns the X-ray flow to idle from any state.
func (s *Session) CloseXray() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked()
	s.xrayPhase = XrayIdle
	s.xrayPool = nil
	s.xrayPositions = nil
	s.broadcastBoardLocked()
}

// closeAll disconnects all clients of this session (used by reaper).
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}

	for c := range s.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(s.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const sessionCookieName = "duelcodex_id"

func getOrSetSessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// SessionManager holds the predictor sessions keyed by cookie.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	catalog     *Catalog
	idleTimeout time.Duration
}

func newSessionManager(catalog *Catalog, idleTimeout time.Duration) *SessionManager {
	sm := &SessionManager{
		sessions:    make(map[string]*Session),
		catalog:     catalog,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go sm.reaperLoop()
	}
	return sm
}

func (sm *SessionManager) get(id string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.sessions[id]; ok {
		return s
	}

	s := newSession(id, sm.catalog)
	sm.sessions[id] = s
	return s
}

func (sm *SessionManager) fromRequest(w http.ResponseWriter, r *http.Request) *Session {
	return sm.get(getOrSetSessionID(w, r))
}

// reapInterval never drops below a second, however short idleTimeout is.
func (sm *SessionManager) reapInterval() time.Duration {
	return max(sm.idleTimeout/2, time.Second)
}

// reaperLoop periodically removes sessions that have been idle longer than idleTimeout.
func (sm *SessionManager) reaperLoop() {
	ticker := time.NewTicker(sm.reapInterval())
	for range ticker.C {
		sm.reap(time.Now().Add(-sm.idleTimeout))
	}
}

func (sm *SessionManager) reap(cutoff time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, s := range sm.sessions {
		s.mu.Lock()
		last := s.lastActive
		s.mu.Unlock()

		if last.Before(cutoff) {
			delete(sm.sessions, id)
			go s.closeAll()
		}
	}
}

// credential prefers the key stored in the browser over the server fallback.
func credential(cfg *Config, r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Gemini-Key")); key != "" {
		return key
	}
	return cfg.apiKey
}

// maskKey shows just enough of a key to tell keys apart.
func maskKey(key string) string {
	if len(key) <= 10 {
		return "•••"
	}
	return key[:6] + "•••" + key[len(key)-4:]
}

type errorBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Upstream int    `json:"upstream_status,omitempty"`
}

func writeError(cfg *Config, w http.ResponseWriter, err error, errs chan<- error) {
	if errors.Is(err, errBusy) {
		writeJSON(cfg, w, http.StatusConflict, errorBody{Error: "busy", Message: "Запрос уже выполняется"}, errs)
		return
	}

	e := asError(err)

	switch e.Kind {
	case KindUserCancelled:
		logf(cfg, "SCAN: Cancelled")
	case KindNoCredential, KindBadPhoto, KindPhotoTooLarge:
		logf(cfg, "SCAN: Rejected: %v", e)
	case KindNetworkOrHTTP, KindMalformedResponse, KindParseFailure:
		errorf(cfg, "Vision request failed: %v", e)
	}

	writeJSON(cfg, w, e.Kind.httpStatus(), errorBody{
		Error:    e.Kind.String(),
		Message:  e.Message,
		Upstream: e.Status,
	}, errs)
}

func serveBoard(cfg *Config, sm *SessionManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)
		writeJSON(cfg, w, http.StatusOK, s.Board(), errs)
	}
}

func serveScan(cfg *Config, sm *SessionManager, scanner *Scanner, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)

		key := credential(cfg, r)
		if key == "" {
			writeError(cfg, w, errNoCredential, errs)
			return
		}

		photo, err := readPhoto(cfg, w, r)
		if err != nil {
			writeError(cfg, w, err, errs)
			return
		}

		age := s.Age()
		if v := r.FormValue("age"); v != "" {
			age, err = parseAge(v)
			if err != nil {
				writeJSON(cfg, w, http.StatusBadRequest, errorBody{Error: "bad_age", Message: err.Error()}, errs)
				return
			}
		}

		ctx, gen, err := s.beginScan(r.Context())
		if err != nil {
			writeError(cfg, w, err, errs)
			return
		}
		defer s.endScan(gen)

		logf(cfg, "SCAN: Session %s, age %s, key %s, from %s", s.id, age.Label(), maskKey(key), realIP(r))

		res, err := scanner.RecognizeCards(ctx, key, age, photo)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) && r.Context().Err() == nil {
				err = errCancelled
			}
			writeError(cfg, w, err, errs)
			return
		}

		if !s.applyScan(gen, res) {
			writeError(cfg, w, errCancelled, errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, summarizeScan(res), errs)
	}
}

func serveScanCancel(cfg *Config, sm *SessionManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)
		cancelled := s.CancelScan()
		if cancelled {
			s.toast("error", errCancelled.Message)
		}
		writeJSON(cfg, w, http.StatusOK, map[string]bool{"cancelled": cancelled}, errs)
	}
}

func serveXray(cfg *Config, sm *SessionManager, scanner *Scanner, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)

		key := credential(cfg, r)
		if key == "" {
			writeError(cfg, w, errNoCredential, errs)
			return
		}

		photo, err := readPhoto(cfg, w, r)
		if err != nil {
			writeError(cfg, w, err, errs)
			return
		}

		if err := s.beginXray(); err != nil {
			writeError(cfg, w, err, errs)
			return
		}

		positions, err := scanner.LocateFaceDown(r.Context(), key, photo)
		if err != nil {
			s.failXray()
			writeError(cfg, w, err, errs)
			return
		}

		if len(positions) == 0 {
			s.failXray()
			writeJSON(cfg, w, http.StatusOK, newXrayView(XrayIdle, s.Age(), nil, nil, nil), errs)
			return
		}

		view, ok := s.showXray(positions)
		if !ok {
			writeJSON(cfg, w, http.StatusConflict, errorBody{Error: "closed", Message: "X-Ray закрыт"}, errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, view, errs)
	}
}

func serveXrayReshuffle(cfg *Config, sm *SessionManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)

		view, ok := s.Reshuffle()
		if !ok {
			writeJSON(cfg, w, http.StatusConflict, errorBody{Error: "no_capture", Message: "Сначала сделайте снимок"}, errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, view, errs)
	}
}

func serveXrayClose(cfg *Config, sm *SessionManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)
		s.CloseXray()
		w.WriteHeader(http.StatusNoContent)
	}
}

func serveBoardSocket(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s := sm.fromRequest(w, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			debugf(cfg, "WS: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		s.register(client)

		go client.writePump()
		client.readPump(cfg, s)
	}
}

func (c *Client) readPump(cfg *Config, s *Session) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "toggle":
			if !s.Toggle(msg.ID) {
				debugf(cfg, "BOARD: Ignored toggle of %q in session %s", msg.ID, s.id)
			}
		case "set_age":
			age, err := parseAge(Age(msg.Age).String())
			if err != nil {
				continue
			}
			s.SetAge(age)
		case "reset":
			s.Reset()
		case "cancel_scan":
			if s.CancelScan() {
				s.toast("error", errCancelled.Message)
			}
		case "reshuffle":
			if _, ok := s.Reshuffle(); ok {
				s.toast("success", "🔀 Перемешано!")
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func registerPredictor(cfg *Config, catalog *Catalog, mux *httprouter.Router, errs chan<- error) *SessionManager {
	sm := newSessionManager(catalog, cfg.sessionTimeout)
	scanner := newScanner(cfg, catalog)

	mux.GET(cfg.prefix+"/api/predictor", serveBoard(cfg, sm, errs))
	mux.GET(cfg.prefix+"/predictor/ws", serveBoardSocket(cfg, sm))
	mux.POST(cfg.prefix+"/predictor/scan", serveScan(cfg, sm, scanner, errs))
	mux.POST(cfg.prefix+"/predictor/scan/cancel", serveScanCancel(cfg, sm, errs))
	mux.POST(cfg.prefix+"/predictor/xray", serveXray(cfg, sm, scanner, errs))
	mux.POST(cfg.prefix+"/predictor/xray/reshuffle", serveXrayReshuffle(cfg, sm, errs))
	mux.DELETE(cfg.prefix+"/predictor/xray", serveXrayClose(cfg, sm, errs))

	return sm
}
