package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// RunnerOptions are the per-deployment runner settings applied to every tab.
type RunnerOptions struct {
	TotalTime         int
	LeaseTTL          time.Duration
	HeartbeatInterval time.Duration
	// Version returns the default bank version token when the tab supplies none.
	Version func() string
}

// WSHandler serves one quiz runner per WebSocket connection. Every connection
// shares the same Storage, the way tabs of one browser share local storage.
type WSHandler struct {
	banks    app.BankRepository
	store    app.Storage
	opts     RunnerOptions
	upgrader websocket.Upgrader
}

func NewWSHandler(banks app.BankRepository, store app.Storage, opts RunnerOptions) *WSHandler {
	if opts.Version == nil {
		opts.Version = func() string { return "" }
	}
	return &WSHandler{
		banks: banks,
		store: store,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type choicePayload struct {
	Choice *int `json:"choice"`
}

type namePayload struct {
	Name string `json:"name"`
}

type togglePayload struct {
	On bool `json:"on"`
}

type textPayload struct {
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionPayload struct {
	TabID     string `json:"tabId"`
	Locked    bool   `json:"locked"`
	PresetKey string `json:"presetKey,omitempty"`
	Version   string `json:"version"`
	Loaded    int    `json:"loaded"`
}

type loadFailedPayload struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

type importedPayload struct {
	Imported int `json:"imported"`
}

// ServeWS upgrades the request and runs a quiz tab until the client disconnects.
//
// Query parameters: tab (stable tab id, generated when absent), student=1
// (locked mode), preset (forced preset), autostart=1, fresh=1, qver (bank version).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := app.RunnerConfig{
		TabID:             q.Get("tab"),
		Locked:            q.Get("student") == "1",
		PresetKey:         q.Get("preset"),
		AutoStart:         q.Get("autostart") == "1",
		FreshStart:        q.Get("fresh") == "1",
		TotalTime:         h.opts.TotalTime,
		LeaseTTL:          h.opts.LeaseTTL,
		HeartbeatInterval: h.opts.HeartbeatInterval,
	}
	if cfg.TabID == "" {
		cfg.TabID = uuid.NewString()
	}
	if cfg.Locked && cfg.PresetKey == "" {
		cfg.PresetKey = domain.FallbackPreset
	}
	version := q.Get("qver")
	if version == "" {
		version = h.opts.Version()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	view := newWSPresenter(64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range view.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	defer func() {
		view.close()
		<-writerDone
	}()

	ctx := r.Context()
	bank, err := h.banks.GetBank(ctx, version)
	if err != nil {
		log.Printf("tab %s: %v", cfg.TabID, err)
		view.LoadFailed(err)
		return
	}

	runner := app.NewRunner(cfg, bank, app.RunnerDeps{
		Storage:   h.store,
		Presenter: view,
	})
	defer runner.Close(context.Background())

	view.push("session", sessionPayload{
		TabID:     cfg.TabID,
		Locked:    cfg.Locked,
		PresetKey: cfg.PresetKey,
		Version:   version,
		Loaded:    len(bank),
	})
	runner.Boot(ctx)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, runner, view, inbound); err != nil {
			view.push("error", errorPayload{Message: err.Error()})
		}
	}
}

var errUnsupported = errors.New("unsupported message type")
var errBadPayload = errors.New("invalid payload")

func (h *WSHandler) dispatch(ctx context.Context, runner *app.Runner, view *wsPresenter, in inboundMessage) error {
	switch in.Type {
	case "start":
		return runner.Start(ctx)
	case "grade", "primary":
		var p choicePayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				return errBadPayload
			}
		}
		choice := app.NoChoice
		if p.Choice != nil {
			choice = *p.Choice
		}
		if in.Type == "primary" {
			return runner.Primary(ctx, choice)
		}
		_, err := runner.Grade(ctx, choice)
		return err
	case "next":
		return runner.Advance(ctx)
	case "retry":
		return runner.RetryWrong(ctx)
	case "back":
		return runner.Back(ctx)
	case "restart":
		return runner.RestartFromZero(ctx)
	case "resume":
		return runner.Resume(ctx)
	case "discard":
		return runner.Discard(ctx)
	case "beginner":
		var p togglePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errBadPayload
		}
		runner.SetBeginner(ctx, p.On)
		return nil
	case "settings":
		s, err := domain.NormalizeSettings(in.Payload)
		if err != nil {
			return errBadPayload
		}
		return runner.ApplySettings(ctx, s)
	case "preset.apply", "preset.save", "preset.delete":
		var p namePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errBadPayload
		}
		switch in.Type {
		case "preset.apply":
			return runner.ApplyPreset(ctx, p.Name)
		case "preset.save":
			return runner.SavePreset(ctx, p.Name)
		default:
			return runner.DeletePreset(ctx, p.Name)
		}
	case "preset.export":
		text, err := runner.ExportPresets(ctx)
		if err != nil {
			return err
		}
		view.push("presets", textPayload{Text: text})
		return nil
	case "preset.import":
		var p textPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errBadPayload
		}
		n, err := runner.ImportPresets(ctx, p.Text)
		if err != nil {
			return err
		}
		view.push("imported", importedPayload{Imported: n})
		return nil
	case "state":
		view.push("state", runner.State())
		return nil
	default:
		return errUnsupported
	}
}

// wsPresenter turns runner callbacks into outbound frames. It never blocks the
// runner: a full buffer drops the frame.
type wsPresenter struct {
	mu     sync.Mutex
	closed bool
	send   chan outboundMessage[any]
}

func newWSPresenter(buffer int) *wsPresenter {
	return &wsPresenter{send: make(chan outboundMessage[any], buffer)}
}

func (p *wsPresenter) push(typ string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	default:
		log.Printf("ws send buffer full, dropping %s", typ)
	}
}

func (p *wsPresenter) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.send)
}

func (p *wsPresenter) Idle(v app.IdleView)           { p.push("idle", v) }
func (p *wsPresenter) Question(v app.QuestionView)   { p.push("question", v) }
func (p *wsPresenter) Feedback(v app.FeedbackView)   { p.push("feedback", v) }
func (p *wsPresenter) Result(res app.Result)         { p.push("result", res) }
func (p *wsPresenter) ResumeChoice(v app.ResumeView) { p.push("resume", v) }
func (p *wsPresenter) TakenOver() {
	p.push("takenOver", errorPayload{Message: domain.ErrTakenOver.Error()})
}
func (p *wsPresenter) Clock(timeLeft int) { p.push("clock", map[string]int{"timeLeft": timeLeft}) }
func (p *wsPresenter) Message(text string, isError bool) {
	p.push("message", map[string]any{"text": text, "error": isError})
}

// LoadFailed reports a fatal bank load error, naming the failing resource when known.
func (p *wsPresenter) LoadFailed(err error) {
	payload := loadFailedPayload{Message: err.Error()}
	var loadErr *domain.BankLoadError
	if errors.As(err, &loadErr) {
		payload.Resource = loadErr.Resource
		payload.Message = loadErr.Err.Error()
	}
	p.push("loadFailed", payload)
}
