package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wp-quiz-service/internal/app"
	"wp-quiz-service/internal/domain"
)

// TokenVerifier resolves a session token to a user ID.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// WSHandler bridges browser clients to the quiz session state machine. The
// client streams raw integrity signals (violation/deterrent frames) and
// navigation requests; the server pushes state snapshots and notices.
type WSHandler struct {
	service  *app.SessionService
	tokens   TokenVerifier
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, tokens TokenVerifier) *WSHandler {
	return &WSHandler{
		service: service,
		tokens:  tokens,
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

type startPayload struct {
	QuizType   domain.QuizType        `json:"quizType"`
	Difficulty domain.DifficultyLevel `json:"difficulty"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type signalPayload struct {
	Kind string `json:"kind"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type noticePayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// session use cases. A missing or invalid token yields an anonymous identity
// that can watch the landing state but not start a quiz.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ident := h.identify(r.URL.Query().Get("token"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe(ident.ID)
	// Release must see the subscriber gone, or the idle check keeps the
	// session alive forever. Deferred LIFO: cancel runs first.
	defer h.service.Release(ident.ID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				msg := eventMessage(ev)
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, ident, inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, ident app.Identity, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()
	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload("start"))
			return
		}
		if _, err := h.service.Start(ctx, ident, payload.QuizType, payload.Difficulty); err != nil {
			fail(err)
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload("answer"))
			return
		}
		if _, err := h.service.SelectAnswer(ident.ID, payload.Option); err != nil {
			fail(err)
		}
	case "next":
		if _, err := h.service.Advance(ident.ID); err != nil {
			fail(err)
		}
	case "violation":
		var payload signalPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload("violation"))
			return
		}
		if _, err := h.service.ReportViolation(ctx, ident.ID, domain.ViolationKind(payload.Kind)); err != nil {
			fail(err)
		}
	case "deterrent":
		var payload signalPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload("deterrent"))
			return
		}
		if notice, _ := h.service.Deterrent(ident.ID, payload.Kind); notice != "" {
			send <- outboundMessage[any]{Type: "notice", Payload: noticePayload{Message: notice}}
		}
	case "ack":
		if _, err := h.service.Acknowledge(ident.ID); err != nil {
			fail(err)
		}
	case "restart":
		if _, err := h.service.Restart(ident.ID); err != nil {
			fail(err)
		}
	default:
		fail(errUnsupported(inbound.Type))
	}
}

func (h *WSHandler) identify(token string) app.Identity {
	if token != "" && h.tokens != nil {
		if userID, err := h.tokens.Verify(token); err == nil {
			return app.Identity{ID: userID, Authenticated: true}
		}
	}
	// Anonymous connections still get a session slot so the landing view and
	// error flows work; starting a quiz is refused downstream.
	return app.Identity{ID: "anon-" + uuid.NewString(), Authenticated: false}
}

func eventMessage(ev app.Event) outboundMessage[any] {
	if ev.Notice != "" {
		return outboundMessage[any]{Type: "notice", Payload: noticePayload{Message: ev.Notice}}
	}
	return outboundMessage[any]{Type: "state", Payload: ev.Snapshot}
}

type wsError string

func (e wsError) Error() string { return string(e) }

func errInvalidPayload(kind string) error { return wsError("invalid " + kind + " payload") }
func errUnsupported(kind string) error    { return wsError("unsupported message type " + kind) }
