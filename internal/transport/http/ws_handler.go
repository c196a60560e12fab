package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

var errMissingParams = errors.New("missing userId and quizId or shareCode")

type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
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

type selectPayload struct {
	Index int `json:"index"`
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

// ServeWS starts an attempt for the connecting player and streams its
// snapshots until the attempt is cancelled or the socket closes. Closing the
// socket mid-attempt cancels it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	req, err := startRequestFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	started, err := h.service.Start(r.Context(), req)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	attemptID := started.AttemptID
	defer func() { _ = h.service.Cancel(context.Background(), attemptID) }()

	updates, cancel, err := h.service.Subscribe(r.Context(), attemptID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
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
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: messageType(snap), Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendError := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid select payload")
				continue
			}
			if _, err := h.service.SelectOption(r.Context(), attemptID, payload.Index); err != nil {
				sendError(err.Error())
			}
		case "text":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid text payload")
				continue
			}
			if _, err := h.service.AnswerText(r.Context(), attemptID, payload.Text); err != nil {
				sendError(err.Error())
			}
		case "proceed":
			if _, err := h.service.Proceed(r.Context(), attemptID); err != nil {
				sendError(err.Error())
			}
		case "cancel":
			if err := h.service.Cancel(r.Context(), attemptID); err != nil {
				sendError(err.Error())
				continue
			}
			// Subscriptions close once the attempt is cancelled or finished.
			select {
			case <-updatesDone:
			case <-writerDone:
			}
			break readLoop
		default:
			sendError("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func messageType(snap domain.AttemptSnapshot) string {
	switch snap.State {
	case "finished":
		return "result"
	case "cancelled":
		return "cancelled"
	default:
		return "state"
	}
}

func startRequestFromQuery(r *http.Request) (app.StartRequest, error) {
	q := r.URL.Query()
	req := app.StartRequest{UserID: q.Get("userId")}
	switch {
	case q.Get("shareCode") != "":
		req.Ref = domain.ByShareCode(q.Get("shareCode"))
	case q.Get("quizId") != "":
		req.Ref = domain.ByID(q.Get("quizId"))
	}
	if req.UserID == "" || (req.Ref == domain.QuizRef{}) {
		return req, errMissingParams
	}
	if q.Has("timeLimit") {
		req.HasTimeLimit = true
		req.TimeLimitMinutes = q.Get("timeLimit")
	}
	req.ShuffleQuestions, _ = strconv.ParseBool(q.Get("shuffleQuestions"))
	req.ShuffleOptions, _ = strconv.ParseBool(q.Get("shuffleOptions"))
	return req, nil
}
