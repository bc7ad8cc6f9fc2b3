package rpc

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pwabuilder/internal/gateway/run"
)

const (
	generationWSWriteWait = 10 * time.Second
	generationWSPongWait  = 60 * time.Second
	generationWSPingEvery = (generationWSPongWait * 9) / 10
)

var generationWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type generationWSInbound struct {
	Type string `json:"type"`
}

type generationWSOutbound struct {
	Type    string     `json:"type"`
	RunID   string     `json:"runId,omitempty"`
	Event   *run.Event `json:"event,omitempty"`
	Code    string     `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

// HandleGenerationWS streams the events of ?run_id= until the run ends or the
// client goes away. Clients may send {"type":"ping"} and get a pong back.
func (h *GenerationHandler) HandleGenerationWS(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	conn, err := generationWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.svc.Subscribe(ctx, runID)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(generationWSWriteWait))
		_ = conn.WriteJSON(generationWSOutbound{Type: "error", Code: "invalid_argument", Message: err.Error()})
		return
	}

	if err := conn.SetReadDeadline(time.Now().Add(generationWSPongWait)); err != nil {
		log.Printf("generation ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(generationWSPongWait))
	})

	writeCh := make(chan generationWSOutbound, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// unblocks the read loop once nothing more will be written
		defer conn.Close()
		ticker := time.NewTicker(generationWSPingEvery)
		defer ticker.Stop()

		write := func(out generationWSOutbound) bool {
			if err := conn.SetWriteDeadline(time.Now().Add(generationWSWriteWait)); err != nil {
				return false
			}
			return conn.WriteJSON(out) == nil
		}

		if !write(generationWSOutbound{Type: "subscribed", RunID: runID}) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					write(generationWSOutbound{Type: "closed", RunID: runID})
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run ended"),
						time.Now().Add(generationWSWriteWait))
					return
				}
				if !write(generationWSOutbound{Type: "event", RunID: runID, Event: &ev}) {
					return
				}
			case out := <-writeCh:
				if !write(out) {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(generationWSWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in generationWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushGenerationWS(writeCh, generationWSOutbound{Type: "pong"})
		default:
			pushGenerationWS(writeCh, generationWSOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		}
	}
}

// pushGenerationWS never blocks; when the buffer is full the oldest queued
// reply is dropped.
func pushGenerationWS(writeCh chan generationWSOutbound, out generationWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
