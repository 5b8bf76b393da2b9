package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// TranscriptionProcessor handles transcription updates received over a socket
type TranscriptionProcessor interface {
	ProcessTranscription(ctx context.Context, update model.TranscriptionUpdate) (*model.TranscriptionResponse, error)
}

// SessionSource reports the active YouTube session
type SessionSource interface {
	CurrentSession(ctx context.Context) (*model.VideoSession, error)
}

type inboundMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// ServeSession runs /ws/{session_id}. Transcription updates go through
// processor, which publishes any fact-check to the whole session group.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string, processor TranscriptionProcessor) {
	conn, err := h.Upgrade(w, r, sessionID)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	ctx := r.Context()
	conn.ReadLoop(func(data []byte) {
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Send(Message{Type: TypeError, Message: "invalid JSON"})
			return
		}

		switch msg.Type {
		case TypeTranscriptionUpdate:
			update := model.TranscriptionUpdate{
				Text:      msg.Text,
				IsFinal:   msg.IsFinal,
				SessionID: sessionID,
				Timestamp: time.Now().UTC(),
			}
			if _, err := processor.ProcessTranscription(ctx, update); err != nil {
				h.logger.Error("websocket transcription failed", zap.String("session_id", sessionID), zap.Error(err))
				conn.Send(Message{Type: TypeError, Message: "transcription processing error"})
			}
		case TypePing:
			conn.Send(Message{Type: TypePong})
		default:
			h.logger.Debug("ignoring websocket message", zap.String("type", msg.Type))
		}
	})
}

// ServeYouTube runs /ws/youtube-live. The current session, if any, is sent
// on connect; later updates arrive through broadcasts to YouTubeGroup.
func (h *Hub) ServeYouTube(w http.ResponseWriter, r *http.Request, sessions SessionSource) {
	conn, err := h.Upgrade(w, r, YouTubeGroup)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("group", YouTubeGroup), zap.Error(err))
		return
	}

	currentSession := func() *model.VideoSession {
		if sessions == nil {
			return nil
		}
		session, err := sessions.CurrentSession(r.Context())
		if err != nil {
			h.logger.Error("load current session", zap.Error(err))
			return nil
		}
		return session
	}

	if session := currentSession(); session != nil {
		conn.Send(Message{Type: TypeVideoChanged, Data: session})
	}

	conn.ReadLoop(func(data []byte) {
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Send(Message{Type: TypeError, Message: "invalid JSON"})
			return
		}

		switch msg.Type {
		case TypePing:
			conn.Send(Message{Type: TypePong})
		case TypeGetCurrentSession:
			// data is null when no video is selected
			conn.Send(currentSessionMessage{Type: TypeCurrentSession, Data: currentSession()})
		}
	})
}

// currentSessionMessage always carries the data key, even when null
type currentSessionMessage struct {
	Type string              `json:"type"`
	Data *model.VideoSession `json:"data"`
}
