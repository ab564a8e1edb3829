package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiesman99/tilex/internal/api"
	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed for the client to send the image.
	uploadWait = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamExtraction runs an extraction over a WebSocket. The client sends the
// image as a single binary message and receives start, progress and the
// terminal result or error as JSON messages.
func (s *Server) StreamExtraction(w http.ResponseWriter, r *http.Request) {
	params, err := api.BindExtractParams(r)
	if err != nil {
		s.HandleParamError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.maxImageBytes)
	conn.SetReadDeadline(time.Now().Add(uploadWait))

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			s.logger.Printf("WebSocket read error: %v", err)
		}
		return
	}
	if messageType != websocket.BinaryMessage {
		s.streamError(conn, errors.New("expected the image as a binary message"))
		return
	}

	src, _, err := tile.DecodeImageLimited(data, s.maxImagePixels)
	if err != nil {
		s.streamError(conn, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client sends nothing more; a read error means it has gone away.
	conn.SetReadDeadline(time.Time{})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	events, err := extractor.Start(ctx, extractorOptions(src, params))
	if err != nil {
		s.streamError(conn, err)
		return
	}

	for e := range events {
		msg := api.StreamMessage{Action: e.Kind.String()}

		switch e.Kind {
		case extractor.EventProgress:
			progress := e.Progress
			msg.Progress = &progress
		case extractor.EventResult:
			extraction := s.store.Add(e.Result).Extraction()
			msg.Extraction = &extraction
		case extractor.EventFailed:
			message := e.Err.Error()
			msg.Message = &message
		}

		if err := writeMessage(conn, msg); err != nil {
			s.logger.Printf("WebSocket write error: %v", err)
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) streamError(conn *websocket.Conn, err error) {
	message := err.Error()
	msg := api.StreamMessage{Action: api.ActionError, Message: &message}
	if err := writeMessage(conn, msg); err != nil {
		s.logger.Printf("WebSocket write error: %v", err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func writeMessage(conn *websocket.Conn, msg api.StreamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
