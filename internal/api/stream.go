package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

const (
	streamPollInterval = 10 * time.Second
	streamWriteTimeout = 5 * time.Second
	pingInterval       = 30 * time.Second
)

// LatestValueSource supplies the most recent index value for streaming.
type LatestValueSource interface {
	LatestIndexValue(ctx context.Context) (*contracts.IndexValueRecord, error)
}

// Stream pushes the latest index value to websocket subscribers. The store
// is polled on an interval and a message goes out only when the value or its
// date changes, so idle weekends stay quiet.
type Stream struct {
	source   LatestValueSource
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewStream creates a new index value stream
func NewStream(source LatestValueSource, log *logger.Logger) *Stream {
	return &Stream{
		source: source,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// streamMessage is one pushed index value update.
type streamMessage struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Handle upgrades the connection and starts the push loop
// GET /ws/index
func (s *Stream) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s.logger.WithField("remote", conn.RemoteAddr().String()).Info("Stream subscriber connected")

	done := make(chan struct{})
	go s.readLoop(conn, done)
	s.pushLoop(r.Context(), conn, done)

	conn.Close()
	s.logger.WithField("remote", conn.RemoteAddr().String()).Info("Stream subscriber disconnected")
}

// readLoop drains client frames so close and pong handling work; the stream
// never expects client payloads.
func (s *Stream) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pushLoop polls the source and writes updates until the client goes away.
func (s *Stream) pushLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	var last streamMessage
	// Send the current value immediately on subscribe.
	if msg, ok := s.fetch(ctx); ok {
		if err := s.write(conn, msg); err != nil {
			return
		}
		last = msg
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-pollTicker.C:
			msg, ok := s.fetch(ctx)
			if !ok || msg == last {
				continue
			}
			if err := s.write(conn, msg); err != nil {
				return
			}
			last = msg
		}
	}
}

func (s *Stream) fetch(ctx context.Context) (streamMessage, bool) {
	record, err := s.source.LatestIndexValue(ctx)
	if err != nil {
		if !errors.Is(err, contracts.ErrEmptyResult) {
			s.logger.WithError(err).Warn("Failed to poll latest index value")
		}
		return streamMessage{}, false
	}
	return streamMessage{
		Date:  record.Date.Format(contracts.DateFormat),
		Value: record.Value,
	}, true
}

func (s *Stream) write(conn *websocket.Conn, msg streamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(msg)
}
