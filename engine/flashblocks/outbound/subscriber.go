package outbound

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// subscriber is a single websocket connection receiving flashblocks.
//
// Messages are handed over through a bounded buffer and written by a dedicated writer
// routine, so publishing never blocks on a slow connection. Once closed, a subscriber
// never reopens.
type subscriber struct {
	id     uuid.UUID
	log    zerolog.Logger
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	closed error
}

func newSubscriber(log zerolog.Logger, conn *websocket.Conn, bufferSize int) *subscriber {
	id := uuid.New()
	return &subscriber{
		id:   id,
		log:  log.With().Str("subscriber_id", id.String()).Str("remote", conn.RemoteAddr().String()).Logger(),
		conn: conn,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

// enqueue hands a message to the writer routine. Returns false if the buffer is full
// or the subscriber is closed.
func (s *subscriber) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// close sends a close frame and tears down the connection. Only the first call has an effect;
// all calls return the error of tearing down the connection.
func (s *subscriber) close(code int, reason string) error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(WriteWait))
		err := s.conn.Close()
		if err != nil {
			s.closed = fmt.Errorf("failed to close connection of subscriber %s: %w", s.id, err)
		}
	})
	return s.closed
}

// run serves the connection until it fails or the subscriber is closed.
func (s *subscriber) run() error {
	err := s.conn.SetReadDeadline(time.Now().Add(PongWait))
	if err != nil {
		return fmt.Errorf("failed to set the initial read deadline: %w", err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	var g errgroup.Group
	g.Go(s.writeMessages)
	g.Go(s.keepalive)
	g.Go(s.readMessages)
	return g.Wait()
}

// writeMessages writes buffered messages to the connection.
func (s *subscriber) writeMessages() error {
	defer s.close(websocket.CloseNormalClosure, "")

	for {
		select {
		case <-s.done:
			return nil
		case msg := <-s.send:
			err := s.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err != nil {
				return fmt.Errorf("failed to set the write deadline: %w", err)
			}
			err = s.conn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				return fmt.Errorf("failed to write message: %w", err)
			}
		}
	}
}

// keepalive pings the subscriber periodically.
func (s *subscriber) keepalive() error {
	defer s.close(websocket.CloseNormalClosure, "")

	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case <-ticker.C:
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait))
			if err != nil {
				return fmt.Errorf("error sending ping: %w", err)
			}
		}
	}
}

// readMessages discards everything the subscriber sends. Reading is required to process
// control frames and to detect a closed connection.
func (s *subscriber) readMessages() error {
	defer s.close(websocket.CloseNormalClosure, "")

	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				s.log.Debug().Int("code", closeErr.Code).Msg("subscriber closed connection")
				return nil
			}
			return fmt.Errorf("error reading message: %w", err)
		}
	}
}
