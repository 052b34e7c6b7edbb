package network

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Fullann/Slither.io/internal/config"
	"github.com/Fullann/Slither.io/internal/protocol"
	"github.com/Fullann/Slither.io/internal/room"
)

// Client is one websocket connection. The room sees it as a room.Conn.
type Client struct {
	id     string
	format protocol.Format
	ws     *websocket.Conn
	room   *room.Room
	hub    *Hub
	ip     string
	cfg    config.NetConfig
	log    *slog.Logger

	mu     sync.Mutex // guards send against Close
	send   chan []byte
	closed bool

	limiter inputLimiter
}

func newClient(ws *websocket.Conn, rm *room.Room, hub *Hub, ip string, format protocol.Format, cfg config.NetConfig, logger *slog.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:      id,
		format:  format,
		ws:      ws,
		room:    rm,
		hub:     hub,
		ip:      ip,
		cfg:     cfg,
		log:     logger.With("conn", id),
		send:    make(chan []byte, cfg.SendBuffer),
		limiter: newInputLimiter(cfg.MaxMessagesPerSec, cfg.InputInterval),
	}
}

func (c *Client) ID() string              { return c.id }
func (c *Client) Format() protocol.Format { return c.format }

// Send queues a frame. Frames for a slow client are dropped.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the socket. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames until the socket fails, then tells the room the
// client left.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		leaveCtx, cancel := context.WithTimeout(ctx, time.Second)
		if err := c.room.Send(leaveCtx, room.Leave{ConnID: c.id}); err != nil || ctx.Err() != nil {
			// The room is gone; nobody else will close us
			c.Close()
		}
		cancel()
		c.hub.Release(c.ip)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		msgType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", "err", err)
			}
			return
		}

		now := time.Now()
		if !c.limiter.allow(now) {
			continue
		}

		format := protocol.FormatJSON
		if msgType == websocket.BinaryMessage {
			format = protocol.FormatMsgpack
		}
		in, err := protocol.DecodeInbound(format, message)
		if err != nil {
			c.log.Debug("bad frame", "err", err)
			continue
		}
		if err := c.dispatch(ctx, in, now); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Debug("bad message", "type", in.T, "err", err)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, in protocol.Inbound, now time.Time) error {
	switch in.T {
	case protocol.MsgJoin:
		req, err := optionalPayload[protocol.JoinReq](in)
		if err != nil {
			return err
		}
		return c.room.Send(ctx, room.Join{ConnID: c.id, Req: req})

	case protocol.MsgDir:
		if !c.limiter.allowDir(now) {
			return nil
		}
		req, err := protocol.DecodePayload[protocol.DirReq](in)
		if err != nil {
			return err
		}
		c.room.Post(room.Steer{ConnID: c.id, Dir: req})

	case protocol.MsgBoost:
		req, err := protocol.DecodePayload[protocol.BoostReq](in)
		if err != nil {
			return err
		}
		c.room.Post(room.Boost{ConnID: c.id, On: req.On})

	case protocol.MsgEat:
		req, err := protocol.DecodePayload[protocol.EatReq](in)
		if err != nil {
			return err
		}
		c.room.Post(room.Eat{ConnID: c.id, FoodID: req.FoodID})

	case protocol.MsgDied:
		req, err := optionalPayload[protocol.DiedReq](in)
		if err != nil {
			return err
		}
		return c.room.Send(ctx, room.Died{ConnID: c.id, KilledBy: req.KilledBy})

	case protocol.MsgPing:
		req, err := optionalPayload[protocol.PingReq](in)
		if err != nil {
			return err
		}
		c.room.Post(room.Ping{ConnID: c.id, N: req.N})

	default:
		c.log.Debug("unknown message type", "type", in.T)
	}
	return nil
}

// optionalPayload decodes the payload, treating a missing one as zero.
func optionalPayload[T any](in protocol.Inbound) (T, error) {
	if len(in.D) == 0 {
		var zero T
		return zero, nil
	}
	return protocol.DecodePayload[T](in)
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	pingPeriod := (c.cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	frameType := websocket.TextMessage
	if c.format == protocol.FormatMsgpack {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
