package room

import (
	"github.com/Fullann/Slither.io/internal/game"
	"github.com/Fullann/Slither.io/internal/protocol"
)

// frames encodes a message at most once per wire format.
type frames struct {
	t       string
	payload any
	enc     [2][]byte
	failed  [2]bool
}

func (f *frames) get(format protocol.Format) ([]byte, error) {
	i := int(format)
	if f.enc[i] != nil || f.failed[i] {
		return f.enc[i], nil
	}
	b, err := protocol.Encode(format, f.t, f.payload)
	if err != nil {
		f.failed[i] = true
		return nil, err
	}
	f.enc[i] = b
	return b, nil
}

// broadcast sends a message to every attached client and returns the number
// of bytes encoded, one frame per format in use.
func (r *Room) broadcast(t string, payload any) int {
	return r.broadcastExcept("", t, payload)
}

// broadcastExcept sends a message to every attached client but skip.
// Every recipient of a format gets the same bytes.
func (r *Room) broadcastExcept(skip, t string, payload any) int {
	f := frames{t: t, payload: payload}
	for id, m := range r.members {
		if id == skip {
			continue
		}
		b, err := f.get(m.conn.Format())
		if err != nil {
			r.log.Error("encoding broadcast", "type", t, "format", m.conn.Format().String(), "err", err)
			continue
		}
		if b == nil {
			continue
		}
		m.conn.Send(b)
	}
	return len(f.enc[0]) + len(f.enc[1])
}

// broadcastTick sends a tick snapshot. With the viewport on, each live player
// gets the snakes around its own head plus minimap dots; spectators and dead
// players share the full frame. msg.Snakes must line up with snakes.
func (r *Room) broadcastTick(msg protocol.TickMsg, snakes []*game.Snake) int {
	vp := r.cfg.Net.Viewport
	if !vp.Enabled {
		return r.broadcast(protocol.MsgTick, msg)
	}

	full := frames{t: protocol.MsgTick, payload: msg}
	minimap := protocol.FromMinimap(snakes)
	halfW, halfH := vp.Width/2+vp.Buffer, vp.Height/2+vp.Buffer
	size := 0
	for id, m := range r.members {
		var own *game.Snake
		if m.alive {
			own, _ = r.world.Snake(id)
		}
		if own == nil {
			b, err := full.get(m.conn.Format())
			if err != nil {
				r.log.Error("encoding tick", "format", m.conn.Format().String(), "err", err)
				continue
			}
			if b != nil {
				m.conn.Send(b)
			}
			continue
		}

		h := own.Head()
		culled := msg
		culled.Snakes = make([]protocol.SnakeDTO, 0, len(msg.Snakes))
		for i, s := range snakes {
			if s.ID == id || s.InView(h.X, h.Y, halfW, halfH) {
				culled.Snakes = append(culled.Snakes, msg.Snakes[i])
			}
		}
		culled.Minimap = minimap
		b, err := protocol.Encode(m.conn.Format(), protocol.MsgTick, culled)
		if err != nil {
			r.log.Error("encoding tick", "format", m.conn.Format().String(), "err", err)
			continue
		}
		m.conn.Send(b)
		size += len(b)
	}
	return size + len(full.enc[0]) + len(full.enc[1])
}

func (r *Room) sendTo(c Conn, t string, payload any) {
	b, err := protocol.Encode(c.Format(), t, payload)
	if err != nil {
		r.log.Error("encoding message", "type", t, "err", err)
		return
	}
	c.Send(b)
}

// unannounced drops pellets that already went out in their own message.
func (r *Room) unannounced(added []*game.Food) []*game.Food {
	out := added[:0]
	for _, fd := range added {
		if _, ok := r.announced[fd.ID]; !ok {
			out = append(out, fd)
		}
	}
	return out
}

func (r *Room) unannouncedIDs(removed []string) []string {
	out := removed[:0]
	for _, id := range removed {
		if _, ok := r.announced[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
