// Package protocol defines the websocket wire format.
//
// Every frame is an envelope {"t": type, "d": payload}. Text frames carry
// JSON; clients that connect with ?fmt=msgpack receive binary msgpack frames
// with the same keys. Hot-path payloads (tick snapshots) use single-character
// keys and coordinates rounded to one decimal place to keep frames small.
package protocol

// Client -> server message types
const (
	MsgJoin  = "join"  // {"color"?, "name"?}
	MsgDir   = "dir"   // {"x","y"} target point or {"a"} heading
	MsgBoost = "boost" // {"on"}; server -> client it carries a boost pellet
	MsgEat   = "eat"   // {"foodId"}
	MsgDied  = "died"  // {"killedBy"?}; server -> client it announces a death
	MsgPing  = "ping"  // {"n"}
)

// Server -> client message types
const (
	MsgState  = "state"
	MsgJoined = "joined"
	MsgTick   = "tick"
	MsgEaten  = "eaten"
	MsgLeft   = "left"
	MsgStats  = "stats"
	MsgPong   = "pong"
	MsgError  = "error"
)

// JoinReq asks for a snake. Empty fields get server defaults.
type JoinReq struct {
	Color string `json:"color,omitempty"`
	Name  string `json:"name,omitempty"`
}

// DirReq steers toward a world point (X and Y) or a heading (A).
// The target point wins when both are present.
type DirReq struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	A *float64 `json:"a,omitempty"`
}

// BoostReq turns boosting on or off.
type BoostReq struct {
	On bool `json:"on"`
}

// EatReq claims a pellet the client saw its head touch.
type EatReq struct {
	FoodID string `json:"foodId"`
}

// DiedReq reports the client's own death.
type DiedReq struct {
	KilledBy string `json:"killedBy,omitempty"`
}

// PingReq is echoed back as a PongMsg.
type PingReq struct {
	N int64 `json:"n"`
}

// SnakeDTO is the compact snake sent in snapshots.
// Segments are flat [x,y] pairs, head first, possibly truncated.
type SnakeDTO struct {
	ID       string       `json:"i"`
	Name     string       `json:"n"`
	Color    string       `json:"c"`
	Score    int          `json:"p"`
	Length   int          `json:"l"` // full length, even when Segments is truncated
	Angle    float64      `json:"a"`
	Width    float64      `json:"w"` // head radius
	Boosting int          `json:"b,omitempty"`
	Bot      int          `json:"o,omitempty"`
	Segments [][2]float64 `json:"s"`
}

// FoodDTO is the compact pellet.
type FoodDTO struct {
	ID    string  `json:"i"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"r"`
	Value int     `json:"v"`
	Color string  `json:"c"`
	Kind  int     `json:"k"` // 0 ambient, 1 boost trail, 2 death drop
}

// LeaderEntry is one leaderboard row.
type LeaderEntry struct {
	ID    string `json:"i"`
	Name  string `json:"n"`
	Score int    `json:"p"`
}

// WorldInfo describes the arena to a joining client.
type WorldInfo struct {
	Width    float64 `json:"w"`
	Height   float64 `json:"h"`
	TickRate int     `json:"r"`
}

// StateMsg is the full snapshot sent once after join.
type StateMsg struct {
	You         string        `json:"you"`
	World       WorldInfo     `json:"world"`
	Tick        uint64        `json:"tick"`
	Snakes      []SnakeDTO    `json:"s"`
	Food        []FoodDTO     `json:"f"`
	Leaderboard []LeaderEntry `json:"l"`
}

// TickMsg is the per-tick snapshot. Food travels as a delta.
type TickMsg struct {
	Tick        uint64        `json:"n"`
	Snakes      []SnakeDTO    `json:"s"`
	Leaderboard []LeaderEntry `json:"l"`
	FoodAdded   []FoodDTO     `json:"fa,omitempty"`
	FoodRemoved []string      `json:"fr,omitempty"`
	Minimap     []MinimapDot  `json:"m,omitempty"` // only in viewport-culled ticks
}

// MinimapDot is a lightweight snake position for the minimap.
type MinimapDot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"c"`
	Width float64 `json:"w"`
}

// EatenMsg announces a consumed pellet and its replacement.
type EatenMsg struct {
	FoodID   string   `json:"foodId"`
	NewFood  *FoodDTO `json:"newFood,omitempty"`
	PlayerID string   `json:"playerId"`
	NewScore int      `json:"newScore"`
}

// BoostMsg announces a pellet shed by a boosting snake.
type BoostMsg struct {
	PlayerID string  `json:"playerId"`
	Food     FoodDTO `json:"food"`
}

// DiedMsg announces a death and the pellets its body left behind.
type DiedMsg struct {
	PlayerID string    `json:"playerId"`
	KillerID string    `json:"killerId,omitempty"`
	NewFood  []FoodDTO `json:"newFood"`
}

// LeftMsg announces a snake removed without dying: a disconnect or a retired bot.
type LeftMsg struct {
	ID string `json:"id"`
}

// StatsMsg is the end-of-life summary sent to the player who died.
type StatsMsg struct {
	FinalScore      int     `json:"finalScore"`
	FinalLength     int     `json:"finalLength"`
	Kills           int     `json:"kills"`
	GameTime        float64 `json:"gameTime"` // seconds
	BestScore       int     `json:"bestScore"`
	GamesPlayed     int     `json:"gamesPlayed"`
	TotalScore      int64   `json:"totalScore"`
	TotalKills      int     `json:"totalKills"`
	TotalDeaths     int     `json:"totalDeaths"`
	TotalTimePlayed float64 `json:"totalTimePlayed"` // seconds
	NewRecord       bool    `json:"newRecord"`
}

// PongMsg answers a ping.
type PongMsg struct {
	N          int64 `json:"n"`
	ServerTime int64 `json:"st"` // unix millis
}

// ErrorMsg reports a refused request.
type ErrorMsg struct {
	Msg string `json:"msg"`
}
