// Package gameserver speaks the game server's websocket protocol: API-key
// authentication, JSON event frames, and reconnection. It is a thin adapter
// between the wire and the engine.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fourmind/internal/session"
)

const reconnectDelay = 5 * time.Second

// Handler receives game events decoded from the server stream.
type Handler interface {
	StartGame(gameID int64, bot string, players []string, language string) error
	OnMessage(gameID int64, sender, text string) (string, bool)
	EndGame(gameID int64)
}

// errRejected marks a fatal credential rejection; no reconnect is attempted.
var errRejected = errors.New("api key rejected by server")

type authFrame struct {
	APIKey   string `json:"api_key"`
	BotName  string `json:"bot_name"`
	Language string `json:"languages"`
}

type frame struct {
	Type     string   `json:"type"`
	GameID   int64    `json:"game_id,omitempty"`
	Bot      string   `json:"bot,omitempty"`
	Players  []string `json:"players,omitempty"`
	Language string   `json:"language,omitempty"`
	Player   string   `json:"player,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Client maintains the websocket connection to the game server and
// dispatches frames to the handler.
type Client struct {
	url      string
	apiKey   string
	botName  string
	language string
	handler  Handler
	log      zerolog.Logger

	mu   sync.Mutex // serializes writes; gorilla allows one concurrent writer
	conn *websocket.Conn
}

func New(url, apiKey, botName, language string, handler Handler, log zerolog.Logger) *Client {
	return &Client{
		url:      url,
		apiKey:   apiKey,
		botName:  botName,
		language: language,
		handler:  handler,
		log:      log.With().Str("component", "gameserver").Logger(),
	}
}

// Run connects and processes frames until ctx is cancelled or the server
// rejects the credentials. Lost connections are retried with a fixed
// back-off.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Debug().Err(err).Msg("connection refused, retry")
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		c.log.Info().Msg("connected, checking api key")

		c.setConn(conn)
		err = c.serve(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()

		if errors.Is(err, errRejected) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Debug().Err(err).Msg("connection lost, reconnecting")
		if !c.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	auth, err := json.Marshal(authFrame{APIKey: c.apiKey, BotName: c.botName, Language: c.language})
	if err != nil {
		return fmt.Errorf("encode auth frame: %w", err)
	}
	if err := c.write(websocket.TextMessage, auth); err != nil {
		return fmt.Errorf("send auth frame: %w", err)
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.ClosePolicyViolation {
				c.log.Error().Str("reason", ce.Text).Msg("server rejected credentials, check your api key")
				return errRejected
			}
			return err
		}
		c.dispatch(ctx, f)
	}
}

func (c *Client) dispatch(ctx context.Context, f frame) {
	switch f.Type {
	case "start":
		if err := c.handler.StartGame(f.GameID, f.Bot, f.Players, f.Language); err != nil {
			c.log.Error().Err(err).Str("game", session.AnonymizeID(f.GameID)).Msg("failed to start game")
		}
	case "message":
		// The reply path sleeps for the simulated writing time; handle it off
		// the read loop so other games keep flowing.
		go func() {
			if resp, ok := c.handler.OnMessage(f.GameID, f.Player, f.Message); ok {
				if err := c.SendGameMessage(f.GameID, resp); err != nil {
					c.log.Error().Err(err).Str("game", session.AnonymizeID(f.GameID)).Msg("failed to send reply")
				}
			}
		}()
	case "end":
		c.handler.EndGame(f.GameID)
	case "info":
		c.log.Debug().Str("message", f.Message).Msg("server info")
	default:
		c.log.Warn().Str("type", f.Type).Msg("unknown frame type")
	}
}

// SendGameMessage delivers one bot message into a game.
func (c *Client) SendGameMessage(gameID int64, text string) error {
	data, err := json.Marshal(frame{Type: "message", GameID: gameID, Message: text})
	if err != nil {
		return fmt.Errorf("encode message frame: %w", err)
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) sleep(ctx context.Context) bool {
	timer := time.NewTimer(reconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
