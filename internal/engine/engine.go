// Package engine is the composition root of the bot: it wires the session
// registry, the analysis queues, the generation coordinator and the
// proactive loops into the three game events the server delivers.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fourmind/internal/analysis"
	"fourmind/internal/generation"
	"fourmind/internal/proactive"
	"fourmind/internal/session"
)

// Engine handles game lifecycle events for any number of concurrent games.
// Sessions are fully isolated from each other.
type Engine struct {
	ctx    context.Context
	reg    *session.Registry
	queues *analysis.Manager
	coord  *generation.Coordinator
	loop   *proactive.Loop
	sender proactive.Sender
	log    zerolog.Logger
}

// New builds the engine. The outbound transport is attached later with
// SetTransport because the transport itself dispatches into the engine.
func New(ctx context.Context, reg *session.Registry, queues *analysis.Manager, coord *generation.Coordinator, gen generation.Generator, delay generation.Delayer, cfg proactive.Config, log zerolog.Logger) *Engine {
	e := &Engine{
		ctx:    ctx,
		reg:    reg,
		queues: queues,
		coord:  coord,
		log:    log.With().Str("component", "engine").Logger(),
	}
	e.loop = proactive.NewLoop(reg, gen, delay, queues, e, e.EndGame, cfg, log)
	return e
}

// SetTransport attaches the outbound transport used by proactive messages.
func (e *Engine) SetTransport(s proactive.Sender) { e.sender = s }

// SendGameMessage implements proactive.Sender by delegating to the attached
// transport.
func (e *Engine) SendGameMessage(gameID int64, text string) error {
	if e.sender == nil {
		return nil
	}
	return e.sender.SendGameMessage(gameID, text)
}

// StartGame registers a new session and spins up its analysis worker and
// proactive loop.
func (e *Engine) StartGame(gameID int64, bot string, players []string, language string) error {
	sess := session.New(gameID, bot, players, language)
	if err := e.reg.Add(sess); err != nil {
		return err
	}
	e.queues.AddQueue(e.ctx, sess)

	loopCtx, cancel := context.WithCancel(e.ctx)
	sess.SetProactiveCancel(cancel)
	go e.loop.Run(loopCtx, gameID)

	e.log.Info().Stringer("chat", sess).Strs("players", players).Msg("game started")
	return nil
}

// OnMessage ingests one chat message and runs a response attempt. The
// returned text, if ok, is ready to send; the human-pacing delay has
// already elapsed inside the coordinator.
func (e *Engine) OnMessage(gameID int64, sender, text string) (string, bool) {
	receivedAt := time.Now()

	sess := e.reg.Get(gameID)
	if sess == nil {
		e.log.Error().Str("game", session.AnonymizeID(gameID)).Msg("message for unknown game")
		return "", false
	}

	if sender != sess.Bot() {
		msg := sess.AddMessage(sender, text, receivedAt)
		e.queues.Enqueue(sess, msg.ID)
	}

	resp, ok := e.coord.HandleIncoming(e.ctx, gameID, receivedAt)
	if !ok {
		return "", false
	}

	// Record our own reply. Re-fetch: the game may have ended during the
	// pacing delay, in which case the reply is dropped with it.
	if cur := e.reg.Get(gameID); cur != nil {
		msg := cur.AddMessage(cur.Bot(), resp, time.Now())
		e.queues.Enqueue(cur, msg.ID)
	}
	return resp, true
}

// EndGame tears the session down: deregisters it (which also archives it
// and stops the proactive loop) and drains the analysis queue. Ending an
// already-ended game is a logged no-op.
func (e *Engine) EndGame(gameID int64) {
	sess := e.reg.Remove(gameID)
	if sess == nil {
		return
	}
	sess.CancelProactive()
	e.queues.DequeueAndCancel(sess)
	e.log.Info().Stringer("chat", sess).Msg("game ended")
}

// Shutdown ends every active game, draining and persisting each.
func (e *Engine) Shutdown() {
	for _, id := range e.reg.IDs() {
		e.EndGame(id)
	}
}
