package usecases

import (
	"log"

	"autoforward/internal/entities"
	"autoforward/internal/infrastructure"
	"autoforward/internal/interfaces"
)

// Dispatcher routes one inbound message to every eligible user's targets.
// Stateless between invocations except for the registry it reads; a failure
// for one candidate or one target never affects the others.
type Dispatcher struct {
	registry  *Registry
	connector interfaces.Connector

	// Optional collaborators, wired in main.
	Pacer   interfaces.Pacer           // per-target delivery throttle
	Live    *infrastructure.ForwardStats // in-process counters for the dashboard
	History interfaces.StatsStore      // durable daily counters
}

func NewDispatcher(registry *Registry, connector interfaces.Connector) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		connector: connector,
	}
}

// OnMessage is invoked once per inbound message event.
func (d *Dispatcher) OnMessage(evt *entities.MessageEvent) {
	if evt == nil {
		return
	}
	for _, cfg := range d.registry.CandidatesFor(evt.ChatID) {
		d.forwardFor(cfg, evt)
	}
}

func (d *Dispatcher) forwardFor(cfg *entities.UserConfig, evt *entities.MessageEvent) {
	original := evt.Payload()
	text := Rewrite(cfg, original)

	if !Passes(cfg, text) {
		d.recordDropped(cfg.UserID, 1)
		return
	}

	var delivered int
	for _, target := range cfg.Targets {
		sent, err := d.deliver(cfg, evt, target.ChatID, original, text)
		if err != nil {
			// Logged and dropped; no retries, remaining targets proceed.
			log.Printf("[Dispatcher] user %d: delivery to %d (%s) failed: %v",
				cfg.UserID, target.ChatID, target.Name, err)
			d.recordDropped(cfg.UserID, 1)
			continue
		}
		if sent {
			delivered++
		}
	}
	if delivered > 0 {
		d.recordForwarded(cfg.UserID, delivered)
	}
}

// deliver applies the per-target decision tree. Returns whether anything was
// actually sent.
func (d *Dispatcher) deliver(cfg *entities.UserConfig, evt *entities.MessageEvent, targetID int64, original, text string) (bool, error) {
	if d.Pacer != nil {
		d.Pacer.Wait(targetID)
	}

	if evt.Media != nil {
		if cfg.Settings.ForwardMedia {
			// Re-send as a new message when the caption changed, or when the
			// user wants the attribution header gone. A native forward is
			// only used when both the text and the header may pass through.
			if text != original || cfg.Settings.HideHeader {
				return true, d.connector.SendMedia(targetID, evt.Media, text, cfg.Settings.URLPreviews)
			}
			return true, d.connector.ForwardNative(evt.ChatID, evt.MessageID, targetID)
		}
		// Media suppressed; relay any surviving text on its own.
		if text != "" {
			return true, d.connector.SendText(targetID, text, cfg.Settings.URLPreviews)
		}
		return false, nil
	}

	// Text became empty after transforms, nothing worth sending.
	if text == "" {
		return false, nil
	}
	return true, d.connector.SendText(targetID, text, cfg.Settings.URLPreviews)
}

func (d *Dispatcher) recordForwarded(userID int64, n int) {
	if d.Live != nil {
		d.Live.RecordForwarded(userID, n)
	}
	if d.History != nil {
		if err := d.History.IncrementForwarded(userID, n); err != nil {
			log.Printf("[Dispatcher] user %d: stats write failed: %v", userID, err)
		}
	}
}

func (d *Dispatcher) recordDropped(userID int64, n int) {
	if d.Live != nil {
		d.Live.RecordDropped(userID, n)
	}
	if d.History != nil {
		if err := d.History.IncrementDropped(userID, n); err != nil {
			log.Printf("[Dispatcher] user %d: stats write failed: %v", userID, err)
		}
	}
}
