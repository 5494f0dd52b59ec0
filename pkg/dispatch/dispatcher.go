// Package dispatch maps a classified intent to the responder that answers it.
package dispatch

import (
	"context"
	"fmt"

	"grindhub/pkg/completion"
	"grindhub/pkg/intent"
	"grindhub/pkg/logx"
	"grindhub/pkg/responder"
)

// UnknownIntentReply is returned for an intent outside the registry.
const UnknownIntentReply = "I'm sorry, I don't understand your request. Can you please rephrase it?"

// Dispatcher holds the intent registry. It keeps no per-turn state and is safe for
// concurrent use.
type Dispatcher struct {
	profiles    map[intent.Intent]responder.Profile
	completions *completion.Client
	data        responder.DataSource
	logger      *logx.Logger
}

// NewDispatcher registers every profile. It fails if an intent is left without a
// responder or registered twice.
func NewDispatcher(c *completion.Client, data responder.DataSource, profiles ...responder.Profile) (*Dispatcher, error) {
	if len(profiles) == 0 {
		profiles = responder.Profiles()
	}
	d := &Dispatcher{
		profiles:    make(map[intent.Intent]responder.Profile, len(profiles)),
		completions: c,
		data:        data,
		logger:      logx.NewLogger("dispatch"),
	}
	for _, p := range profiles {
		if !p.Intent.Valid() {
			return nil, fmt.Errorf("profile %s: unknown intent %q", p.Name, p.Intent)
		}
		if prev, dup := d.profiles[p.Intent]; dup {
			return nil, fmt.Errorf("intent %q registered by both %s and %s", p.Intent, prev.Name, p.Name)
		}
		d.profiles[p.Intent] = p
	}
	for _, in := range intent.All() {
		if _, ok := d.profiles[in]; !ok {
			return nil, fmt.Errorf("no responder registered for intent %q", in)
		}
	}
	return d, nil
}

// Profile returns the profile registered for in.
func (d *Dispatcher) Profile(in intent.Intent) (responder.Profile, bool) {
	p, ok := d.profiles[in]
	return p, ok
}

// Dispatch hands the message to a fresh responder for in and returns its reply unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, message, runningContext, userID string) (string, error) {
	p, ok := d.profiles[in]
	if !ok {
		d.logger.WithContext(ctx).Warn("no responder for intent %q", in)
		return UnknownIntentReply, nil
	}
	logx.Debug(ctx, "dispatch", "%q -> %s", in, p.Name)
	return responder.New(p, d.completions, d.data, userID).Reply(ctx, message, runningContext)
}
