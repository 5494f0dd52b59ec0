// Package router runs one conversational turn: classify the message, dispatch it to a
// responder, and fold the exchange into the running context.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
	"grindhub/pkg/agent/middleware/metrics"
	"grindhub/pkg/agent/middleware/resilience/retry"
	"grindhub/pkg/completion"
	"grindhub/pkg/config"
	"grindhub/pkg/contextmgr"
	"grindhub/pkg/dispatch"
	"grindhub/pkg/intent"
	"grindhub/pkg/logx"
	"grindhub/pkg/responder"
	"grindhub/pkg/session"
)

// FailureReply is shown when no reply could be produced.
const FailureReply = "Sorry, I'm having trouble responding right now. Please try again in a moment."

// Classifier maps a message to an intent.
type Classifier interface {
	Classify(ctx context.Context, message string) (intent.Intent, error)
}

// Dispatcher produces the reply for a classified message.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent, message, runningContext, userID string) (string, error)
}

// Summarizer folds a turn into the running context.
type Summarizer interface {
	Summarize(ctx context.Context, prior, message, reply string) (string, error)
}

// Turn records one pass through the pipeline. It is logged and then discarded.
//
//nolint:govet // grouped for readability
type Turn struct {
	ID             string
	UserID         string
	UserMessage    string
	Intent         intent.Intent
	Context        string
	Reply          string
	UpdatedContext string
	State          State
	// Err is the failure that sent the turn to StateFailed.
	Err error
	// SummaryErr is set when the reply was delivered but the context was not updated.
	SummaryErr error
	Started    time.Time
	Duration   time.Duration
}

// Engine processes turns. It holds no per-session state; callers serialize turns for
// the same session.
type Engine struct {
	classifier Classifier
	dispatcher Dispatcher
	summarizer Summarizer
	recorder   metrics.Recorder
	logger     *logx.Logger
	now        func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder records turn metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine assembles an engine from its stages.
func NewEngine(c Classifier, d Dispatcher, s Summarizer, opts ...Option) *Engine {
	e := &Engine{
		classifier: c,
		dispatcher: d,
		summarizer: s,
		recorder:   metrics.Nop(),
		logger:     logx.NewLogger("router"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// New builds the full engine over client: one completion client with the configured
// retry policy is shared by classification, replies and summaries.
func New(cfg config.Config, client llm.LLMClient, data responder.DataSource, recorder metrics.Recorder) (*Engine, error) {
	policy := retry.NewPolicy(retry.Config{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		Jitter:        cfg.Retry.Jitter,
	}, nil)
	completions := completion.New(client, policy, completion.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	classifier, err := intent.NewClassifier(completions)
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.NewDispatcher(completions, data)
	if err != nil {
		return nil, err
	}
	return NewEngine(classifier, dispatcher, contextmgr.NewSummarizer(completions), WithRecorder(recorder)), nil
}

// ResetContext clears the session's running context.
func (e *Engine) ResetContext(s *session.Session) {
	s.Reset()
}

// HandleTurn answers message for s. The returned turn always carries a non-empty
// Reply. s.RunningContext is replaced only when the whole pipeline succeeds.
func (e *Engine) HandleTurn(ctx context.Context, s *session.Session, message string) *Turn {
	t := &Turn{
		ID:          uuid.NewString(),
		UserID:      s.UserID,
		UserMessage: message,
		Context:     s.RunningContext,
		State:       StateClassify,
		Started:     e.now(),
	}
	ctx = logx.WithTurnID(ctx, t.ID)
	log := e.logger.WithContext(ctx)

	defer func() {
		t.Duration = e.now().Sub(t.Started)
		e.recorder.ObserveTurn(string(t.Intent), string(t.State), t.Duration)
		log.Info("turn %s intent=%q in %s", t.State, t.Intent, t.Duration.Round(time.Millisecond))
	}()

	in, err := e.classifier.Classify(ctx, message)
	if err != nil {
		e.fail(ctx, t, fmt.Errorf("classify: %w", err))
		return t
	}
	t.Intent = in
	e.advance(ctx, t, StateDispatch)

	reply, err := e.dispatcher.Dispatch(ctx, in, message, t.Context, s.UserID)
	if err != nil {
		e.fail(ctx, t, fmt.Errorf("dispatch %q: %w", in, err))
		return t
	}
	t.Reply = reply
	e.advance(ctx, t, StateSummarize)

	updated, err := e.summarizer.Summarize(ctx, t.Context, message, reply)
	if err != nil {
		t.SummaryErr = err
		t.UpdatedContext = t.Context
		log.Warn("running context unchanged: %v", err)
	} else {
		t.UpdatedContext = updated
		s.RunningContext = updated
	}
	e.advance(ctx, t, StateDone)
	return t
}

func (e *Engine) advance(ctx context.Context, t *Turn, to State) {
	if !IsValidTransition(t.State, to) {
		// Programming error in the pipeline itself.
		panic(fmt.Sprintf("invalid turn transition %s -> %s", t.State, to))
	}
	e.logger.WithContext(ctx).DebugState("transition", string(to), string(t.State))
	t.State = to
}

func (e *Engine) fail(ctx context.Context, t *Turn, err error) {
	t.Err = err
	t.Reply = FailureReply
	t.UpdatedContext = t.Context
	kind := llmerrors.TypeOf(llmerrors.LastCause(err))
	e.logger.WithContext(ctx).Error("turn failed in %s (%s): %v", t.State, kind, err)
	e.advance(ctx, t, StateFailed)
}
