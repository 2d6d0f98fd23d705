package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stepwisehq/stepwise/pkg/logger"
)

// Callbacks routes decoded events to their handlers. Nil fields are skipped,
// so consumers register only the events they care about. OnUnknown catches
// every type without a dedicated field, including empty and novel types.
type Callbacks struct {
	OnConnected         func(ConnectedPayload)
	OnProcessingStarted func(ProcessingStartedPayload)
	OnRouting           func(RoutingPayload)
	OnRoutingResult     func(RoutingResultPayload)
	OnStepUpdate        func(StepUpdatePayload)
	OnStepGenerated     func(StepGeneratedPayload)
	OnCompletion        func(CompletionPayload)
	OnSolutionComplete  func(SolutionCompletePayload)
	OnError             func(ErrorPayload)
	OnUnknown           func(Envelope)
}

// Dispatch decodes the envelope payload and invokes the matching callback.
// A payload that fails to decode invokes nothing and returns the decode
// error so the caller can log and move on.
func Dispatch(env Envelope, cb Callbacks) error {
	switch env.Type {
	case EventConnected:
		var p ConnectedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnConnected != nil {
			cb.OnConnected(p)
		}
	case EventProcessingStarted:
		var p ProcessingStartedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnProcessingStarted != nil {
			cb.OnProcessingStarted(p)
		}
	case EventRouting:
		var p RoutingPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnRouting != nil {
			cb.OnRouting(p)
		}
	case EventRoutingResult:
		var p RoutingResultPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnRoutingResult != nil {
			cb.OnRoutingResult(p)
		}
	case EventStepUpdate:
		var p StepUpdatePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnStepUpdate != nil {
			cb.OnStepUpdate(p)
		}
	case EventStepGenerated:
		var p StepGeneratedPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnStepGenerated != nil {
			cb.OnStepGenerated(p)
		}
	case EventCompletion:
		var p CompletionPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnCompletion != nil {
			cb.OnCompletion(p)
		}
	case EventSolutionComplete:
		var p SolutionCompletePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnSolutionComplete != nil {
			cb.OnSolutionComplete(p)
		}
	case EventError:
		var p ErrorPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if cb.OnError != nil {
			cb.OnError(p)
		}
	default:
		if cb.OnUnknown != nil {
			cb.OnUnknown(env)
		}
	}
	return nil
}

// DispatchAll drains events in arrival order until the channel closes or ctx
// is done. Undecodable payloads are logged and skipped.
func DispatchAll(ctx context.Context, events <-chan Envelope, cb Callbacks) {
	log := logger.WithComponent("dispatch")
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-events:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if err := Dispatch(env, cb); err != nil {
				log.Warn("Skipping undecodable event", "type", env.Type, "error", err)
			}
		}
	}
}

func decode(env Envelope, v any) error {
	if err := json.Unmarshal(env.Raw, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}
	return nil
}
