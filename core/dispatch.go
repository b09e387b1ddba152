package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marketpulse/voice-core/core/events"
	"github.com/marketpulse/voice-core/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const followUpBacklog = 16

// dispatchEngine turns the function calls of finished responses into
// exactly one conversational follow-up each. Failures never escape it:
// an unknown tool, malformed arguments or a failed handler all become an
// instruction for the remote agent instead of an error for the caller.
//
// Follow-ups are queued on a single channel drained by the session's run
// loop, which is the only sender on the wire.
type dispatchEngine struct {
	registry  *tools.Registry
	followUps chan string
	pending   sync.WaitGroup
}

func newDispatchEngine(registry *tools.Registry) *dispatchEngine {
	return &dispatchEngine{
		registry:  registry,
		followUps: make(chan string, followUpBacklog),
	}
}

// dispatch processes a response.done event's function calls in listed
// order. Local-effect tools run inline; tools carrying an acknowledgement
// queue it immediately and run their handler concurrently, so call k+1
// never waits on call k's network round trip while each call's own
// acknowledge-then-result pair stays ordered.
func (d *dispatchEngine) dispatch(ctx context.Context, event events.Event) {
	for _, call := range event.FunctionCalls() {
		ctx, span := tracer.Start(ctx, "dispatch tool call")
		span.SetAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("tool.call_id", call.CallID),
		)

		tool, err := d.registry.Lookup(call.Name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			d.queue(ctx, unknownToolInstructions(call.Name))
			continue
		}

		if tool.Acknowledgement != "" {
			d.queue(ctx, tool.Acknowledgement)
			d.pending.Add(1)
			go func(ctx context.Context, tool tools.Tool, call events.FunctionCall) {
				defer d.pending.Done()
				defer span.End()
				d.queue(ctx, d.invoke(ctx, tool, call))
			}(ctx, tool, call)
			continue
		}

		d.queue(ctx, d.invoke(ctx, tool, call))
		span.End()
	}
}

// invoke runs one tool call and maps every outcome to follow-up
// instructions. Success returns the handler's own instructions.
func (d *dispatchEngine) invoke(ctx context.Context, tool tools.Tool, call events.FunctionCall) string {
	result, err := tool.Execute(ctx, call.Arguments)
	if err == nil {
		return result
	}

	logger.Warn("Tool call failed", "tool", tool.Name, "error", err)
	if errors.Is(err, tools.ErrInvalidArguments) {
		return clarificationInstructions(tool.Name)
	}
	if tool.FailureInstructions != "" {
		return tool.FailureInstructions
	}
	return executionFailureInstructions(tool.Name)
}

// queue hands a follow-up to the session loop. Once the session context is
// cancelled the channel is closing, so late results are dropped instead of
// delivered.
func (d *dispatchEngine) queue(ctx context.Context, instructions string) {
	if ctx.Err() != nil {
		return
	}
	select {
	case d.followUps <- instructions:
	case <-ctx.Done():
	}
}

// await blocks until every concurrent handler has finished or given up.
func (d *dispatchEngine) await() {
	d.pending.Wait()
}

func unknownToolInstructions(name string) string {
	return fmt.Sprintf("Explain that you tried to use a capability called %q that is not available, and ask what the user would like to do instead.", name)
}

func clarificationInstructions(name string) string {
	return fmt.Sprintf("Explain that the details for the %s request were incomplete or invalid, and ask the user to clarify what they want.", name)
}

func executionFailureInstructions(name string) string {
	return fmt.Sprintf("Apologize that the %s request could not be completed right now, and ask if the user would like to try again.", name)
}
