package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"ai-tripplanner-be/internal/pkg/logger"
	"ai-tripplanner-be/pkg/ai/pipeline"
	"ai-tripplanner-be/pkg/ai/router"
	"ai-tripplanner-be/pkg/events"
	"ai-tripplanner-be/pkg/trip"
)

// maxChainedStages bounds how many pipeline stages one user turn may run
// back to back (research chaining into composition and so on).
const maxChainedStages = 4

// historyLimit caps stored conversation history per conversation.
const historyLimit = 30

const apologyReply = "Something went wrong on my side while working on your trip. Your plan is safe, please try that again."

// EventPublisher emits workflow events for out-of-band consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// Orchestrator drives one conversation turn end to end: route the
// message, run the stage, chain follow-up stages the turn implies, and
// assemble the reply. A panic anywhere in a stage is contained to the
// turn.
type Orchestrator struct {
	policy    *router.Policy
	extract   *pipeline.ExtractStage
	stages    map[router.Route]pipeline.Stage
	publisher EventPublisher
	logger    logger.ILogger
}

func New(policy *router.Policy, deps pipeline.Deps, publisher EventPublisher) *Orchestrator {
	extract := pipeline.NewExtractStage(deps)
	return &Orchestrator{
		policy:  policy,
		extract: extract,
		stages: map[router.Route]pipeline.Stage{
			router.RouteAskMore:            extract,
			router.RouteDiscover:           pipeline.NewDiscoverStage(deps),
			router.RouteResearchTravel:     pipeline.NewResearchStage(deps, trip.SectionTravel),
			router.RouteResearchStays:      pipeline.NewResearchStage(deps, trip.SectionStays),
			router.RouteResearchActivities: pipeline.NewResearchStage(deps, trip.SectionActivities),
			router.RouteCompose:            pipeline.NewComposeStage(deps),
			router.RouteRefine:             pipeline.NewRefineStage(deps),
		},
		publisher: publisher,
		logger:    deps.Logger,
	}
}

// RunTurn processes one user message against the conversation state and
// returns the assistant reply. State is mutated in place; callers own
// serialization per conversation.
func (o *Orchestrator) RunTurn(ctx context.Context, st *trip.ConversationState, message string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if o.logger != nil {
				o.logger.Error("orchestrator", "panic recovered in turn", map[string]interface{}{
					"conversation_id": st.ConversationID,
					"panic":           fmt.Sprintf("%v", r),
					"stack":           string(debug.Stack()),
				})
			}
			reply = apologyReply
			err = nil
			st.AddMessage(trip.RoleAssistant, reply)
		}
	}()

	st.AddMessage(trip.RoleUser, message)

	var replies []string
	decision := o.policy.Decide(ctx, st, message)

	for i := 0; i < maxChainedStages; i++ {
		route := decision.Route

		// Confirming the gathered summary both pins the facts and starts
		// research in the same turn.
		if route == router.RouteResearchTravel && st.Clarification.Status == trip.ClarificationAwaitConfirm {
			o.extract.Confirm(st)
		}

		// Likewise, routing to stays research means the user accepted the
		// travel options just shown to them.
		if route == router.RouteResearchStays && !st.Plan.Travel.Empty() {
			st.Flags.TravelConfirmed = true
		}

		stage, ok := o.stages[route]
		if !ok {
			return "", fmt.Errorf("no stage registered for route %s", route)
		}

		if o.logger != nil {
			o.logger.Debug("orchestrator", "running stage", map[string]interface{}{
				"conversation_id": st.ConversationID,
				"route":           string(route),
				"stage":           string(decision.Stage),
				"reason":          decision.Reason,
				"chain_position":  i,
			})
		}

		result, runErr := stage.Run(ctx, st, message)
		if runErr != nil {
			return "", fmt.Errorf("stage %s: %w", route, runErr)
		}
		if result.Reply != "" {
			replies = append(replies, result.Reply)
		}
		o.publishStageEvent(ctx, st, route, result.Advanced)

		next := o.nextRoute(route, st, result)
		if next == "" {
			break
		}
		decision = router.Decision{Route: next, Stage: router.StageOf(st), Reason: "chained from " + string(route)}
	}

	reply = strings.Join(replies, "\n\n")
	if reply == "" {
		reply = "Got it. What else would you like to adjust?"
	}
	st.AddMessage(trip.RoleAssistant, reply)
	st.TrimHistory(historyLimit)
	return reply, nil
}

// nextRoute decides whether the finished stage implies an immediate
// follow-up in the same turn. Stages that end waiting on the user return
// nothing.
func (o *Orchestrator) nextRoute(prev router.Route, st *trip.ConversationState, result *pipeline.Result) router.Route {
	if !result.Advanced {
		return ""
	}
	switch prev {
	case router.RouteResearchStays, router.RouteResearchActivities:
		return router.RouteCompose
	case router.RouteRefine:
		switch router.StageOf(st) {
		case router.StageNeedTravel:
			return router.RouteResearchTravel
		case router.StageNeedStays:
			return router.RouteResearchStays
		case router.StageNeedActivities:
			return router.RouteResearchActivities
		case router.StageComplete:
			if !st.Flags.ItineraryPresented {
				return router.RouteCompose
			}
		}
	case router.RouteAskMore:
		// Extraction completing silently (already-confirmed facts) flows
		// straight into whatever the stage machine needs next.
		if st.Clarification.Status == trip.ClarificationComplete {
			switch router.StageOf(st) {
			case router.StageNeedTravel:
				return router.RouteResearchTravel
			case router.StageNeedStays:
				return router.RouteResearchStays
			}
		}
	}
	return ""
}

func (o *Orchestrator) publishStageEvent(ctx context.Context, st *trip.ConversationState, route router.Route, advanced bool) {
	if o.publisher == nil {
		return
	}
	evt := events.NewTurnStageCompleted(st.ConversationID, string(route), string(router.StageOf(st)), advanced)
	if err := o.publisher.Publish(ctx, evt); err != nil && o.logger != nil {
		o.logger.Warn("orchestrator", "event publish failed", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"event":           evt.EventType(),
			"error":           err.Error(),
		})
	}
}
