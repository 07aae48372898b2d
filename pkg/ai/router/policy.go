package router

import (
	"context"

	"ai-tripplanner-be/pkg/trip"
)

// Classifier breaks routing ties the deterministic policy cannot resolve.
// It must return one of the offered options; anything else is discarded
// and the first option wins.
type Classifier interface {
	Classify(ctx context.Context, message, stateSummary string, options []Route) (Route, error)
}

// Decision is the routing outcome for one turn.
type Decision struct {
	Route  Route
	Stage  Stage
	Reason string
}

// Policy routes each user turn. Deterministic state checks decide first;
// the classifier is only consulted when a turn is genuinely ambiguous, and
// always over a stage-restricted option list.
type Policy struct {
	classifier Classifier
}

func NewPolicy(classifier Classifier) *Policy {
	return &Policy{classifier: classifier}
}

// StageOf derives the workflow stage from conversation state.
func StageOf(st *trip.ConversationState) Stage {
	if st.Clarification.Status != trip.ClarificationComplete {
		return StageGathering
	}
	if st.Plan.Travel.Empty() {
		return StageNeedTravel
	}
	if !st.Flags.TravelConfirmed {
		return StageAwaitTravelConfirm
	}
	if st.Plan.Stays.Empty() {
		return StageNeedStays
	}
	if !st.Flags.HotelSelected {
		return StageAwaitHotelConfirm
	}
	if st.Plan.Activities.Empty() {
		return StageNeedActivities
	}
	return StageComplete
}

// Decide picks the pipeline route for the incoming message.
func (p *Policy) Decide(ctx context.Context, st *trip.ConversationState, message string) Decision {
	stage := StageOf(st)

	// Section-targeted refinement requests force a re-research regardless
	// of stage position, but only once that section has been produced.
	if stage == StageComplete {
		if d := p.decideComplete(ctx, st, message); d != nil {
			d.Stage = stage
			return *d
		}
	}

	switch stage {
	case StageGathering:
		return p.decideGathering(st, message, stage)

	case StageNeedTravel:
		return Decision{Route: RouteResearchTravel, Stage: stage, Reason: "trip facts confirmed, travel research pending"}

	case StageAwaitTravelConfirm:
		if IsConfirmation(message, true) {
			return Decision{Route: RouteResearchStays, Stage: stage, Reason: "travel options confirmed"}
		}
		if IsBareAck(message) {
			return Decision{Route: RouteAskMore, Stage: stage, Reason: "bare acknowledgement does not advance"}
		}
		return p.classify(ctx, st, message, stage,
			[]Route{RouteResearchTravel, RouteAskMore},
			"reply while awaiting travel confirmation")

	case StageNeedStays:
		return Decision{Route: RouteResearchStays, Stage: stage, Reason: "stay research pending"}

	case StageAwaitHotelConfirm:
		if st.Context.Pending != nil && st.Context.ResolveOption(message) > 0 {
			return Decision{Route: RouteRefine, Stage: stage, Reason: "hotel option picked"}
		}
		if IsConfirmation(message, true) {
			return Decision{Route: RouteRefine, Stage: stage, Reason: "hotel proposal confirmed"}
		}
		if IsBareAck(message) {
			return Decision{Route: RouteAskMore, Stage: stage, Reason: "bare acknowledgement does not advance"}
		}
		return p.classify(ctx, st, message, stage,
			[]Route{RouteRefine, RouteResearchStays, RouteAskMore},
			"reply while awaiting hotel choice")

	case StageNeedActivities:
		return Decision{Route: RouteResearchActivities, Stage: stage, Reason: "activity research pending"}

	default: // StageComplete
		if st.Itinerary == nil {
			return Decision{Route: RouteCompose, Stage: stage, Reason: "research complete, itinerary not yet composed"}
		}
		return Decision{Route: RouteRefine, Stage: stage, Reason: "itinerary presented, treating message as refinement"}
	}
}

func (p *Policy) decideGathering(st *trip.ConversationState, message string, stage Stage) Decision {
	awaiting := st.Clarification.Status == trip.ClarificationAwaitConfirm
	if awaiting {
		if IsConfirmation(message, true) {
			return Decision{Route: RouteResearchTravel, Stage: stage, Reason: "trip summary confirmed"}
		}
		if IsNegation(message) {
			return Decision{Route: RouteAskMore, Stage: stage, Reason: "trip summary rejected, re-gathering"}
		}
	}
	if st.Extracted.Destination == "" && (st.Extracted.DestinationHint != "" || st.Discovery.CycleCount > 0) && !st.Discovery.Resolved {
		return Decision{Route: RouteDiscover, Stage: stage, Reason: "destination undecided, running discovery"}
	}
	return Decision{Route: RouteAskMore, Stage: stage, Reason: "trip facts incomplete"}
}

// decideComplete handles the post-itinerary phase. A nil return falls
// through to the default stage handling.
func (p *Policy) decideComplete(ctx context.Context, st *trip.ConversationState, message string) *Decision {
	if st.Itinerary == nil {
		return nil
	}
	// Refinement is the default once the full plan is on the table, but a
	// refine turn makes no sense before any hotels were ever shown.
	if len(st.Components.Accommodations) == 0 {
		return &Decision{Route: RouteCompose, Reason: "refine requested but no options ever presented, recomposing"}
	}
	if IsBareAck(message) {
		return &Decision{Route: RouteAskMore, Reason: "bare acknowledgement"}
	}
	return &Decision{Route: RouteRefine, Reason: "itinerary presented, treating message as refinement"}
}

func (p *Policy) classify(ctx context.Context, st *trip.ConversationState, message string, stage Stage, options []Route, reason string) Decision {
	route := options[0]
	if p.classifier != nil {
		if r, err := p.classifier.Classify(ctx, message, stateSummary(st, stage), options); err == nil && validOption(r, options) {
			route = r
		}
	}
	return Decision{Route: route, Stage: stage, Reason: reason}
}

func validOption(r Route, options []Route) bool {
	for _, o := range options {
		if o == r {
			return true
		}
	}
	return false
}

func stateSummary(st *trip.ConversationState, stage Stage) string {
	s := "stage=" + string(stage)
	if st.Extracted.Destination != "" {
		s += ", destination=" + st.Extracted.Destination
	}
	if st.Context.Pending != nil {
		s += ", awaiting answer to: " + st.Context.Pending.Prompt
	}
	return s
}
