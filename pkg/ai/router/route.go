package router

// Route identifies which pipeline stage handles the current turn.
type Route string

const (
	RouteAskMore            Route = "ask_more"
	RouteDiscover           Route = "discover"
	RouteResearchTravel     Route = "research_travel"
	RouteResearchStays      Route = "research_stays"
	RouteResearchActivities Route = "research_activities"
	RouteCompose            Route = "compose"
	RouteRefine             Route = "refine"
)

// Stage is the workflow position derived from conversation state. Routing
// is stage-first: the stage decides the default route and which other
// routes are even eligible.
type Stage string

const (
	StageGathering          Stage = "gathering"
	StageNeedTravel         Stage = "need_travel"
	StageAwaitTravelConfirm Stage = "awaiting_travel_confirm"
	StageNeedStays          Stage = "need_stays"
	StageAwaitHotelConfirm  Stage = "awaiting_hotel_confirm"
	StageNeedActivities     Stage = "need_activities"
	StageComplete           Stage = "complete"
)

// AllRoutes lists every routable stage, for classifier option validation.
var AllRoutes = []Route{
	RouteAskMore,
	RouteDiscover,
	RouteResearchTravel,
	RouteResearchStays,
	RouteResearchActivities,
	RouteCompose,
	RouteRefine,
}

func validRoute(r Route) bool {
	for _, x := range AllRoutes {
		if x == r {
			return true
		}
	}
	return false
}
