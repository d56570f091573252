package assignment

import (
	"context"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/logger"
)

// Router owns the routing table and round-robin state. It is safe for concurrent use.
type Router struct {
	routing  compiledRouting
	counter  Counter
	fallback *MemoryCounter
	log      *logger.Logger
}

// NewRouter creates a Router. A nil counter uses a process-local MemoryCounter.
func NewRouter(routing Routing, counter Counter, log *logger.Logger) *Router {
	fallback := NewMemoryCounter()
	if counter == nil {
		counter = fallback
	}
	return &Router{
		routing:  compile(routing),
		counter:  counter,
		fallback: fallback,
		log:      log,
	}
}

// Assign resolves the agent for a lead. It always returns an agent:
// exact city, city substring, price bracket, default, round-robin, then Unassigned.
func (r *Router) Assign(ctx context.Context, lead domain.Lead) domain.AssignedAgent {
	if agent, ok := r.byCity(lead.City); ok {
		return agent
	}
	if agent, ok := r.byBudget(lead.BudgetMax); ok {
		return agent
	}
	if r.routing.defaultAgent != nil {
		return *r.routing.defaultAgent
	}
	if len(r.routing.agents) > 0 {
		return r.roundRobin(ctx)
	}
	return domain.Unassigned
}

func (r *Router) byCity(rawCity string) (domain.AssignedAgent, bool) {
	city := normalizeCity(rawCity)
	if city == "" || len(r.routing.byCity) == 0 {
		return domain.AssignedAgent{}, false
	}
	if agent, ok := r.routing.byCity[city]; ok {
		return agent, true
	}
	for _, key := range r.routing.cityKeys {
		if strings.Contains(city, key) {
			return r.routing.byCity[key], true
		}
	}
	return domain.AssignedAgent{}, false
}

func (r *Router) byBudget(budgetMax *float64) (domain.AssignedAgent, bool) {
	if budgetMax == nil {
		return domain.AssignedAgent{}, false
	}
	for _, bracket := range r.routing.brackets {
		if *budgetMax <= bracket.Max {
			return bracket.Agent, true
		}
	}
	return domain.AssignedAgent{}, false
}

func (r *Router) roundRobin(ctx context.Context) domain.AssignedAgent {
	n, err := r.counter.Next(ctx)
	if err != nil {
		if r.log != nil {
			r.log.Warn("round-robin counter unavailable, using process-local rotation", "error", err)
		}
		n, _ = r.fallback.Next(ctx)
	}
	agents := r.routing.agents
	return agents[n%uint64(len(agents))]
}
