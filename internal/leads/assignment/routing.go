// Package assignment routes a lead to a sales agent.
package assignment

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

// PriceBracket routes leads whose budgetMax is at most Max.
type PriceBracket struct {
	Max   float64              `json:"max" yaml:"max"`
	Agent domain.AssignedAgent `json:"agent" yaml:"agent"`
}

// Routing is the agent routing table.
type Routing struct {
	DefaultAgent  *domain.AssignedAgent           `json:"defaultAgent,omitempty" yaml:"defaultAgent,omitempty"`
	ByCity        map[string]domain.AssignedAgent `json:"byCity,omitempty" yaml:"byCity,omitempty"`
	PriceBrackets []PriceBracket                  `json:"priceBrackets,omitempty" yaml:"priceBrackets,omitempty"`
	Agents        []domain.AssignedAgent          `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// IsEmpty reports whether no rule is configured at any level.
func (r Routing) IsEmpty() bool {
	return r.DefaultAgent == nil && len(r.ByCity) == 0 && len(r.PriceBrackets) == 0 && len(r.Agents) == 0
}

// LoadRouting reads the routing table from inline JSON, or from a YAML or
// JSON file when no inline value is set. Both empty yields an empty table.
func LoadRouting(inlineJSON, path string) (Routing, error) {
	var routing Routing

	if strings.TrimSpace(inlineJSON) != "" {
		if err := json.Unmarshal([]byte(inlineJSON), &routing); err != nil {
			return Routing{}, fmt.Errorf("parse AGENT_ROUTING_JSON: %w", err)
		}
		return routing, nil
	}

	if strings.TrimSpace(path) == "" {
		return routing, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Routing{}, fmt.Errorf("read routing file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &routing); err != nil {
		return Routing{}, fmt.Errorf("parse routing file %s: %w", path, err)
	}
	return routing, nil
}

// compiledRouting is the lookup-ready form of a Routing table.
type compiledRouting struct {
	defaultAgent *domain.AssignedAgent
	byCity       map[string]domain.AssignedAgent
	cityKeys     []string
	brackets     []PriceBracket
	agents       []domain.AssignedAgent
}

func compile(r Routing) compiledRouting {
	c := compiledRouting{
		defaultAgent: r.DefaultAgent,
		byCity:       make(map[string]domain.AssignedAgent, len(r.ByCity)),
		agents:       append([]domain.AssignedAgent(nil), r.Agents...),
	}

	for key, agent := range r.ByCity {
		normalized := normalizeCity(key)
		if normalized == "" {
			continue
		}
		c.byCity[normalized] = agent
	}
	c.cityKeys = make([]string, 0, len(c.byCity))
	for key := range c.byCity {
		c.cityKeys = append(c.cityKeys, key)
	}
	sort.Strings(c.cityKeys)

	c.brackets = append([]PriceBracket(nil), r.PriceBrackets...)
	sort.SliceStable(c.brackets, func(i, j int) bool {
		return c.brackets[i].Max < c.brackets[j].Max
	})
	return c
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
