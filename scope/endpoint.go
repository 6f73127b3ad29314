package scope

import (
	"fmt"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// DecoratorShape says how an endpoint decorator is written.
type DecoratorShape string

const (
	// ShapeCall matches a called decorator such as @app.route("/users").
	ShapeCall DecoratorShape = "call"
	// ShapeName matches a bare decorator such as @api_view.
	ShapeName DecoratorShape = "name"
)

// EndpointMatcher recognizes a decorator that exposes a function to the network.
type EndpointMatcher struct {
	Shape DecoratorShape `mapstructure:"shape"`
	Match string         `mapstructure:"match"`
}

// DefaultEndpointMatchers covers Flask application and blueprint routes and
// the app_view decorator used by Django-style projects.
func DefaultEndpointMatchers() []EndpointMatcher {
	return []EndpointMatcher{
		{Shape: ShapeCall, Match: "app.route"},
		{Shape: ShapeCall, Match: "bp.route"},
		{Shape: ShapeCall, Match: "app_view"},
	}
}

// Validate rejects matchers with an unknown shape or an empty pattern.
func (m EndpointMatcher) Validate() error {
	if m.Match == "" {
		return fmt.Errorf("endpoint matcher has empty match")
	}
	switch m.Shape {
	case ShapeCall, ShapeName:
		return nil
	}
	return fmt.Errorf("endpoint matcher %q has unknown shape %q", m.Match, m.Shape)
}

// Matches reports whether decorator has the matcher's shape and dotted name.
func (m EndpointMatcher) Matches(decorator pyast.Expr) bool {
	switch m.Shape {
	case ShapeCall:
		call, ok := decorator.(*pyast.Call)
		if !ok {
			return false
		}
		name, ok := pyast.DottedName(call.Func)
		return ok && name == m.Match
	case ShapeName:
		name, ok := pyast.DottedName(decorator)
		return ok && name == m.Match
	}
	return false
}

// IsEndpoint reports whether any decorator of fn is recognized by matchers.
func IsEndpoint(fn *pyast.FunctionDef, matchers []EndpointMatcher) bool {
	for _, d := range fn.Decorators {
		for _, m := range matchers {
			if m.Matches(d) {
				return true
			}
		}
	}
	return false
}
