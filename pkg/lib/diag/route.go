package diag

import (
	"fmt"
	"strings"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// RouteSubcommand is the action passed to the route tool.
type RouteSubcommand string

const (
	RoutePrint  RouteSubcommand = "print"
	RouteAdd    RouteSubcommand = "add"
	RouteChange RouteSubcommand = "change"
	RouteDelete RouteSubcommand = "delete"
)

// ParseRouteSubcommand accepts the four route actions in any case.
func ParseRouteSubcommand(s string) (RouteSubcommand, error) {
	sub := RouteSubcommand(strings.ToLower(strings.TrimSpace(s)))
	switch sub {
	case RoutePrint, RouteAdd, RouteChange, RouteDelete:
		return sub, nil
	}
	return "", fmt.Errorf("%w: unknown route subcommand %q", lib.ErrInvalidArgument, s)
}

// RouteFields are the form values of a route change. Metric and Interface are
// optional and only passed on when set.
type RouteFields struct {
	Destination string `validate:"required,ipv4"`
	Mask        string `validate:"required,ipv4"`
	Gateway     string `validate:"required,ipv4"`
	Metric      string `validate:"omitempty,numeric"`
	Interface   string `validate:"omitempty,numeric|ipv4"`
}

func (f RouteFields) trimmed() RouteFields {
	return RouteFields{
		Destination: strings.TrimSpace(f.Destination),
		Mask:        strings.TrimSpace(f.Mask),
		Gateway:     strings.TrimSpace(f.Gateway),
		Metric:      strings.TrimSpace(f.Metric),
		Interface:   strings.TrimSpace(f.Interface),
	}
}

// RouteArgs builds the argument vector for sub. Fields are validated first.
func (t *Toolkit) RouteArgs(sub RouteSubcommand, fields RouteFields) ([]string, error) {
	f := fields.trimmed()
	switch sub {
	case RoutePrint:
		return []string{string(RoutePrint)}, nil
	case RouteDelete:
		if err := t.validate.StructPartial(f, "Destination"); err != nil {
			return nil, invalid(err)
		}
		return []string{string(RouteDelete), f.Destination}, nil
	case RouteAdd, RouteChange:
		if err := t.validate.Struct(f); err != nil {
			return nil, invalid(err)
		}
		args := []string{string(sub), f.Destination, "mask", f.Mask, f.Gateway}
		if f.Metric != "" {
			args = append(args, "metric", f.Metric)
		}
		if f.Interface != "" {
			args = append(args, "if", f.Interface)
		}
		return args, nil
	}
	return nil, fmt.Errorf("%w: unknown route subcommand %q", lib.ErrInvalidArgument, sub)
}

// RunRoute prints or changes the routing table. Only "print" yields records.
func (t *Toolkit) RunRoute(sub RouteSubcommand, fields RouteFields) error {
	args, err := t.RouteArgs(sub, fields)
	if err != nil {
		return err
	}
	return t.run(lib.ToolRoute, args...)
}
