package permission

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goAccess/identity"
)

// Operator compares a request value against a condition value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpIn          Operator = "in"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// ConditionKind names a condition variant.
type ConditionKind string

const (
	KindOwnership      ConditionKind = "ownership"
	KindTime           ConditionKind = "time"
	KindLocation       ConditionKind = "location"
	KindClassification ConditionKind = "classification"
	KindCustom         ConditionKind = "custom"
)

// Condition is one of OwnershipCondition, TimeCondition, LocationCondition,
// ClassificationCondition or CustomCondition. The set is closed.
type Condition interface {
	Kind() ConditionKind
	condition()
}

// OwnershipCondition compares the resource owner against Value, or against the
// caller's user id when Value is empty. "in" checks the owner against Values.
type OwnershipCondition struct {
	Operator Operator
	Value    string
	Values   []string
}

// TimeCondition compares the request time. Value is a clock time "15:04";
// Values for "in" are weekday names ("Mon", "Tuesday", ...). Times are read in
// Zone, an IANA name, or UTC when empty.
type TimeCondition struct {
	Operator Operator
	Value    string
	Values   []string
	Zone     string
}

// LocationCondition compares the request location, case-insensitively.
type LocationCondition struct {
	Operator Operator
	Value    string
	Values   []string
}

// ClassificationCondition compares the caller's clearance against Value by
// level, so greater_than CONFIDENTIAL admits only SECRET.
type ClassificationCondition struct {
	Operator Operator
	Value    identity.Classification
	Values   []identity.Classification
}

// CustomCondition is evaluated by the CustomFunc registered under Name. With no
// registered function it compares request attribute Attribute against Value,
// numerically when both sides parse as numbers.
type CustomCondition struct {
	Name      string
	Attribute string
	Operator  Operator
	Value     string
	Values    []string
}

func (OwnershipCondition) Kind() ConditionKind      { return KindOwnership }
func (TimeCondition) Kind() ConditionKind           { return KindTime }
func (LocationCondition) Kind() ConditionKind       { return KindLocation }
func (ClassificationCondition) Kind() ConditionKind { return KindClassification }
func (CustomCondition) Kind() ConditionKind         { return KindCustom }

func (OwnershipCondition) condition()      {}
func (TimeCondition) condition()           {}
func (LocationCondition) condition()       {}
func (ClassificationCondition) condition() {}
func (CustomCondition) condition()         {}

// compareFunc orders the request-side value against one condition-side value.
type compareFunc func(target string) (int, error)

func applyOperator(op Operator, cmp compareFunc, value string, values []string) (bool, error) {
	switch op {
	case OpIn:
		for _, v := range values {
			c, err := cmp(v)
			if err != nil {
				return false, err
			}
			if c == 0 {
				return true, nil
			}
		}
		return false, nil
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}

	c, err := cmp(value)
	if err != nil {
		return false, err
	}
	switch op {
	case OpEquals:
		return c == 0, nil
	case OpNotEquals:
		return c != 0, nil
	case OpGreaterThan:
		return c > 0, nil
	default:
		return c < 0, nil
	}
}

func evalOwnership(c OwnershipCondition, req Request) (bool, error) {
	cmp := func(target string) (int, error) {
		if target == "" {
			target = req.UserID
		}
		return strings.Compare(req.ResourceOwner, target), nil
	}
	if req.ResourceOwner == "" {
		return false, nil
	}
	return applyOperator(c.Operator, cmp, c.Value, c.Values)
}

func evalTime(c TimeCondition, at time.Time) (bool, error) {
	loc := time.UTC
	if c.Zone != "" {
		z, err := time.LoadLocation(c.Zone)
		if err != nil {
			return false, fmt.Errorf("time condition zone: %w", err)
		}
		loc = z
	}
	at = at.In(loc)

	if c.Operator == OpIn {
		cmp := func(target string) (int, error) {
			day, err := parseWeekday(target)
			if err != nil {
				return 0, err
			}
			if at.Weekday() == day {
				return 0, nil
			}
			return 1, nil
		}
		return applyOperator(OpIn, cmp, "", c.Values)
	}

	minutes := at.Hour()*60 + at.Minute()
	cmp := func(target string) (int, error) {
		t, err := time.Parse("15:04", target)
		if err != nil {
			return 0, fmt.Errorf("time condition value %q: %w", target, err)
		}
		return compareInt(minutes, t.Hour()*60+t.Minute()), nil
	}
	return applyOperator(c.Operator, cmp, c.Value, nil)
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func evalLocation(c LocationCondition, req Request) (bool, error) {
	if req.Location == "" {
		return false, nil
	}
	subject := strings.ToLower(req.Location)
	cmp := func(target string) (int, error) {
		return strings.Compare(subject, strings.ToLower(target)), nil
	}
	return applyOperator(c.Operator, cmp, c.Value, c.Values)
}

func evalClassification(c ClassificationCondition, req Request) (bool, error) {
	subject := req.Classification
	if subject == "" {
		subject = identity.ClassificationOpen
	}
	cmp := func(target string) (int, error) {
		level := identity.Classification(target)
		if !level.Valid() {
			return 0, fmt.Errorf("%w: %q", identity.ErrUnknownClassification, target)
		}
		return compareInt(subject.Level(), level.Level()), nil
	}
	values := make([]string, len(c.Values))
	for i, v := range c.Values {
		values[i] = string(v)
	}
	return applyOperator(c.Operator, cmp, string(c.Value), values)
}

func evalAttribute(c CustomCondition, req Request) (bool, error) {
	subject, ok := req.Attributes[c.Attribute]
	if !ok {
		return false, nil
	}
	cmp := func(target string) (int, error) {
		a, errA := strconv.ParseFloat(subject, 64)
		b, errB := strconv.ParseFloat(target, 64)
		if errA == nil && errB == nil {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return strings.Compare(subject, target), nil
	}
	return applyOperator(c.Operator, cmp, c.Value, c.Values)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
