package condition

import (
	"fmt"

	"veridata/gatekeeper/pkg/storage"
)

// Condition is a declarative check against a proposed row. A condition is
// either a leaf (field + operator + value) or a composition of child
// conditions via all/any/not. Exactly one form must be set.
type Condition struct {
	// Leaf form.
	Field    string   `yaml:"field,omitempty"`
	Operator Operator `yaml:"operator,omitempty"`
	Value    any      `yaml:"value,omitempty"`

	// Composite forms.
	All []*Condition `yaml:"all,omitempty"`
	Any []*Condition `yaml:"any,omitempty"`
	Not *Condition   `yaml:"not,omitempty"`
}

// Validate checks the condition tree for structural problems.
func (c *Condition) Validate() error {
	forms := 0
	if c.Field != "" || c.Operator != "" {
		forms++
	}
	if len(c.All) > 0 {
		forms++
	}
	if len(c.Any) > 0 {
		forms++
	}
	if c.Not != nil {
		forms++
	}
	if forms != 1 {
		return fmt.Errorf("condition must have exactly one of field/operator, all, any, not")
	}

	switch {
	case len(c.All) > 0:
		for _, child := range c.All {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	case len(c.Any) > 0:
		for _, child := range c.Any {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	case c.Not != nil:
		return c.Not.Validate()
	default:
		if c.Field == "" {
			return fmt.Errorf("condition field cannot be empty")
		}
		if !c.Operator.Valid() {
			return fmt.Errorf("unknown operator %q on field %q", c.Operator, c.Field)
		}
	}
	return nil
}

// Matches evaluates the condition tree against a row. It is pure: the same
// row always yields the same result.
func (c *Condition) Matches(row storage.Row) (bool, error) {
	switch {
	case len(c.All) > 0:
		for _, child := range c.All {
			ok, err := child.Matches(row)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case len(c.Any) > 0:
		for _, child := range c.Any {
			ok, err := child.Matches(row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case c.Not != nil:
		ok, err := c.Not.Matches(row)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		actual, exists := row[c.Field]
		return evaluateOperator(c.Operator, actual, c.Value, exists)
	}
}
