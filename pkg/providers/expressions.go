package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmespath/go-jmespath"

	"github.com/Ramsey-B/iris/pkg/models"
)

// Evaluator compiles JMESPath expressions once and evaluates them against decoded JSON
type Evaluator struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

// NewEvaluator creates a new expression evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*jmespath.JMESPath),
	}
}

// Evaluate evaluates a JMESPath expression against data
func (e *Evaluator) Evaluate(expression string, data any) (any, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

// String evaluates an expression to a string. Numbers are formatted without a fraction
// when they are whole; null is the empty string.
func (e *Evaluator) String(expression string, data any) (string, error) {
	result, err := e.Evaluate(expression, data)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), nil
		}
		return fmt.Sprintf("%g", v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// Date evaluates an expression to a calendar day; null and empty strings are nil
func (e *Evaluator) Date(expression string, data any) (*time.Time, error) {
	s, err := e.String(expression, data)
	if err != nil {
		return nil, err
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expression, err)
	}
	return d, nil
}

// Int evaluates an expression to an int; null is nil
func (e *Evaluator) Int(expression string, data any) (*int, error) {
	result, err := e.Evaluate(expression, data)
	if err != nil {
		return nil, err
	}

	var n int
	switch v := result.(type) {
	case nil:
		return nil, nil
	case float64:
		n = int(v)
	case string:
		if v == "" {
			return nil, nil
		}
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return nil, fmt.Errorf("%s: cannot convert %q to int", expression, v)
		}
	default:
		return nil, fmt.Errorf("%s: cannot convert %T to int", expression, result)
	}
	return &n, nil
}

// Slice evaluates an expression to a list. A single object is wrapped, since several
// open data exports collapse one-element lists into the element itself.
func (e *Evaluator) Slice(expression string, data any) ([]any, error) {
	result, err := e.Evaluate(expression, data)
	if err != nil {
		return nil, err
	}

	switch v := result.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	default:
		return []any{v}, nil
	}
}

// Validate checks if an expression compiles
func (e *Evaluator) Validate(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

func (e *Evaluator) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()

	return compiled, nil
}
