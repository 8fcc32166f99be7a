// Package condition implements the Condition Engine of spec.md §4.G: a
// property registry, an operator grammar over string/int/bool/list
// properties, and a cached evaluator shared by the Conditional Layer
// (internal/conditional) and the Havel runtime's `mode == 'x'` shortcut.
package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PropertyType is the value kind a registered Property produces.
type PropertyType int

const (
	TypeString PropertyType = iota
	TypeInt
	TypeBool
	TypeList
)

// Property is a named observable bound to a getter closure, per
// spec.md §3. Properties are registered once at start-up and read
// lazily during evaluation.
type Property struct {
	Name       string
	Type       PropertyType
	StringFn   func() string
	IntFn      func() int
	BoolFn     func() bool
	ListFn     func() []string
}

// Operator is one token of the condition grammar.
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpContains
	OpContainsCI
	OpMatches
	OpNotMatches
	OpInList
	OpNotInList
	OpLess
	OpGreater
)

// Condition is a parsed, cacheable predicate.
type Condition struct {
	Negate   bool
	Property string
	Op       Operator
	Literal  string
	List     []string
	regex    *regexp.Regexp
}

// compile lazily compiles the regex for Matches/NotMatches operators,
// failing with a parse-time error on bad patterns (spec.md §4.G).
func (c *Condition) compile() error {
	if c.Op != OpMatches && c.Op != OpNotMatches {
		return nil
	}
	if c.regex != nil {
		return nil
	}
	re, err := regexp.Compile(c.Literal)
	if err != nil {
		return fmt.Errorf("compile regex %q: %w", c.Literal, err)
	}
	c.regex = re
	return nil
}

type cacheEntry struct {
	result  bool
	expires time.Time
}

// Engine holds the property registry, a 50ms result cache, and a
// dynamic-variables table, per spec.md §4.G.
type Engine struct {
	mu         sync.RWMutex
	properties map[string]Property
	dynamic    map[string]string
	cache      map[string]cacheEntry
	cacheTTL   time.Duration
}

// NewEngine creates an Engine with a 50ms condition cache TTL.
func NewEngine() *Engine {
	return &Engine{
		properties: make(map[string]Property),
		dynamic:    make(map[string]string),
		cache:      make(map[string]cacheEntry),
		cacheTTL:   50 * time.Millisecond,
	}
}

func (e *Engine) RegisterProperty(name string, typ PropertyType, getter func() string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = Property{Name: name, Type: typ, StringFn: getter}
}

func (e *Engine) RegisterIntProperty(name string, getter func() int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = Property{Name: name, Type: TypeInt, IntFn: getter}
}

func (e *Engine) RegisterBoolProperty(name string, getter func() bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = Property{Name: name, Type: TypeBool, BoolFn: getter}
}

func (e *Engine) RegisterListProperty(name string, getter func() []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = Property{Name: name, Type: TypeList, ListFn: getter}
}

// SetDynamic sets a script-level dynamic variable, consulted when no
// registered property matches the condition's property name.
func (e *Engine) SetDynamic(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dynamic[name] = value
}

// InvalidateCache clears the condition cache. Called on mode changes
// per spec.md §4.G.
func (e *Engine) InvalidateCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cacheEntry)
}

// Evaluate parses (if needed) and evaluates a textual condition string,
// using the 50ms cache keyed by the condition string itself.
func (e *Engine) Evaluate(conditionStr string) (bool, error) {
	e.mu.RLock()
	if entry, ok := e.cache[conditionStr]; ok && time.Now().Before(entry.expires) {
		e.mu.RUnlock()
		return entry.result, nil
	}
	e.mu.RUnlock()

	cond, err := e.parseCondition(conditionStr)
	if err != nil {
		return false, err
	}
	if err := cond.compile(); err != nil {
		return false, err
	}
	result, err := e.evaluateParsed(cond)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.cache[conditionStr] = cacheEntry{result: result, expires: time.Now().Add(e.cacheTTL)}
	e.mu.Unlock()

	return result, nil
}

// opTokens is ordered longest/most-specific first so e.g. "contains-ci"
// is tried before the shorter "contains", and "not in" before "in".
var opTokens = []struct {
	token string
	op    Operator
}{
	{"not in", OpNotInList},
	{"contains-ci", OpContainsCI},
	{"contains", OpContains},
	{"matches", OpMatches},
	{"=~", OpMatches},
	{"~c", OpContainsCI},
	{"!=", OpNotEquals},
	{"==", OpEquals},
	{"in", OpInList},
	{"~", OpContains},
	{"<", OpLess},
	{">", OpGreater},
	{"=", OpEquals},
}

// parseCondition implements spec.md §4.G's evaluateCondition: optional
// leading '!' negation, then "property OPERATOR value".
func (e *Engine) parseCondition(s string) (*Condition, error) {
	s = strings.TrimSpace(s)
	negate := false
	if strings.HasPrefix(s, "!") && !strings.HasPrefix(s, "!=") {
		negate = true
		s = strings.TrimSpace(s[1:])
	}

	for _, tok := range opTokens {
		idx := strings.Index(s, tok.token)
		if idx <= 0 {
			continue
		}
		prop := strings.TrimSpace(s[:idx])
		value := strings.TrimSpace(s[idx+len(tok.token):])
		value = strings.Trim(value, "'\"")
		c := &Condition{Negate: negate, Property: prop, Op: tok.op, Literal: value}
		if tok.op == OpInList || tok.op == OpNotInList {
			for _, item := range strings.Split(value, ",") {
				c.List = append(c.List, strings.TrimSpace(item))
			}
		}
		return c, nil
	}
	return nil, fmt.Errorf("parse condition %q: no recognized operator", s)
}

func (e *Engine) evaluateParsed(c *Condition) (bool, error) {
	actual, ok := e.resolveString(c.Property)
	if !ok {
		return false, fmt.Errorf("unknown property or variable %q", c.Property)
	}

	var result bool
	switch c.Op {
	case OpEquals:
		result = actual == c.Literal
	case OpNotEquals:
		result = actual != c.Literal
	case OpContains:
		result = strings.Contains(actual, c.Literal)
	case OpContainsCI:
		result = strings.Contains(strings.ToLower(actual), strings.ToLower(c.Literal))
	case OpMatches:
		result = c.regex != nil && c.regex.MatchString(actual)
	case OpNotMatches:
		result = c.regex == nil || !c.regex.MatchString(actual)
	case OpInList:
		result = containsStr(c.List, actual)
	case OpNotInList:
		result = !containsStr(c.List, actual)
	case OpLess, OpGreater:
		af, aerr := strconv.ParseFloat(actual, 64)
		lf, lerr := strconv.ParseFloat(c.Literal, 64)
		if aerr != nil || lerr != nil {
			return false, fmt.Errorf("numeric comparison on non-numeric value %q vs %q", actual, c.Literal)
		}
		if c.Op == OpLess {
			result = af < lf
		} else {
			result = af > lf
		}
	default:
		return false, fmt.Errorf("unsupported operator %v", c.Op)
	}

	if c.Negate {
		result = !result
	}
	return result, nil
}

func (e *Engine) resolveString(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.properties[name]; ok {
		switch p.Type {
		case TypeString:
			return p.StringFn(), true
		case TypeInt:
			return strconv.Itoa(p.IntFn()), true
		case TypeBool:
			return strconv.FormatBool(p.BoolFn()), true
		case TypeList:
			return strings.Join(p.ListFn(), ","), true
		}
	}
	if v, ok := e.dynamic[name]; ok {
		return v, true
	}
	return "", false
}

func containsStr(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
