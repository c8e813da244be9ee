package unified

import "sync"

// Context threads one query's mutable state: the variable-value and
// conflict-class caches. One Context is created per resolution call and
// discarded with it; the façade can run concurrent resolutions precisely
// because each gets its own Context, own Interner, and own indices.
type Context struct {
	mu              sync.Mutex
	variableValues  map[string]map[string]struct{}
	conflictMembers map[string]map[string]struct{}
}

// NewContext returns an empty, query-scoped context.
func NewContext() *Context {
	return &Context{
		variableValues:  make(map[string]map[string]struct{}),
		conflictMembers: make(map[string]map[string]struct{}),
	}
}

// ObserveVariableValue records that `name` was seen compared against the
// literal `value` somewhere in the query, so a later listing of the
// variable's versions includes it as a candidate.
func (c *Context) ObserveVariableValue(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.variableValues[name]
	if !ok {
		set = make(map[string]struct{})
		c.variableValues[name] = set
	}
	set[value] = struct{}{}
}

// VariableValues returns the literals observed so far for `name`, in no
// particular order; callers needing determinism must sort.
func (c *Context) VariableValues(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.variableValues[name]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// ObserveConflictMember records that the package named memberName declares
// membership in conflict class `class`, so a later listing of the class's
// versions offers memberName as a candidate.
func (c *Context) ObserveConflictMember(class, memberName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.conflictMembers[class]
	if !ok {
		set = make(map[string]struct{})
		c.conflictMembers[class] = set
	}
	set[memberName] = struct{}{}
}

// ConflictMembers returns every package name that has declared membership
// in class.
func (c *Context) ConflictMembers(class string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.conflictMembers[class]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}
