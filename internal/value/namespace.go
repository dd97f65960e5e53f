package value

import "sort"

// Namespace is a table of named variable slots: the global namespace or the
// fields of one instance.
type Namespace struct {
	vars map[string]*Array
}

func NewNamespace() *Namespace {
	return &Namespace{vars: make(map[string]*Array)}
}

func (n *Namespace) Lookup(name string) (*Array, bool) {
	a, ok := n.vars[name]
	return a, ok
}

// Ensure returns the slot for name, creating an empty one when missing.
func (n *Namespace) Ensure(name string) *Array {
	a, ok := n.vars[name]
	if !ok {
		a = NewArray()
		n.vars[name] = a
	}
	return a
}

func (n *Namespace) Has(name string) bool {
	_, ok := n.vars[name]
	return ok
}

func (n *Namespace) Delete(name string) {
	delete(n.vars, name)
}

func (n *Namespace) Len() int { return len(n.vars) }

// Names lists the variables in sorted order.
func (n *Namespace) Names() []string {
	names := make([]string, 0, len(n.vars))
	for k := range n.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
