package vm

import "fmt"

type ErrorKind int

const (
	TypeUnary ErrorKind = iota
	TypeBinary
	DivideByZero
	Arity
	Scope
	Name
	Write
	Bounds
	StackOverflow
	Resource
	UnknownFunction
	Other
)

var errorKindNames = [...]string{
	TypeUnary:       "TypeUnary",
	TypeBinary:      "TypeBinary",
	DivideByZero:    "DivideByZero",
	Arity:           "Arity",
	Scope:           "Scope",
	Name:            "Name",
	Write:           "Write",
	Bounds:          "Bounds",
	StackOverflow:   "StackOverflow",
	Resource:        "Resource",
	UnknownFunction: "UnknownFunction",
	Other:           "Other",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// RuntimeError aborts the running event. Unit and position are filled in
// by the VM from the failing instruction.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Unit    string
	Line    int
	Column  int
}

func (e *RuntimeError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s line %d:%d] %s error: %s", e.Unit, e.Line, e.Column, e.Kind, e.Message)
}

// Errorf builds a RuntimeError for natives and hosts to return.
func Errorf(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
