package evalmachine

// Input selects where the code to run comes from.
type Input int

const (
	// FreshSource compiles the code argument.
	FreshSource Input = iota
	// Precompiled reuses the program stored on the receiving Script.
	Precompiled
)

// Target selects the environment the code runs in.
type Target int

const (
	// Ambient runs in the current environment without entering it: the
	// innermost entered one, else the host.
	Ambient Target = iota
	// Fresh runs in a new environment seeded from a sandbox object and
	// disposed afterwards.
	Fresh
	// Supplied runs in the environment of a caller-given sandbox.Context.
	Supplied
)

// Output selects what a successful evaluation returns.
type Output int

const (
	// ReturnValue returns the completion value of the code.
	ReturnValue Output = iota
	// StoreForReuse stores the compiled program on the receiver and returns
	// the receiver.
	StoreForReuse
)

func (i Input) String() string {
	if i == Precompiled {
		return "precompiled"
	}
	return "source"
}

func (t Target) String() string {
	switch t {
	case Fresh:
		return "new"
	case Supplied:
		return "context"
	}
	return "this"
}

// Config is one point of the evaluation space.
type Config struct {
	Input  Input
	Target Target
	Output Output
}

// The configurations behind the public operations.
var (
	ConstructScript         = Config{FreshSource, Ambient, StoreForReuse}
	CompileRunInThisContext = Config{FreshSource, Ambient, ReturnValue}
	CompileRunInNewContext  = Config{FreshSource, Fresh, ReturnValue}
	CompileRunInContext     = Config{FreshSource, Supplied, ReturnValue}
	RunInThisContext        = Config{Precompiled, Ambient, ReturnValue}
	RunInNewContext         = Config{Precompiled, Fresh, ReturnValue}
	RunInContext            = Config{Precompiled, Supplied, ReturnValue}
)

// sandboxIndex is the position of the sandbox or context argument.
func (c Config) sandboxIndex() int {
	if c.Input == FreshSource {
		return 1
	}
	return 0
}

// filenameIndex is the position of the optional filename argument.
func (c Config) filenameIndex() int {
	if c.Target == Ambient {
		return c.sandboxIndex()
	}
	return c.sandboxIndex() + 1
}
