package imap

// StoreOptions holds options for the STORE command.
type StoreOptions struct{}

// StoreFlagsOp is a flag operation: set, add, or remove.
type StoreFlagsOp int

const (
	StoreFlagsSet StoreFlagsOp = iota
	StoreFlagsAdd
	StoreFlagsDel
)

// StoreFlags describes a flag mutation to apply to a set of messages.
type StoreFlags struct {
	Op     StoreFlagsOp
	Silent bool
	Flags  []Flag
}
