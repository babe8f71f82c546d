package memutils

// Validatable is anything whose internal bookkeeping can be checked for consistency, such as dynamic
// buffers and growing pools
type Validatable interface {
	Validate() error
}
