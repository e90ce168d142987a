package internal

// Waker interrupts a blocking Multiplexer.Poll from any goroutine. Its Fd is
// registered for reads with the multiplexer; Wake makes it readable and Drain
// resets it.
type Waker interface {
	Fd() int
	Wake() error
	Drain()
	Close() error
}
