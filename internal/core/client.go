package core

const (
	commandBuffer = 64
	eventBuffer   = 512
)

// Client is a store connection as seen by the core layer.
// The owner sends on Commands and reads Events until the hub closes it.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	subs   map[int64]*subscription
	done   chan struct{}
	nextID int64
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer+1),
		subs:     make(map[int64]*subscription),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has dropped the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
