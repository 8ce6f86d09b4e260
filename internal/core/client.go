package core

// Client is a connected listener as seen by the core layer. User is the
// stable listener identity announced by the transport; ID identifies
// the connection itself.
type Client struct {
	ID     string
	User   string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, user string) *Client {
	if user == "" {
		user = id
	}
	return &Client{
		ID:     id,
		User:   user,
		Events: make(chan *Event, 16),
	}
}
