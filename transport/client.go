package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-zeromq/zmq4"

	"github.com/VanDung-dev/ArrowCapsule/bridge"
	"github.com/VanDung-dev/ArrowCapsule/column"
)

// Client fetches column batches from a Server.
type Client struct {
	codec *bridge.Codec
	sock  zmq4.Socket
}

// Dial connects a Client to the given endpoint. The context bounds the
// lifetime of the connection, not a single request.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	sock := zmq4.NewReq(ctx)
	if err := sock.Dial(endpoint); err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	return &Client{codec: bridge.NewCodec(), sock: sock}, nil
}

// Fetch requests one batch and decodes it into an owned handle.
func (c *Client) Fetch() (*column.Handle, error) {
	if err := c.sock.Send(zmq4.NewMsgString(fetchCommand)); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	msg, err := c.sock.Recv()
	if err != nil {
		return nil, fmt.Errorf("failed to receive reply: %w", err)
	}
	if len(msg.Frames) < 2 {
		return nil, errors.New("short reply from server")
	}
	if string(msg.Frames[0]) != "ok" {
		return nil, fmt.Errorf("server error: %s", msg.Frames[1])
	}

	return c.codec.DecodeHandle(msg.Frames[1])
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.sock.Close()
}
