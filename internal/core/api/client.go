package api

import (
	"context"
	"fmt"

	"github.com/solatis/switchboard/internal/core/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls the admin API with an API key.
type Client struct {
	conn   *grpc.ClientConn
	apiKey string
}

// Dial creates a client for the admin API at addr.
// Connections are plaintext unless opts supply transport credentials.
func Dial(addr, apiKey string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, apiKey: apiKey}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	ctx = metadata.AppendToOutgoingContext(ctx, auth.MetadataKey, c.apiKey)
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, grpc.CallContentSubtype(CodecName))
}

// ListSwitches returns every stored switch.
func (c *Client) ListSwitches(ctx context.Context) (*ListSwitchesResponse, error) {
	resp := new(ListSwitchesResponse)
	if err := c.invoke(ctx, MethodListSwitches, &ListSwitchesRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Choices returns operator and argument choices.
func (c *Client) Choices(ctx context.Context) (*ChoicesResponse, error) {
	resp := new(ChoicesResponse)
	if err := c.invoke(ctx, MethodChoices, &ChoicesRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateSwitch submits editor form values.
func (c *Client) UpdateSwitch(ctx context.Context, values map[string][]string) (*UpdateSwitchResponse, error) {
	resp := new(UpdateSwitchResponse)
	if err := c.invoke(ctx, MethodUpdateSwitch, &UpdateSwitchRequest{Values: values}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteSwitch removes the named switch.
func (c *Client) DeleteSwitch(ctx context.Context, name string) error {
	return c.invoke(ctx, MethodDeleteSwitch, &DeleteSwitchRequest{Name: name}, new(DeleteSwitchResponse))
}

// ExportSwitches returns the armored block for names, or for all switches.
func (c *Client) ExportSwitches(ctx context.Context, names []string) (string, error) {
	resp := new(ExportSwitchesResponse)
	if err := c.invoke(ctx, MethodExportSwitches, &ExportSwitchesRequest{Names: names}, resp); err != nil {
		return "", err
	}
	return resp.SwitchBlock, nil
}

// ImportSwitches uploads an armored block.
func (c *Client) ImportSwitches(ctx context.Context, block string) (*ImportSwitchesResponse, error) {
	resp := new(ImportSwitchesResponse)
	if err := c.invoke(ctx, MethodImportSwitches, &ImportSwitchesRequest{SwitchBlock: block}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
