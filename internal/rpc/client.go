package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

type Client struct {
	conn *grpc.ClientConn
}

// NewClient connects to a classifier service at target without transport security.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Train(ctx context.Context, trainPath, testPath string, evaluate bool) (map[string]any, error) {
	return c.call(ctx, TrainMethod, map[string]any{
		"train_path": trainPath,
		"test_path":  testPath,
		"evaluate":   evaluate,
	})
}

func (c *Client) Predict(ctx context.Context, imagePath, outputPath string) (map[string]any, error) {
	return c.call(ctx, PredictMethod, map[string]any{
		"image_path":  imagePath,
		"output_path": outputPath,
	})
}

func (c *Client) Reload(ctx context.Context) (map[string]any, error) {
	return c.call(ctx, ReloadMethod, map[string]any{})
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, fmt.Errorf("error calling %s: %w", method, err)
	}
	return out.AsMap(), nil
}
