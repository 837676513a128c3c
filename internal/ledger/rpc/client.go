package rpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a ledger node. It implements ledger.Service.
type Client struct {
	conn *grpc.ClientConn
}

var _ ledger.Service = (*Client)(nil)

// NewClient creates a client for target. The connection is established
// lazily on the first call.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) Submit(ctx context.Context, tx *ledger.Transaction) (string, error) {
	in, err := txToStruct(tx)
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, fullMethod("Submit"), in, out); err != nil {
		return "", mapError(err)
	}
	return out.GetValue(), nil
}

func (c *Client) TxStatus(ctx context.Context, txid string) (*ledger.TxStatus, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod("TxStatus"), wrapperspb.String(txid), out); err != nil {
		return nil, mapError(err)
	}
	return statusFromStruct(out)
}

func (c *Client) TotalFiles(ctx context.Context) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.conn.Invoke(ctx, fullMethod("TotalFiles"), &emptypb.Empty{}, out); err != nil {
		return 0, mapError(err)
	}
	return out.GetValue(), nil
}

func (c *Client) GetFile(ctx context.Context, index uint64) (*ledger.Record, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod("GetFile"), wrapperspb.UInt64(index), out); err != nil {
		return nil, mapError(err)
	}
	return recordFromStruct(out)
}

func (c *Client) CanDownload(ctx context.Context, index uint64, address string) (bool, error) {
	in, err := accessToStruct(index, address)
	if err != nil {
		return false, err
	}
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, fullMethod("CanDownload"), in, out); err != nil {
		return false, mapError(err)
	}
	return out.GetValue(), nil
}

func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.conn.Invoke(ctx, fullMethod("Balance"), wrapperspb.String(address), out); err != nil {
		return 0, mapError(err)
	}
	return out.GetValue(), nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	msg := st.Message()
	switch st.Code() {
	case codes.InvalidArgument:
		if strings.Contains(msg, ledger.ErrNotUploader.Error()) {
			return fmt.Errorf("%w: %w", common.ErrTxRejected, ledger.ErrNotUploader)
		}
		return fmt.Errorf("%w: %s", common.ErrTxRejected, msg)
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrInsufficientFunds, msg)
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ledger.ErrUnavailable, msg)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
