// Package rpc exposes a ledger.Service over gRPC and provides the matching
// client.
package rpc

import (
	"context"

	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "hashdrive.ledger.v1.Ledger"

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// method builds a unary MethodDesc whose request type is In.
func method[In proto.Message](name string, newIn func() In, call func(context.Context, ledger.Service, In) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newIn()
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(ctx, srv.(ledger.Service), req.(In))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ledger.Service)(nil),
	Methods: []grpc.MethodDesc{
		method("Submit", newStruct, func(ctx context.Context, l ledger.Service, in *structpb.Struct) (any, error) {
			tx, err := txFromStruct(in)
			if err != nil {
				return nil, err
			}
			id, err := l.Submit(ctx, tx)
			if err != nil {
				return nil, err
			}
			return wrapperspb.String(id), nil
		}),
		method("TxStatus", newString, func(ctx context.Context, l ledger.Service, in *wrapperspb.StringValue) (any, error) {
			st, err := l.TxStatus(ctx, in.GetValue())
			if err != nil {
				return nil, err
			}
			return statusToStruct(st)
		}),
		method("TotalFiles", newEmpty, func(ctx context.Context, l ledger.Service, _ *emptypb.Empty) (any, error) {
			n, err := l.TotalFiles(ctx)
			if err != nil {
				return nil, err
			}
			return wrapperspb.UInt64(n), nil
		}),
		method("GetFile", newUInt64, func(ctx context.Context, l ledger.Service, in *wrapperspb.UInt64Value) (any, error) {
			rec, err := l.GetFile(ctx, in.GetValue())
			if err != nil {
				return nil, err
			}
			return recordToStruct(rec)
		}),
		method("CanDownload", newStruct, func(ctx context.Context, l ledger.Service, in *structpb.Struct) (any, error) {
			index, address, err := accessFromStruct(in)
			if err != nil {
				return nil, err
			}
			ok, err := l.CanDownload(ctx, index, address)
			if err != nil {
				return nil, err
			}
			return wrapperspb.Bool(ok), nil
		}),
		method("Balance", newString, func(ctx context.Context, l ledger.Service, in *wrapperspb.StringValue) (any, error) {
			bal, err := l.Balance(ctx, in.GetValue())
			if err != nil {
				return nil, err
			}
			return wrapperspb.UInt64(bal), nil
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hashdrive/ledger/v1/ledger.proto",
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newUInt64() *wrapperspb.UInt64Value { return new(wrapperspb.UInt64Value) }
func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
