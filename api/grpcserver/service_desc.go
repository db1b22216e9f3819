package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is described by hand over protobuf well-known types:
//
//	service MarketData {
//	  rpc GetBBO(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc GetDepth(google.protobuf.UInt32Value) returns (google.protobuf.Struct);
//	}
const (
	ServiceName    = "tickbook.v1.MarketData"
	methodGetBBO   = "/" + ServiceName + "/GetBBO"
	methodGetDepth = "/" + ServiceName + "/GetDepth"
)

type MarketDataServer interface {
	GetBBO(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDepth(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
}

var MarketDataServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketDataServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBBO", Handler: getBBOHandler},
		{MethodName: "GetDepth", Handler: getDepthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tickbook/v1/market_data.proto",
}

// Register installs srv on s.
func Register(s grpc.ServiceRegistrar, srv MarketDataServer) {
	s.RegisterService(&MarketDataServiceDesc, srv)
}

func getBBOHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketDataServer).GetBBO(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBBO}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MarketDataServer).GetBBO(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getDepthHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketDataServer).GetDepth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetDepth}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MarketDataServer).GetDepth(ctx, req.(*wrapperspb.UInt32Value))
	}
	return interceptor(ctx, in, info, handler)
}

// -------------------- Client --------------------

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetBBO(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetBBO, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDepth(ctx context.Context, levels uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetDepth, wrapperspb.UInt32(levels), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
