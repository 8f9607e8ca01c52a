package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "attendance.v1.Attendance"

// AttendanceServer is the gRPC surface of the attendance engine. Every
// payload is a google.protobuf.Struct carrying the same fields as the JSON
// API.
type AttendanceServer interface {
	ClockIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClockOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartLunch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndLunch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Heartbeat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Today(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConvertMode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkMark(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDay(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryFn func(AttendanceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryFn) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(AttendanceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is written by hand; the messages are well-known types so no
// generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AttendanceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ClockIn", AttendanceServer.ClockIn),
		unary("ClockOut", AttendanceServer.ClockOut),
		unary("StartLunch", AttendanceServer.StartLunch),
		unary("EndLunch", AttendanceServer.EndLunch),
		unary("Heartbeat", AttendanceServer.Heartbeat),
		unary("Today", AttendanceServer.Today),
		unary("ConvertMode", AttendanceServer.ConvertMode),
		unary("BulkMark", AttendanceServer.BulkMark),
		unary("ListDay", AttendanceServer.ListDay),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "attendance/v1/attendance.proto",
}

// Client invokes the Attendance service over any client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method (e.g. "ClockIn") with in, which may be nil.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
