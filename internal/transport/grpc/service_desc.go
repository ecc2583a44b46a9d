package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "hms.v1.Scheduling"

// SchedulingServiceServer is the server API for hms.v1.Scheduling. Every
// method takes and returns a google.protobuf.Struct.
type SchedulingServiceServer interface {
	ComputeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RequestAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RescheduleAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(SchedulingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SchedulingServiceServer)
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

var schedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("ComputeSlots", SchedulingServiceServer.ComputeSlots),
		methodDesc("AvailableSlots", SchedulingServiceServer.AvailableSlots),
		methodDesc("RequestAppointment", SchedulingServiceServer.RequestAppointment),
		methodDesc("CancelAppointment", SchedulingServiceServer.CancelAppointment),
		methodDesc("RescheduleAppointment", SchedulingServiceServer.RescheduleAppointment),
		methodDesc("UpdateAppointmentStatus", SchedulingServiceServer.UpdateAppointmentStatus),
		methodDesc("DeleteAppointment", SchedulingServiceServer.DeleteAppointment),
		methodDesc("GetAppointment", SchedulingServiceServer.GetAppointment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hms/v1/scheduling.proto",
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&schedulingServiceDesc, srv)
}

// Client calls hms.v1.Scheduling over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
