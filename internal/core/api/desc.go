package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "switchboard.admin.v1.AdminAPI"

// Method names.
const (
	MethodListSwitches   = "ListSwitches"
	MethodChoices        = "Choices"
	MethodUpdateSwitch   = "UpdateSwitch"
	MethodDeleteSwitch   = "DeleteSwitch"
	MethodExportSwitches = "ExportSwitches"
	MethodImportSwitches = "ImportSwitches"
)

// AdminServer is the server API for the admin service.
type AdminServer interface {
	ListSwitches(context.Context, *ListSwitchesRequest) (*ListSwitchesResponse, error)
	Choices(context.Context, *ChoicesRequest) (*ChoicesResponse, error)
	UpdateSwitch(context.Context, *UpdateSwitchRequest) (*UpdateSwitchResponse, error)
	DeleteSwitch(context.Context, *DeleteSwitchRequest) (*DeleteSwitchResponse, error)
	ExportSwitches(context.Context, *ExportSwitchesRequest) (*ExportSwitchesResponse, error)
	ImportSwitches(context.Context, *ImportSwitchesRequest) (*ImportSwitchesResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodListSwitches, AdminServer.ListSwitches),
		unaryMethod(MethodChoices, AdminServer.Choices),
		unaryMethod(MethodUpdateSwitch, AdminServer.UpdateSwitch),
		unaryMethod(MethodDeleteSwitch, AdminServer.DeleteSwitch),
		unaryMethod(MethodExportSwitches, AdminServer.ExportSwitches),
		unaryMethod(MethodImportSwitches, AdminServer.ImportSwitches),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterAdminServer registers srv on s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unaryMethod adapts a typed handler to grpc's untyped method descriptor.
func unaryMethod[Req, Resp any](name string, call func(AdminServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(*Req))
			})
		},
	}
}
