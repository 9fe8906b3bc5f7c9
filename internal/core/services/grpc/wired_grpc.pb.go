// Hand-written in the shape protoc-gen-go-grpc produces (see wired.pb.go for
// why); the ServiceDesc/handler boilerplate below is otherwise exactly what
// codegen would emit for a WiredControl service with these seven RPCs.

package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// WiredControlServer is the control-surface contract (§4.10): Connect,
// Disconnect, GetOrderedNetworks, StartAP, StopAP, PushButton,
// GetStationStatus, each a thin translation to an Orchestrator call.
type WiredControlServer interface {
	Connect(context.Context, *ConnectRequest) (*ConnectResponse, error)
	Disconnect(context.Context, *DisconnectRequest) (*DisconnectResponse, error)
	GetOrderedNetworks(context.Context, *GetOrderedNetworksRequest) (*GetOrderedNetworksResponse, error)
	StartAP(context.Context, *StartAPRequest) (*StartAPResponse, error)
	StopAP(context.Context, *StopAPRequest) (*StopAPResponse, error)
	PushButton(context.Context, *PushButtonRequest) (*PushButtonResponse, error)
	GetStationStatus(context.Context, *GetStationStatusRequest) (*GetStationStatusResponse, error)
}

func _WiredControl_Connect_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ConnectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).Connect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/Connect"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).Connect(ctx, req.(*ConnectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WiredControl_Disconnect_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DisconnectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).Disconnect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/Disconnect"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).Disconnect(ctx, req.(*DisconnectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WiredControl_GetOrderedNetworks_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderedNetworksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).GetOrderedNetworks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/GetOrderedNetworks"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).GetOrderedNetworks(ctx, req.(*GetOrderedNetworksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WiredControl_StartAP_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartAPRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).StartAP(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/StartAP"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).StartAP(ctx, req.(*StartAPRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WiredControl_StopAP_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StopAPRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).StopAP(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/StopAP"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).StopAP(ctx, req.(*StopAPRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WiredControl_PushButton_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PushButtonRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).PushButton(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/PushButton"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).PushButton(ctx, req.(*PushButtonRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WiredControl_GetStationStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStationStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WiredControlServer).GetStationStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wired.WiredControl/GetStationStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WiredControlServer).GetStationStatus(ctx, req.(*GetStationStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// WiredControl_ServiceDesc is the grpc.ServiceDesc for WiredControlServer.
var WiredControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "wired.WiredControl",
	HandlerType: (*WiredControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Connect", Handler: _WiredControl_Connect_Handler},
		{MethodName: "Disconnect", Handler: _WiredControl_Disconnect_Handler},
		{MethodName: "GetOrderedNetworks", Handler: _WiredControl_GetOrderedNetworks_Handler},
		{MethodName: "StartAP", Handler: _WiredControl_StartAP_Handler},
		{MethodName: "StopAP", Handler: _WiredControl_StopAP_Handler},
		{MethodName: "PushButton", Handler: _WiredControl_PushButton_Handler},
		{MethodName: "GetStationStatus", Handler: _WiredControl_GetStationStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wired.proto",
}
