package api_v1

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
)

const SERVICE_NAME = "pollster.v1.TriggerService"

type TriggerRequest struct {
	Name  string `json:"name"`
	RunId string `json:"runId,omitempty"`
}

type ItemsResponse struct {
	Items []json.RawMessage `json:"items"`
}

type StatusResponse struct {
	Status bool `json:"status"`
}

type TriggerServiceServer interface {
	Poll(context.Context, *TriggerRequest) (*ItemsResponse, error)
	Test(context.Context, *TriggerRequest) (*ItemsResponse, error)
	Enable(context.Context, *TriggerRequest) (*StatusResponse, error)
	Disable(context.Context, *TriggerRequest) (*StatusResponse, error)
}

type TriggerServiceClient interface {
	Poll(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*ItemsResponse, error)
	Test(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*ItemsResponse, error)
	Enable(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	Disable(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*StatusResponse, error)
}

type triggerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTriggerServiceClient(cc grpc.ClientConnInterface) TriggerServiceClient {
	return &triggerServiceClient{cc}
}

func (c *triggerServiceClient) invoke(ctx context.Context, method string, in any, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CODEC_NAME)}, opts...)
	return c.cc.Invoke(ctx, "/"+SERVICE_NAME+"/"+method, in, out, opts...)
}

func (c *triggerServiceClient) Poll(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*ItemsResponse, error) {
	out := new(ItemsResponse)
	if err := c.invoke(ctx, "Poll", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *triggerServiceClient) Test(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*ItemsResponse, error) {
	out := new(ItemsResponse)
	if err := c.invoke(ctx, "Test", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *triggerServiceClient) Enable(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.invoke(ctx, "Enable", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *triggerServiceClient) Disable(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.invoke(ctx, "Disable", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterTriggerServiceServer(s grpc.ServiceRegistrar, srv TriggerServiceServer) {
	s.RegisterService(&TriggerService_ServiceDesc, srv)
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(method string, call func(TriggerServiceServer, context.Context, *TriggerRequest) (any, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(TriggerRequest)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TriggerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + SERVICE_NAME + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TriggerServiceServer), ctx, req.(*TriggerRequest))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var TriggerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SERVICE_NAME,
	HandlerType: (*TriggerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Poll",
			Handler: unaryHandler("Poll", func(s TriggerServiceServer, ctx context.Context, in *TriggerRequest) (any, error) {
				return s.Poll(ctx, in)
			}),
		},
		{
			MethodName: "Test",
			Handler: unaryHandler("Test", func(s TriggerServiceServer, ctx context.Context, in *TriggerRequest) (any, error) {
				return s.Test(ctx, in)
			}),
		},
		{
			MethodName: "Enable",
			Handler: unaryHandler("Enable", func(s TriggerServiceServer, ctx context.Context, in *TriggerRequest) (any, error) {
				return s.Enable(ctx, in)
			}),
		},
		{
			MethodName: "Disable",
			Handler: unaryHandler("Disable", func(s TriggerServiceServer, ctx context.Context, in *TriggerRequest) (any, error) {
				return s.Disable(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}
