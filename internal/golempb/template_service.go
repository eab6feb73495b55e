package golempb

import (
	"context"

	"google.golang.org/grpc"
)

// TemplateServiceServer exposes C1 (put/get/get_latest/find/metadata)
// over the same gRPC + JSON-codec transport as WorkerServiceServer.
type TemplateServiceServer interface {
	PutTemplate(context.Context, *PutTemplateRequest) (*PutTemplateResponse, error)
	GetTemplate(context.Context, *GetTemplateRequest) (*GetTemplateResponse, error)
	GetLatestTemplate(context.Context, *GetLatestTemplateRequest) (*GetLatestTemplateResponse, error)
	FindTemplates(context.Context, *FindTemplatesRequest) (*FindTemplatesResponse, error)
	GetTemplateMetadata(context.Context, *GetTemplateMetadataRequest) (*GetTemplateMetadataResponse, error)
}

func _TemplateService_PutTemplate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PutTemplateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TemplateServiceServer).PutTemplate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.TemplateService/PutTemplate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TemplateServiceServer).PutTemplate(ctx, req.(*PutTemplateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TemplateService_GetTemplate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTemplateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TemplateServiceServer).GetTemplate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.TemplateService/GetTemplate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TemplateServiceServer).GetTemplate(ctx, req.(*GetTemplateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TemplateService_GetLatestTemplate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetLatestTemplateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TemplateServiceServer).GetLatestTemplate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.TemplateService/GetLatestTemplate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TemplateServiceServer).GetLatestTemplate(ctx, req.(*GetLatestTemplateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TemplateService_FindTemplates_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FindTemplatesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TemplateServiceServer).FindTemplates(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.TemplateService/FindTemplates"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TemplateServiceServer).FindTemplates(ctx, req.(*FindTemplatesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TemplateService_GetTemplateMetadata_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTemplateMetadataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TemplateServiceServer).GetTemplateMetadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.TemplateService/GetTemplateMetadata"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TemplateServiceServer).GetTemplateMetadata(ctx, req.(*GetTemplateMetadataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var TemplateService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "golem.TemplateService",
	HandlerType: (*TemplateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PutTemplate", Handler: _TemplateService_PutTemplate_Handler},
		{MethodName: "GetTemplate", Handler: _TemplateService_GetTemplate_Handler},
		{MethodName: "GetLatestTemplate", Handler: _TemplateService_GetLatestTemplate_Handler},
		{MethodName: "FindTemplates", Handler: _TemplateService_FindTemplates_Handler},
		{MethodName: "GetTemplateMetadata", Handler: _TemplateService_GetTemplateMetadata_Handler},
	},
	Metadata: "golem/template_service.proto",
}

func RegisterTemplateServiceServer(s grpc.ServiceRegistrar, srv TemplateServiceServer) {
	s.RegisterService(&TemplateService_ServiceDesc, srv)
}

type TemplateServiceClient interface {
	PutTemplate(ctx context.Context, in *PutTemplateRequest, opts ...grpc.CallOption) (*PutTemplateResponse, error)
	GetTemplate(ctx context.Context, in *GetTemplateRequest, opts ...grpc.CallOption) (*GetTemplateResponse, error)
	GetLatestTemplate(ctx context.Context, in *GetLatestTemplateRequest, opts ...grpc.CallOption) (*GetLatestTemplateResponse, error)
	FindTemplates(ctx context.Context, in *FindTemplatesRequest, opts ...grpc.CallOption) (*FindTemplatesResponse, error)
	GetTemplateMetadata(ctx context.Context, in *GetTemplateMetadataRequest, opts ...grpc.CallOption) (*GetTemplateMetadataResponse, error)
}

type templateServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTemplateServiceClient(cc grpc.ClientConnInterface) TemplateServiceClient {
	return &templateServiceClient{cc}
}

func (c *templateServiceClient) PutTemplate(ctx context.Context, in *PutTemplateRequest, opts ...grpc.CallOption) (*PutTemplateResponse, error) {
	out := new(PutTemplateResponse)
	if err := c.cc.Invoke(ctx, "/golem.TemplateService/PutTemplate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *templateServiceClient) GetTemplate(ctx context.Context, in *GetTemplateRequest, opts ...grpc.CallOption) (*GetTemplateResponse, error) {
	out := new(GetTemplateResponse)
	if err := c.cc.Invoke(ctx, "/golem.TemplateService/GetTemplate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *templateServiceClient) GetLatestTemplate(ctx context.Context, in *GetLatestTemplateRequest, opts ...grpc.CallOption) (*GetLatestTemplateResponse, error) {
	out := new(GetLatestTemplateResponse)
	if err := c.cc.Invoke(ctx, "/golem.TemplateService/GetLatestTemplate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *templateServiceClient) FindTemplates(ctx context.Context, in *FindTemplatesRequest, opts ...grpc.CallOption) (*FindTemplatesResponse, error) {
	out := new(FindTemplatesResponse)
	if err := c.cc.Invoke(ctx, "/golem.TemplateService/FindTemplates", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *templateServiceClient) GetTemplateMetadata(ctx context.Context, in *GetTemplateMetadataRequest, opts ...grpc.CallOption) (*GetTemplateMetadataResponse, error) {
	out := new(GetTemplateMetadataResponse)
	if err := c.cc.Invoke(ctx, "/golem.TemplateService/GetTemplateMetadata", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
