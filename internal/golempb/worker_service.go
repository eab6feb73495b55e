package golempb

import (
	"context"

	"google.golang.org/grpc"
)

// WorkerServiceServer is the server-side contract for C9's worker
// lifecycle and invocation RPCs, equivalent to what protoc-gen-go-grpc
// would emit from a .proto service block.
type WorkerServiceServer interface {
	CreateWorker(context.Context, *CreateWorkerRequest) (*CreateWorkerResponse, error)
	DeleteWorker(context.Context, *DeleteWorkerRequest) (*Empty, error)
	GetWorkerMetadata(context.Context, *GetWorkerMetadataRequest) (*GetWorkerMetadataResponse, error)
	GetInvocationKey(context.Context, *GetInvocationKeyRequest) (*GetInvocationKeyResponse, error)
	Invoke(context.Context, *InvokeRequest) (*Empty, error)
	InvokeAndAwait(context.Context, *InvokeAndAwaitRequest) (*InvokeAndAwaitResponse, error)
	InterruptWorker(context.Context, *InterruptWorkerRequest) (*Empty, error)
	ResumeWorker(context.Context, *ResumeWorkerRequest) (*Empty, error)
	ConnectWorker(*ConnectWorkerRequest, WorkerService_ConnectWorkerServer) error
}

// WorkerService_ConnectWorkerServer is the server-side handle for the
// connect_worker server stream.
type WorkerService_ConnectWorkerServer interface {
	Send(*LogEvent) error
	grpc.ServerStream
}

type workerServiceConnectWorkerServer struct {
	grpc.ServerStream
}

func (x *workerServiceConnectWorkerServer) Send(m *LogEvent) error {
	return x.ServerStream.SendMsg(m)
}

func _WorkerService_ConnectWorker_Handler(srv any, stream grpc.ServerStream) error {
	m := new(ConnectWorkerRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(WorkerServiceServer).ConnectWorker(m, &workerServiceConnectWorkerServer{stream})
}

func _WorkerService_CreateWorker_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).CreateWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/CreateWorker"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).CreateWorker(ctx, req.(*CreateWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_DeleteWorker_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).DeleteWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/DeleteWorker"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).DeleteWorker(ctx, req.(*DeleteWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_GetWorkerMetadata_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetWorkerMetadataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).GetWorkerMetadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/GetWorkerMetadata"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).GetWorkerMetadata(ctx, req.(*GetWorkerMetadataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_GetInvocationKey_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetInvocationKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).GetInvocationKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/GetInvocationKey"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).GetInvocationKey(ctx, req.(*GetInvocationKeyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_Invoke_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InvokeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/Invoke"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).Invoke(ctx, req.(*InvokeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_InvokeAndAwait_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InvokeAndAwaitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).InvokeAndAwait(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/InvokeAndAwait"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).InvokeAndAwait(ctx, req.(*InvokeAndAwaitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_InterruptWorker_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InterruptWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).InterruptWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/InterruptWorker"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).InterruptWorker(ctx, req.(*InterruptWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WorkerService_ResumeWorker_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResumeWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).ResumeWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/golem.WorkerService/ResumeWorker"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).ResumeWorker(ctx, req.(*ResumeWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// WorkerService_ServiceDesc is handed to grpc.Server.RegisterService in
// place of the usual protoc-generated service descriptor.
var WorkerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "golem.WorkerService",
	HandlerType: (*WorkerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateWorker", Handler: _WorkerService_CreateWorker_Handler},
		{MethodName: "DeleteWorker", Handler: _WorkerService_DeleteWorker_Handler},
		{MethodName: "GetWorkerMetadata", Handler: _WorkerService_GetWorkerMetadata_Handler},
		{MethodName: "GetInvocationKey", Handler: _WorkerService_GetInvocationKey_Handler},
		{MethodName: "Invoke", Handler: _WorkerService_Invoke_Handler},
		{MethodName: "InvokeAndAwait", Handler: _WorkerService_InvokeAndAwait_Handler},
		{MethodName: "InterruptWorker", Handler: _WorkerService_InterruptWorker_Handler},
		{MethodName: "ResumeWorker", Handler: _WorkerService_ResumeWorker_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ConnectWorker", Handler: _WorkerService_ConnectWorker_Handler, ServerStreams: true},
	},
	Metadata: "golem/worker_service.proto",
}

func RegisterWorkerServiceServer(s grpc.ServiceRegistrar, srv WorkerServiceServer) {
	s.RegisterService(&WorkerService_ServiceDesc, srv)
}

// WorkerServiceClient is the client-side stub, hand-written for the same
// reason the server side is.
type WorkerServiceClient interface {
	CreateWorker(ctx context.Context, in *CreateWorkerRequest, opts ...grpc.CallOption) (*CreateWorkerResponse, error)
	DeleteWorker(ctx context.Context, in *DeleteWorkerRequest, opts ...grpc.CallOption) (*Empty, error)
	GetWorkerMetadata(ctx context.Context, in *GetWorkerMetadataRequest, opts ...grpc.CallOption) (*GetWorkerMetadataResponse, error)
	GetInvocationKey(ctx context.Context, in *GetInvocationKeyRequest, opts ...grpc.CallOption) (*GetInvocationKeyResponse, error)
	Invoke(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (*Empty, error)
	InvokeAndAwait(ctx context.Context, in *InvokeAndAwaitRequest, opts ...grpc.CallOption) (*InvokeAndAwaitResponse, error)
	InterruptWorker(ctx context.Context, in *InterruptWorkerRequest, opts ...grpc.CallOption) (*Empty, error)
	ResumeWorker(ctx context.Context, in *ResumeWorkerRequest, opts ...grpc.CallOption) (*Empty, error)
	ConnectWorker(ctx context.Context, in *ConnectWorkerRequest, opts ...grpc.CallOption) (WorkerService_ConnectWorkerClient, error)
}

type workerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewWorkerServiceClient(cc grpc.ClientConnInterface) WorkerServiceClient {
	return &workerServiceClient{cc}
}

func (c *workerServiceClient) CreateWorker(ctx context.Context, in *CreateWorkerRequest, opts ...grpc.CallOption) (*CreateWorkerResponse, error) {
	out := new(CreateWorkerResponse)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/CreateWorker", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) DeleteWorker(ctx context.Context, in *DeleteWorkerRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/DeleteWorker", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) GetWorkerMetadata(ctx context.Context, in *GetWorkerMetadataRequest, opts ...grpc.CallOption) (*GetWorkerMetadataResponse, error) {
	out := new(GetWorkerMetadataResponse)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/GetWorkerMetadata", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) GetInvocationKey(ctx context.Context, in *GetInvocationKeyRequest, opts ...grpc.CallOption) (*GetInvocationKeyResponse, error) {
	out := new(GetInvocationKeyResponse)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/GetInvocationKey", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) Invoke(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/Invoke", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) InvokeAndAwait(ctx context.Context, in *InvokeAndAwaitRequest, opts ...grpc.CallOption) (*InvokeAndAwaitResponse, error) {
	out := new(InvokeAndAwaitResponse)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/InvokeAndAwait", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) InterruptWorker(ctx context.Context, in *InterruptWorkerRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/InterruptWorker", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) ResumeWorker(ctx context.Context, in *ResumeWorkerRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/golem.WorkerService/ResumeWorker", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workerServiceClient) ConnectWorker(ctx context.Context, in *ConnectWorkerRequest, opts ...grpc.CallOption) (WorkerService_ConnectWorkerClient, error) {
	stream, err := c.cc.NewStream(ctx, &WorkerService_ServiceDesc.Streams[0], "/golem.WorkerService/ConnectWorker", opts...)
	if err != nil {
		return nil, err
	}
	x := &workerServiceConnectWorkerClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// WorkerService_ConnectWorkerClient is the client-side handle for the
// connect_worker server stream.
type WorkerService_ConnectWorkerClient interface {
	Recv() (*LogEvent, error)
	grpc.ClientStream
}

type workerServiceConnectWorkerClient struct {
	grpc.ClientStream
}

func (x *workerServiceConnectWorkerClient) Recv() (*LogEvent, error) {
	m := new(LogEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
