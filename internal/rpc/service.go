// Package rpc exposes the classifier over gRPC. Messages are google.protobuf.Struct values so the
// service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "cienaga.ClassifierService"

const (
	TrainMethod   = "/" + ServiceName + "/Train"
	PredictMethod = "/" + ServiceName + "/Predict"
	ReloadMethod  = "/" + ServiceName + "/Reload"
)

// ClassifierServer is the server API for the classifier service.
type ClassifierServer interface {
	// Train takes train_path, test_path, evaluate and audit_path and returns the training metrics.
	Train(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Predict takes image_path and output_path and returns the image summary.
	Predict(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Reload makes later predictions use the artifact currently on disk.
	Reload(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterClassifierServer(s grpc.ServiceRegistrar, srv ClassifierServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(method string, call func(ClassifierServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ClassifierServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ClassifierServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Train", Handler: unaryHandler(TrainMethod, ClassifierServer.Train)},
		{MethodName: "Predict", Handler: unaryHandler(PredictMethod, ClassifierServer.Predict)},
		{MethodName: "Reload", Handler: unaryHandler(ReloadMethod, ClassifierServer.Reload)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cienaga.proto",
}
