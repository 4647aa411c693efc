package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wetland-guardian/cienaga-classifier/internal/dataset"
	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const maxMessageSize = 10 * 1024 * 1024

// Server runs the delivery use cases behind ClassifierServer. Training requests are serialized;
// predictions run concurrently against the shared model cache.
type Server struct {
	svc     *delivery.Service
	trainMu sync.Mutex
}

func NewServer(svc *delivery.Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) Train(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	req := delivery.TrainRequest{
		TrainPath: fields["train_path"].GetStringValue(),
		TestPath:  fields["test_path"].GetStringValue(),
		Evaluate:  fields["evaluate"].GetBoolValue(),
		AuditPath: fields["audit_path"].GetStringValue(),
	}
	if req.TrainPath == "" {
		return nil, status.Error(codes.InvalidArgument, "train_path is required")
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	m, err := s.svc.TrainModel(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(m)
}

func (s *Server) Predict(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	req := delivery.PredictRequest{
		ImagePath:  fields["image_path"].GetStringValue(),
		OutputPath: fields["output_path"].GetStringValue(),
	}
	if req.ImagePath == "" {
		return nil, status.Error(codes.InvalidArgument, "image_path is required")
	}

	summary, err := s.svc.ClassifyImage(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(summary)
}

func (s *Server) Reload(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	f, err := s.svc.ReloadModel()
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"model_path": s.svc.Cache.Path(),
		"trees":      len(f.Trees),
		"samples":    f.Samples,
		"loaded_at":  s.svc.Cache.LoadedAt().Format(time.RFC3339),
	})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ml.ErrModelNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dataset.ErrMissingDirectory), errors.Is(err, dataset.ErrNoImages):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ml.ErrNoTrainingData), errors.Is(err, ml.ErrIncompatibleModel):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// logRequests tags every call with a request id and logs its outcome.
func logRequests(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := uuid.NewString()
	started := time.Now()
	log.Info("rpc started", zap.String("method", info.FullMethod), zap.String("requestId", id))

	resp, err := handler(ctx, req)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.String("requestId", id),
		zap.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		log.Error("rpc failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("rpc finished", fields...)
	}
	return resp, err
}

// NewGRPCServer returns a grpc.Server with the classifier service registered.
func NewGRPCServer(svc *delivery.Service) *grpc.Server {
	gs := grpc.NewServer(
		grpc.UnaryInterceptor(logRequests),
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
	)
	RegisterClassifierServer(gs, NewServer(svc))
	return gs
}

// Serve listens on port until ctx is cancelled.
func Serve(ctx context.Context, port int, svc *delivery.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	gs := NewGRPCServer(svc)
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	if err := gs.Serve(lis); err != nil {
		return fmt.Errorf("grpc server stopped: %w", err)
	}
	return nil
}
