package rpc

import (
	"context"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	api "github.com/mohitkumar/pollster/api/v1"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
)

type TriggerService interface {
	Poll(ctx context.Context, name string, runId string) ([]model.CandidateItem, error)
	Test(ctx context.Context, name string, runId string) ([]model.CandidateItem, error)
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
}

type GrpcConfig struct {
	TriggerService TriggerService
}

type grpcServer struct {
	*GrpcConfig
}

var _ api.TriggerServiceServer = (*grpcServer)(nil)

func NewGrpcServer(config *GrpcConfig) (*grpc.Server, error) {
	log := logger.L().Named("server")
	zapOpts := []grpc_zap.Option{
		grpc_zap.WithDurationField(
			func(duration time.Duration) zapcore.Field {
				return zap.Int64(
					"grpc.time_ns",
					duration.Nanoseconds(),
				)
			},
		),
	}
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	err := view.Register(ocgrpc.DefaultServerViews...)
	if err != nil {
		return nil, err
	}
	grpcOpts := []grpc.ServerOption{
		grpc.StreamInterceptor(
			grpc_middleware.ChainStreamServer(
				grpc_ctxtags.StreamServerInterceptor(),
				grpc_zap.StreamServerInterceptor(log, zapOpts...),
			)),
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_ctxtags.UnaryServerInterceptor(),
			grpc_zap.UnaryServerInterceptor(log, zapOpts...),
		)),
		grpc.StatsHandler(&ocgrpc.ServerHandler{}),
	}

	gsrv := grpc.NewServer(grpcOpts...)
	api.RegisterTriggerServiceServer(gsrv, &grpcServer{GrpcConfig: config})
	return gsrv, nil
}

func (srv *grpcServer) Poll(ctx context.Context, req *api.TriggerRequest) (*api.ItemsResponse, error) {
	items, err := srv.TriggerService.Poll(ctx, req.Name, req.RunId)
	if err != nil {
		return nil, api.ToGRPC(err)
	}
	return &api.ItemsResponse{Items: model.Payloads(items)}, nil
}

func (srv *grpcServer) Test(ctx context.Context, req *api.TriggerRequest) (*api.ItemsResponse, error) {
	items, err := srv.TriggerService.Test(ctx, req.Name, req.RunId)
	if err != nil {
		return nil, api.ToGRPC(err)
	}
	return &api.ItemsResponse{Items: model.Payloads(items)}, nil
}

func (srv *grpcServer) Enable(ctx context.Context, req *api.TriggerRequest) (*api.StatusResponse, error) {
	if err := srv.TriggerService.Enable(ctx, req.Name); err != nil {
		return &api.StatusResponse{Status: false}, api.ToGRPC(err)
	}
	return &api.StatusResponse{Status: true}, nil
}

func (srv *grpcServer) Disable(ctx context.Context, req *api.TriggerRequest) (*api.StatusResponse, error) {
	if err := srv.TriggerService.Disable(ctx, req.Name); err != nil {
		return &api.StatusResponse{Status: false}, api.ToGRPC(err)
	}
	return &api.StatusResponse{Status: true}, nil
}
