// Package server exposes the menu pipeline over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON shapes the batch
// snapshots use. No .proto file backs the service, so server reflection lists
// its name but cannot describe its methods.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/repository"
)

const ServiceName = "menuocr.v1.MenuOCRService"

// Backend is implemented by *pipeline.Processor.
type Backend interface {
	Process(ctx context.Context, uploads []ingest.Upload, opts pipeline.RunOptions) (*pipeline.Outcome, error)
	RegenerateCSV(ctx context.Context, batchID string, rows []entity.PackageRow, opts pipeline.RunOptions) (*pipeline.RegenerateResult, error)
	GetBatch(ctx context.Context, id string) (*entity.Batch, error)
	ListBatches(ctx context.Context, limit int) ([]repository.BatchSummary, error)
}

type MenuService struct {
	backend Backend
	logger  *slog.Logger
}

func NewMenuService(backend Backend, logger *slog.Logger) *MenuService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuService{backend: backend, logger: logger}
}

// Register attaches the service to a gRPC server.
func Register(s grpc.ServiceRegistrar, svc *MenuService) {
	s.RegisterService(&ServiceDesc, svc)
}

type handlerFunc func(*MenuService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(*MenuService)
			call := func(ctx context.Context, req any) (any, error) {
				return svc.handle(ctx, method, fn, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, call)
		},
	}
}

// ServiceDesc describes MenuOCRService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary("ProcessUpload", (*MenuService).ProcessUpload),
		unary("ProcessDirectory", (*MenuService).ProcessDirectory),
		unary("RegenerateCSV", (*MenuService).RegenerateCSV),
		unary("GetBatch", (*MenuService).GetBatch),
		unary("ListBatches", (*MenuService).ListBatches),
	},
	Streams: []grpc.StreamDesc{},
}

func (s *MenuService) handle(ctx context.Context, method string, fn handlerFunc, in *structpb.Struct) (*structpb.Struct, error) {
	if common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, newRequestID())
	}
	log := common.LoggerFrom(ctx, s.logger)
	out, err := fn(s, ctx, in)
	if err != nil {
		log.Warn("rpc.failed", "method", method, "code", common.CodeOf(err), "error", err)
		return nil, common.ToGRPCStatus(err)
	}
	log.Info("rpc.ok", "method", method)
	return out, nil
}

// decode copies a Struct into v through its JSON form.
func decode(in *structpb.Struct, v any) error {
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.NewInputError(common.CodeInvalidInput, fmt.Sprintf("malformed request: %v", err))
	}
	return nil
}

// encode converts any JSON-marshalable value into a Struct.
func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
